package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lacasadepastel/pdv/internal/adapter/logger"
	"github.com/lacasadepastel/pdv/internal/interfaces"
)

// NotificationHandler consumes the notification feed and prints tickets
// and closure reports to the console, standing in for the thermal
// printer at the counter.
type NotificationHandler struct {
	logger logger.Logger
}

func NewNotificationHandler(logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		logger: logger,
	}
}

func (h *NotificationHandler) HandleNotification(ctx context.Context, body []byte) error {
	var envelope interfaces.NotificationEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse notification", "", nil, err)
		return err
	}

	switch envelope.Type {
	case interfaces.NotificationSale:
		if envelope.Sale != nil {
			h.printTicket(*envelope.Sale)
		}
	case interfaces.NotificationShiftClosed:
		if envelope.ShiftClosed != nil {
			h.printClosureReport(*envelope.ShiftClosed)
		}
	default:
		h.logger.Debug("notification_skipped", "Unknown notification type", "", map[string]interface{}{
			"type": envelope.Type,
		})
	}

	return nil
}

func (h *NotificationHandler) printTicket(sale interfaces.SaleMessage) {
	h.logger.Debug("ticket_received", fmt.Sprintf("Sale %d finalized", sale.QueueNumber), "",
		map[string]interface{}{
			"queue_number": sale.QueueNumber,
			"total":        sale.Total.StringFixed(2),
		})

	fmt.Printf("==== SENHA %d ====\n", sale.QueueNumber)
	for _, line := range sale.Items {
		fmt.Printf("%dx %s  R$ %s\n", line.Quantity, line.Name, line.LineTotal().StringFixed(2))
		for _, addon := range line.Addons {
			fmt.Printf("   + %s\n", addon.Name)
		}
	}
	fmt.Printf("TOTAL: R$ %s (%s)\n", sale.Total.StringFixed(2), sale.PaymentMethod)
	if sale.ChangeGiven.IsPositive() {
		fmt.Printf("TROCO: R$ %s\n", sale.ChangeGiven.StringFixed(2))
	}
}

func (h *NotificationHandler) printClosureReport(msg interfaces.ShiftClosedMessage) {
	summary := msg.Summary

	fmt.Printf("==== FECHAMENTO DE CAIXA %s ====\n", summary.ClosedAt.Format("2006-01-02 15:04"))
	fmt.Printf("Vendas: %d | Total: R$ %s\n", summary.SaleCount, summary.TotalRevenue.StringFixed(2))
	for method, subtotal := range summary.ByMethod {
		fmt.Printf("  %s: %d vendas, R$ %s\n", method, subtotal.Count, subtotal.Subtotal.StringFixed(2))
	}
}
