package pos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lacasadepastel/pdv/internal/adapter/logger"
	"github.com/lacasadepastel/pdv/internal/app/ledger"
	"github.com/lacasadepastel/pdv/internal/app/shift"
	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/lacasadepastel/pdv/internal/interfaces"
	"github.com/lacasadepastel/pdv/internal/pix"
	"github.com/shopspring/decimal"
)

// ErrInsufficientTender rejects a cash sale whose tender does not cover
// the total.
var ErrInsufficientTender = errors.New("tendered amount below sale total")

// ErrEmptyCart rejects finalizing a sale with nothing in the cart.
var ErrEmptyCart = errors.New("cart is empty")

// Service is the counter register: a build-up cart, sale finalization
// against the ledger and the shift, and the void path. Counter sales are
// never gated by store availability.
type Service struct {
	ledger    *ledger.Service
	shift     *shift.Service
	settings  interfaces.SettingsStore
	cache     interfaces.Cache
	publisher interfaces.EventPublisher
	logger    logger.Logger
	now       func() time.Time

	mu   sync.Mutex
	cart []domain.CartLine
}

func NewService(ledger *ledger.Service, shift *shift.Service, settings interfaces.SettingsStore, cache interfaces.Cache, publisher interfaces.EventPublisher, logger logger.Logger) *Service {
	return &Service{
		ledger:    ledger,
		shift:     shift,
		settings:  settings,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// AddToCart resolves the product and addons, freezes the price and adds
// the line. Inactive or addon products cannot be rung up standalone, and
// the requested quantity plus what the cart already holds must fit
// within current stock.
func (s *Service) AddToCart(ctx context.Context, line interfaces.OrderLineCommand) error {
	if line.Quantity < 1 {
		return errors.New("quantity must be at least 1")
	}

	product, err := s.ledger.Get(line.ProductID)
	if err != nil {
		return err
	}
	if !product.Sellable() {
		return fmt.Errorf("product %s is not available: %w", product.ID, domain.ErrNotFound)
	}

	var addons []domain.AddonSelection
	for _, addonID := range line.AddonIDs {
		addon, err := s.ledger.Get(addonID)
		if err != nil {
			return err
		}
		if !addon.IsAddon || !addon.Active {
			return fmt.Errorf("addon %s is not available: %w", addon.ID, domain.ErrNotFound)
		}
		addons = append(addons, domain.AddonSelection{ID: addon.ID, Name: addon.Name, Price: addon.Price})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reservedLocked(line.ProductID)+line.Quantity > product.Stock {
		return &domain.InsufficientStockError{ProductID: line.ProductID}
	}

	s.cart = append(s.cart, domain.NewCartLine(product, line.Quantity, line.Note, addons))
	return nil
}

// UpdateCartQuantity adjusts the quantity of the first matching line by
// delta, removing the line when it reaches zero.
func (s *Service) UpdateCartQuantity(ctx context.Context, productID string, delta int) error {
	product, err := s.ledger.Get(productID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if delta > 0 && s.reservedLocked(productID)+delta > product.Stock {
		return &domain.InsufficientStockError{ProductID: productID}
	}

	for i, line := range s.cart {
		if line.ProductID != productID {
			continue
		}
		line.Quantity += delta
		if line.Quantity <= 0 {
			s.cart = append(s.cart[:i], s.cart[i+1:]...)
			return nil
		}
		s.cart[i] = line
		return nil
	}
	return fmt.Errorf("cart line %s: %w", productID, domain.ErrNotFound)
}

// RemoveFromCart drops every line for the product.
func (s *Service) RemoveFromCart(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.cart[:0]
	found := false
	for _, line := range s.cart {
		if line.ProductID == productID {
			found = true
			continue
		}
		kept = append(kept, line)
	}
	s.cart = kept

	if !found {
		return fmt.Errorf("cart line %s: %w", productID, domain.ErrNotFound)
	}
	return nil
}

// ClearCart abandons the build-up without touching stock.
func (s *Service) ClearCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
}

// Cart returns a snapshot of the lines and the running total.
func (s *Service) Cart() ([]domain.CartLine, decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := append([]domain.CartLine(nil), s.cart...)
	return lines, domain.LinesTotal(lines)
}

// FinalizeSale commits the cart: stock is deducted all-or-nothing, the
// sale joins the shift with the next queue number, and the ticket
// notification goes out post-commit. Cash sales require tender covering
// the total; change is computed from it.
func (s *Service) FinalizeSale(ctx context.Context, payment domain.PaymentMethod, tender decimal.Decimal) (domain.SaleRecord, error) {
	s.mu.Lock()
	lines := append([]domain.CartLine(nil), s.cart...)
	s.mu.Unlock()

	if len(lines) == 0 {
		return domain.SaleRecord{}, ErrEmptyCart
	}

	total := domain.LinesTotal(lines)

	changeGiven := decimal.Zero
	if payment == domain.PaymentCash {
		if tender.LessThan(total) {
			return domain.SaleRecord{}, ErrInsufficientTender
		}
		changeGiven = tender.Sub(total)
	}

	var pixPayload *string
	if payment == domain.PaymentPix {
		if settings, err := s.loadSettings(ctx); err == nil && settings.PixKey != "" {
			payload := pix.Encode(settings.PixKey, total, settings.PixMerchantName, settings.PixMerchantCity, "", "")
			pixPayload = &payload
		}
	}

	if err := s.ledger.ReserveAndDeduct(ctx, domain.StockLines(lines)); err != nil {
		return domain.SaleRecord{}, err
	}

	record := s.shift.RecordSale(ctx, lines, total, payment, changeGiven, pixPayload, s.now())

	s.mu.Lock()
	// Lines rung up while the sale was committing stay in the cart;
	// only the snapshot that was sold is cleared.
	if len(lines) <= len(s.cart) {
		s.cart = append([]domain.CartLine(nil), s.cart[len(lines):]...)
	} else {
		s.cart = nil
	}
	s.mu.Unlock()

	s.logger.Info("sale_finalized", "Counter sale committed", "", map[string]interface{}{
		"queue_number": record.QueueNumber,
		"total":        record.Total.StringFixed(2),
		"payment":      string(payment),
	})

	if s.publisher != nil {
		msg := interfaces.SaleMessage{
			QueueNumber:   record.QueueNumber,
			Total:         record.Total,
			PaymentMethod: record.PaymentMethod,
			ChangeGiven:   record.ChangeGiven,
			PixPayload:    record.PixPayload,
			Items:         record.Items,
			RecordedAt:    record.RecordedAt,
		}
		if err := s.publisher.PublishSale(ctx, msg); err != nil {
			s.logger.Error("sale_publish_failed", "Ticket notification not delivered", "",
				map[string]interface{}{"queue_number": record.QueueNumber}, err)
		}
	}

	return record, nil
}

// Sale looks a recorded sale up by queue number, for ticket re-prints.
func (s *Service) Sale(queueNumber int) (domain.SaleRecord, error) {
	return s.shift.Sale(queueNumber)
}

// VoidSale removes a recorded sale and restores its stock.
func (s *Service) VoidSale(ctx context.Context, queueNumber int) error {
	record, err := s.shift.VoidSale(ctx, queueNumber)
	if err != nil {
		return err
	}

	s.ledger.Reverse(ctx, domain.StockLines(record.Items))

	s.logger.Info("sale_voided", "Sale removed from shift", "", map[string]interface{}{
		"queue_number": queueNumber,
		"total":        record.Total.StringFixed(2),
	})
	return nil
}

// CloseShift captures the closure report, resets the register and sends
// the report to the notification feed.
func (s *Service) CloseShift(ctx context.Context) (domain.ShiftSummary, error) {
	summary := s.shift.Close(ctx, s.now())

	s.logger.Info("shift_closed", "Register session closed", "", map[string]interface{}{
		"sale_count": summary.SaleCount,
		"revenue":    summary.TotalRevenue.StringFixed(2),
	})

	if s.publisher != nil {
		if err := s.publisher.PublishShiftClosed(ctx, interfaces.ShiftClosedMessage{Summary: summary}); err != nil {
			s.logger.Error("shift_publish_failed", "Closure report not delivered", "", nil, err)
		}
	}

	return summary, nil
}

// Shift returns the open register session.
func (s *Service) Shift() domain.ShiftSession {
	return s.shift.Current()
}

// UpdateSettings saves the store settings document and broadcasts the
// change so storefront instances pick it up.
func (s *Service) UpdateSettings(ctx context.Context, settings domain.StoreSettings) error {
	if err := s.settings.SaveStore(ctx, settings); err != nil {
		return err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(settings); err == nil {
			_ = s.cache.Set(ctx, interfaces.CacheKeySettings, string(raw))
		}
	}

	if s.publisher != nil {
		event := interfaces.ChangeEvent{
			Collection: interfaces.CollectionSettings,
			DocID:      "store",
			Kind:       interfaces.ChangeUpdated,
			Timestamp:  s.now(),
		}
		if err := s.publisher.PublishChange(ctx, event); err != nil {
			s.logger.Error("change_publish_failed", "Failed to broadcast settings change", "", nil, err)
		}
	}
	return nil
}

// Settings loads the current store settings.
func (s *Service) Settings(ctx context.Context) (domain.StoreSettings, error) {
	return s.loadSettings(ctx)
}

// reservedLocked sums the quantity of a product already in the cart,
// counting addon selections against their own stock.
func (s *Service) reservedLocked(productID string) int {
	reserved := 0
	for _, line := range s.cart {
		if line.ProductID == productID {
			reserved += line.Quantity
		}
		for _, addon := range line.Addons {
			if addon.ID == productID {
				reserved += line.Quantity
			}
		}
	}
	return reserved
}

func (s *Service) loadSettings(ctx context.Context) (domain.StoreSettings, error) {
	settings, err := s.settings.LoadStore(ctx)
	if err == nil {
		return settings, nil
	}
	if s.cache != nil {
		if raw, cacheErr := s.cache.Get(ctx, interfaces.CacheKeySettings); cacheErr == nil {
			var cached domain.StoreSettings
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return cached, nil
			}
		}
	}
	return domain.StoreSettings{}, err
}
