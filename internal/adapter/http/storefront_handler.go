package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lacasadepastel/pdv/internal/adapter/logger"
	"github.com/lacasadepastel/pdv/internal/app/ledger"
	"github.com/lacasadepastel/pdv/internal/app/sync"
	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/lacasadepastel/pdv/internal/interfaces"
	"github.com/lacasadepastel/pdv/internal/pix"
	"github.com/shopspring/decimal"
)

// StorefrontHandler serves the customer channel: the public menu,
// availability, order placement and tracking.
type StorefrontHandler struct {
	orders      interfaces.OrderService
	tracking    interfaces.TrackingService
	ledger      *ledger.Service
	settings    interfaces.SettingsStore
	coordinator *sync.Coordinator
	logger      logger.Logger
}

func NewStorefrontHandler(orders interfaces.OrderService, tracking interfaces.TrackingService, ledger *ledger.Service, settings interfaces.SettingsStore, coordinator *sync.Coordinator, logger logger.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		orders:      orders,
		tracking:    tracking,
		ledger:      ledger,
		settings:    settings,
		coordinator: coordinator,
		logger:      logger,
	}
}

func (h *StorefrontHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/menu", h.Menu)
	r.Get("/availability", h.Availability)
	r.Post("/orders", h.CreateOrder)
	r.Get("/orders/{id}", h.GetOrder)
	r.Get("/orders/{id}/wait", h.WaitOrder)
	return r
}

type MenuItemResponse struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	InStock  bool            `json:"inStock"`
	LowStock bool            `json:"lowStock"`
}

func (h *StorefrontHandler) Menu(w http.ResponseWriter, r *http.Request) {
	items := []MenuItemResponse{}
	for _, p := range h.ledger.Catalog() {
		items = append(items, MenuItemResponse{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Category: p.Category,
			InStock:  p.Stock > 0,
			LowStock: p.LowStock(),
		})
	}
	respondJSON(w, http.StatusOK, items)
}

type AvailabilityResponse struct {
	Open         bool   `json:"open"`
	StoreAddress string `json:"storeAddress,omitempty"`
}

func (h *StorefrontHandler) Availability(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.LoadStore(r.Context())
	if err != nil {
		// Missing settings means an unconfigured store, open by default.
		settings = domain.StoreSettings{Mode: domain.ModeAuto}
	}
	respondJSON(w, http.StatusOK, AvailabilityResponse{
		Open:         settings.OpenAt(time.Now()),
		StoreAddress: settings.StoreAddress,
	})
}

type CreateOrderRequest struct {
	Channel         string             `json:"channel"`
	PaymentMethod   string             `json:"payment_method"`
	ContactName     string             `json:"contact_name"`
	ContactPhone    string             `json:"contact_phone"`
	DeliveryAddress *string            `json:"delivery_address,omitempty"`
	TableCode       *string            `json:"table_code,omitempty"`
	ChangeFor       *decimal.Decimal   `json:"change_for,omitempty"`
	Items           []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	ProductID string   `json:"product_id"`
	Quantity  int      `json:"quantity"`
	Note      string   `json:"note,omitempty"`
	AddonIDs  []string `json:"addon_ids,omitempty"`
}

type CreateOrderResponse struct {
	OrderID    string          `json:"order_id"`
	Status     string          `json:"status"`
	Total      decimal.Decimal `json:"total"`
	PixPayload *string         `json:"pix_payload,omitempty"`
	PixQRURL   *string         `json:"pix_qr_url,omitempty"`
}

func (h *StorefrontHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	items := make([]interfaces.OrderLineCommand, len(req.Items))
	for i, item := range req.Items {
		items[i] = interfaces.OrderLineCommand{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Note:      strings.TrimSpace(item.Note),
			AddonIDs:  item.AddonIDs,
		}
	}

	cmd := interfaces.CreateOrderCommand{
		Channel:         req.Channel,
		PaymentMethod:   req.PaymentMethod,
		Items:           items,
		ContactName:     strings.TrimSpace(req.ContactName),
		ContactPhone:    strings.TrimSpace(req.ContactPhone),
		DeliveryAddress: req.DeliveryAddress,
		TableCode:       req.TableCode,
		ChangeFor:       req.ChangeFor,
	}

	order, err := h.orders.CreateOrder(r.Context(), cmd)
	if err != nil {
		h.logger.Error("order_creation_failed", "Failed to create order", "", nil, err)
		respondDomainError(w, err)
		return
	}

	resp := CreateOrderResponse{
		OrderID:    order.ID,
		Status:     string(order.Status),
		Total:      order.Total,
		PixPayload: order.PixPayload,
	}
	if order.PixPayload != nil {
		qr := pix.QRImageURL(*order.PixPayload, 300)
		resp.PixQRURL = &qr
	}

	respondJSON(w, http.StatusCreated, resp)
}

func (h *StorefrontHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.tracking.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// waitTimeout bounds the tracking long-poll; on expiry the current
// snapshot is returned so clients can loop.
const waitTimeout = 25 * time.Second

// WaitOrder long-polls for the order's next change. The customer
// tracking page loops on this instead of hammering GetOrder.
func (h *StorefrontHandler) WaitOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	updates, cancel := h.coordinator.SubscribeOrder(id)
	defer cancel()

	select {
	case order := <-updates:
		respondJSON(w, http.StatusOK, order)
	case <-time.After(waitTimeout):
		h.GetOrder(w, r)
	case <-r.Context().Done():
	}
}
