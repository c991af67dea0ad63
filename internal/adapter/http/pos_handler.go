package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lacasadepastel/pdv/internal/adapter/logger"
	"github.com/lacasadepastel/pdv/internal/app/ledger"
	"github.com/lacasadepastel/pdv/internal/app/sync"
	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/lacasadepastel/pdv/internal/interfaces"
	"github.com/shopspring/decimal"
)

// POSHandler serves the staff panel: product management, the counter
// register, shift control and the order workflow.
type POSHandler struct {
	pos         interfaces.POSService
	orders      interfaces.OrderService
	ledger      *ledger.Service
	coordinator *sync.Coordinator
	logger      logger.Logger
}

func NewPOSHandler(pos interfaces.POSService, orders interfaces.OrderService, ledger *ledger.Service, coordinator *sync.Coordinator, logger logger.Logger) *POSHandler {
	return &POSHandler{
		pos:         pos,
		orders:      orders,
		ledger:      ledger,
		coordinator: coordinator,
		logger:      logger,
	}
}

func (h *POSHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/products", h.ListProducts)
	r.Post("/products", h.SaveProduct)
	r.Put("/products/{id}", h.SaveProduct)
	r.Delete("/products/{id}", h.DeleteProduct)
	r.Put("/products/{id}/stock", h.SetStock)
	r.Post("/products/active", h.SetActive)

	r.Get("/cart", h.GetCart)
	r.Post("/cart/items", h.AddToCart)
	r.Patch("/cart/items/{productId}", h.UpdateCartQuantity)
	r.Delete("/cart/items/{productId}", h.RemoveFromCart)
	r.Delete("/cart", h.ClearCart)

	r.Post("/sales", h.FinalizeSale)
	r.Get("/sales/{queueNumber}", h.GetSale)
	r.Delete("/sales/{queueNumber}", h.VoidSale)

	r.Get("/shift", h.GetShift)
	r.Post("/shift/close", h.CloseShift)

	r.Get("/orders/active", h.ActiveOrders)
	r.Post("/orders/{id}/status", h.TransitionStatus)
	r.Post("/orders/{id}/message", h.SendMessage)

	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)

	return r
}

func (h *POSHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.ledger.Products())
}

func (h *POSHandler) SaveProduct(w http.ResponseWriter, r *http.Request) {
	var product domain.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		product.ID = id
	}
	if product.Name == "" {
		respondError(w, http.StatusBadRequest, "Product name is required")
		return
	}
	if product.Price.IsNegative() || product.Stock < 0 {
		respondError(w, http.StatusBadRequest, "Price and stock must not be negative")
		return
	}

	saved, err := h.ledger.SaveProduct(r.Context(), product)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

func (h *POSHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type SetStockRequest struct {
	Stock int `json:"stock"`
}

func (h *POSHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	var req SetStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Stock < 0 {
		respondError(w, http.StatusBadRequest, "Stock must not be negative")
		return
	}
	if err := h.ledger.SetStock(r.Context(), chi.URLParam(r, "id"), req.Stock); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type SetActiveRequest struct {
	IDs    []string `json:"ids"`
	Active bool     `json:"active"`
}

func (h *POSHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "At least one product id is required")
		return
	}
	if err := h.ledger.SetActive(r.Context(), req.IDs, req.Active); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type CartResponse struct {
	Items []domain.CartLine `json:"items"`
	Total decimal.Decimal   `json:"total"`
}

func (h *POSHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	items, total := h.pos.Cart()
	if items == nil {
		items = []domain.CartLine{}
	}
	respondJSON(w, http.StatusOK, CartResponse{Items: items, Total: total})
}

func (h *POSHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req OrderItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	line := interfaces.OrderLineCommand{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Note:      req.Note,
		AddonIDs:  req.AddonIDs,
	}
	if err := h.pos.AddToCart(r.Context(), line); err != nil {
		respondDomainError(w, err)
		return
	}
	h.GetCart(w, r)
}

type UpdateQuantityRequest struct {
	Delta int `json:"delta"`
}

func (h *POSHandler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.pos.UpdateCartQuantity(r.Context(), chi.URLParam(r, "productId"), req.Delta); err != nil {
		respondDomainError(w, err)
		return
	}
	h.GetCart(w, r)
}

func (h *POSHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	if err := h.pos.RemoveFromCart(r.Context(), chi.URLParam(r, "productId")); err != nil {
		respondDomainError(w, err)
		return
	}
	h.GetCart(w, r)
}

func (h *POSHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.pos.ClearCart(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type FinalizeSaleRequest struct {
	PaymentMethod string          `json:"payment_method"`
	Tender        decimal.Decimal `json:"tender"`
}

func (h *POSHandler) FinalizeSale(w http.ResponseWriter, r *http.Request) {
	var req FinalizeSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	payment := domain.PaymentMethod(req.PaymentMethod)
	switch payment {
	case domain.PaymentCash, domain.PaymentPix, domain.PaymentOther:
	default:
		respondError(w, http.StatusBadRequest, "Invalid payment method")
		return
	}

	record, err := h.pos.FinalizeSale(r.Context(), payment, req.Tender)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, record)
}

func (h *POSHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	queueNumber, err := strconv.Atoi(chi.URLParam(r, "queueNumber"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid queue number")
		return
	}
	record, err := h.pos.Sale(queueNumber)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

func (h *POSHandler) VoidSale(w http.ResponseWriter, r *http.Request) {
	queueNumber, err := strconv.Atoi(chi.URLParam(r, "queueNumber"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid queue number")
		return
	}
	if err := h.pos.VoidSale(r.Context(), queueNumber); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *POSHandler) GetShift(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.pos.Shift())
}

func (h *POSHandler) CloseShift(w http.ResponseWriter, r *http.Request) {
	summary, err := h.pos.CloseShift(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *POSHandler) ActiveOrders(w http.ResponseWriter, r *http.Request) {
	orders, cancel := h.coordinator.SubscribeActiveOrders()
	defer cancel()

	select {
	case snapshot := <-orders:
		if snapshot == nil {
			snapshot = []domain.Order{}
		}
		respondJSON(w, http.StatusOK, snapshot)
	case <-r.Context().Done():
		respondError(w, http.StatusServiceUnavailable, "Active order view not ready")
	}
}

type TransitionRequest struct {
	Status string `json:"status"`
}

func (h *POSHandler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status := domain.Status(req.Status)
	if !domain.ValidStatus(status) {
		respondError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	order, err := h.orders.TransitionStatus(r.Context(), chi.URLParam(r, "id"), status)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

type MessageRequest struct {
	Message string `json:"message"`
}

func (h *POSHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "Message is required")
		return
	}
	if err := h.orders.SendMessage(r.Context(), chi.URLParam(r, "id"), req.Message); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *POSHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.pos.Settings(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

func (h *POSHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.StoreSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch settings.Mode {
	case domain.ModeForcedOpen, domain.ModeForcedClosed, domain.ModeAuto:
	default:
		respondError(w, http.StatusBadRequest, "Invalid store mode")
		return
	}

	if err := h.pos.UpdateSettings(r.Context(), settings); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}
