package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lacasadepastel/pdv/internal/adapter/logger"
	"github.com/lacasadepastel/pdv/internal/app/ledger"
	"github.com/lacasadepastel/pdv/internal/domain"
	"github.com/lacasadepastel/pdv/internal/interfaces"
	"github.com/lacasadepastel/pdv/internal/pix"
)

// Service handles the customer order lifecycle: availability gating,
// price freezing, creation and status transitions. Stock is deducted
// when an order reaches approved, never while it is pending.
type Service struct {
	ledger    *ledger.Service
	orders    interfaces.OrderStore
	settings  interfaces.SettingsStore
	cache     interfaces.Cache
	publisher interfaces.EventPublisher
	logger    logger.Logger
	now       func() time.Time
}

func NewService(ledger *ledger.Service, orders interfaces.OrderStore, settings interfaces.SettingsStore, cache interfaces.Cache, publisher interfaces.EventPublisher, logger logger.Logger) *Service {
	return &Service{
		ledger:    ledger,
		orders:    orders,
		settings:  settings,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateOrder validates availability, freezes prices from the current
// catalog and stores the new order. With auto-approve on, the order is
// born approved and its stock deducted immediately.
func (s *Service) CreateOrder(ctx context.Context, cmd interfaces.CreateOrderCommand) (*domain.Order, error) {
	settings := s.loadSettings(ctx)

	if !settings.OpenAt(s.now()) {
		return nil, domain.ErrStoreClosed
	}

	items, err := s.freezeLines(cmd.Items)
	if err != nil {
		return nil, err
	}

	order, err := domain.NewOrder(
		domain.Channel(cmd.Channel),
		domain.PaymentMethod(cmd.PaymentMethod),
		items,
		cmd.ContactName,
		cmd.ContactPhone,
		cmd.DeliveryAddress,
		cmd.TableCode,
		cmd.ChangeFor,
		settings.AutoApprove,
	)
	if err != nil {
		s.logger.Error("order_validation_failed", "Order rejected", "", nil, err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	order.ID = uuid.NewString()

	if order.PaymentMethod == domain.PaymentPix && settings.PixKey != "" {
		payload := pix.Encode(settings.PixKey, order.Total, settings.PixMerchantName, settings.PixMerchantCity, order.ID, "")
		order.AttachPixPayload(payload)
	}

	if order.Status == domain.StatusApproved {
		if err := s.ledger.ReserveAndDeduct(ctx, domain.StockLines(order.Items)); err != nil {
			return nil, err
		}
	}

	if _, err := s.orders.Create(ctx, order); err != nil {
		if order.Status == domain.StatusApproved {
			s.ledger.Reverse(ctx, domain.StockLines(order.Items))
		}
		s.logger.Error("order_create_failed", "Failed to store order", "", nil, err)
		return nil, err
	}

	s.logger.Debug("order_created", "Order stored", "", map[string]interface{}{
		"order_id": order.ID,
		"channel":  string(order.Channel),
		"status":   string(order.Status),
	})

	s.publishChange(ctx, order.ID, interfaces.ChangeCreated)
	return order, nil
}

// TransitionStatus advances an order along the lifecycle. Approving a
// pending order deducts its stock; a shortfall rejects the transition
// and the order stays pending.
func (s *Service) TransitionStatus(ctx context.Context, orderID string, status domain.Status) (*domain.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	wasPending := order.Status == domain.StatusPending

	if err := order.TransitionTo(status); err != nil {
		return nil, err
	}

	if wasPending && status == domain.StatusApproved {
		if err := s.ledger.ReserveAndDeduct(ctx, domain.StockLines(order.Items)); err != nil {
			return nil, err
		}
	}

	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		if wasPending && status == domain.StatusApproved {
			s.ledger.Reverse(ctx, domain.StockLines(order.Items))
		}
		return nil, err
	}

	s.logger.Debug("order_transitioned", "Order status updated", "", map[string]interface{}{
		"order_id": orderID,
		"status":   string(status),
	})

	s.publishChange(ctx, orderID, interfaces.ChangeUpdated)
	return &order, nil
}

// SendMessage attaches a staff note to the order without changing state.
func (s *Service) SendMessage(ctx context.Context, orderID, message string) error {
	if err := s.orders.SetMessage(ctx, orderID, message); err != nil {
		return err
	}
	s.publishChange(ctx, orderID, interfaces.ChangeUpdated)
	return nil
}

// freezeLines resolves command lines against the catalog and freezes
// prices. Inactive or addon products cannot be ordered standalone.
func (s *Service) freezeLines(lines []interfaces.OrderLineCommand) ([]domain.CartLine, error) {
	var items []domain.CartLine
	for _, line := range lines {
		product, err := s.ledger.Get(line.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.Sellable() {
			return nil, fmt.Errorf("product %s is not available: %w", product.ID, domain.ErrNotFound)
		}

		var addons []domain.AddonSelection
		for _, addonID := range line.AddonIDs {
			addon, err := s.ledger.Get(addonID)
			if err != nil {
				return nil, err
			}
			if !addon.IsAddon || !addon.Active {
				return nil, fmt.Errorf("addon %s is not available: %w", addon.ID, domain.ErrNotFound)
			}
			addons = append(addons, domain.AddonSelection{ID: addon.ID, Name: addon.Name, Price: addon.Price})
		}

		items = append(items, domain.NewCartLine(product, line.Quantity, line.Note, addons))
	}
	return items, nil
}

// loadSettings reads the store settings, falling back to the cached copy
// when the remote store is unreachable. With neither available the store
// defaults to open with manual approval.
func (s *Service) loadSettings(ctx context.Context) domain.StoreSettings {
	settings, err := s.settings.LoadStore(ctx)
	if err == nil {
		s.cacheSettings(ctx, settings)
		return settings
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("settings_load_failed", "Falling back to cached settings", "", nil, err)
		if cached, cacheErr := s.cachedSettings(ctx); cacheErr == nil {
			return cached
		}
	}
	return domain.StoreSettings{Mode: domain.ModeAuto}
}

func (s *Service) cacheSettings(ctx context.Context, settings domain.StoreSettings) {
	if s.cache == nil {
		return
	}
	if raw, err := json.Marshal(settings); err == nil {
		_ = s.cache.Set(ctx, interfaces.CacheKeySettings, string(raw))
	}
}

func (s *Service) cachedSettings(ctx context.Context) (domain.StoreSettings, error) {
	if s.cache == nil {
		return domain.StoreSettings{}, domain.ErrNotFound
	}
	raw, err := s.cache.Get(ctx, interfaces.CacheKeySettings)
	if err != nil {
		return domain.StoreSettings{}, err
	}
	var settings domain.StoreSettings
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return domain.StoreSettings{}, err
	}
	return settings, nil
}

func (s *Service) publishChange(ctx context.Context, orderID, kind string) {
	if s.publisher == nil {
		return
	}
	event := interfaces.ChangeEvent{
		Collection: interfaces.CollectionOrders,
		DocID:      orderID,
		Kind:       kind,
		Timestamp:  s.now(),
	}
	if err := s.publisher.PublishChange(ctx, event); err != nil {
		s.logger.Error("change_publish_failed", "Failed to broadcast order change", "",
			map[string]interface{}{"order_id": orderID}, err)
	}
}
