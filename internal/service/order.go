package service

import (
	"context"
	"dinedash-backend/internal/apperr"
	"dinedash-backend/internal/cache"
	"dinedash-backend/internal/dto"
	"dinedash-backend/internal/event"
	"dinedash-backend/internal/model"
	"dinedash-backend/internal/repository"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderService interface {
	// Create persists a pending order and its items inside tx.
	Create(ctx context.Context, tx *gorm.DB, req *dto.CreateOrderRequest) (*model.Order, error)
	PlaceOrder(ctx context.Context, req *dto.CreateOrderRequest) (*model.Order, error)
	GetByTrackingCode(ctx context.Context, trackingCode string) (*model.Order, error)
	GetByID(ctx context.Context, orderID uint) (*model.Order, error)
	List(ctx context.Context, filter repository.OrderFilter) ([]*model.Order, error)
	TransitionStatus(ctx context.Context, orderID uint, target model.OrderStatus) (*model.Order, error)
}

type orderServiceImpl struct {
	db          *gorm.DB
	orderRepo   repository.OrderRepository
	catalogRepo repository.CatalogRepository
	cache       cache.TrackingCache
	publisher   event.Publisher
	log         zerolog.Logger
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	catalogRepo repository.CatalogRepository,
	trackingCache cache.TrackingCache,
	publisher event.Publisher,
	log zerolog.Logger,
) OrderService {
	return &orderServiceImpl{
		db:          db,
		orderRepo:   orderRepo,
		catalogRepo: catalogRepo,
		cache:       trackingCache,
		publisher:   publisher,
		log:         log.With().Str("component", "order_service").Logger(),
	}
}

func (s *orderServiceImpl) Create(ctx context.Context, tx *gorm.DB, req *dto.CreateOrderRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validation(map[string]string{"items": "order must contain at least one item"})
	}
	orderType := model.OrderType(req.OrderType)
	if !orderType.Valid() {
		return nil, apperr.Validation(map[string]string{"order_type": fmt.Sprintf("unknown order type %q", req.OrderType)})
	}

	deliveryFee := decimal.Zero
	if req.DeliveryFee != nil {
		deliveryFee = *req.DeliveryFee
	}
	if deliveryFee.IsNegative() {
		return nil, apperr.Validation(map[string]string{"delivery_fee": "must not be negative"})
	}

	itemIDs := make([]uint, 0, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, apperr.Validation(map[string]string{
				fmt.Sprintf("items[%d].quantity", i): "must be at least 1",
			})
		}
		itemIDs = append(itemIDs, item.MenuItemID)
	}

	menuItems, err := s.catalogRepo.FindMany(ctx, tx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("get menu items: %w", err)
	}
	catalog := make(map[uint]*model.MenuItem, len(menuItems))
	for _, m := range menuItems {
		catalog[m.ID] = m
	}

	total := decimal.Zero
	orderItems := make([]model.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		menuItem, ok := catalog[item.MenuItemID]
		if !ok {
			return nil, apperr.New(apperr.KindItemUnavailable, "menu item %d does not exist", item.MenuItemID)
		}
		if !menuItem.IsAvailable {
			return nil, apperr.New(apperr.KindItemUnavailable, "menu item %d (%s) is not available", menuItem.ID, menuItem.Name)
		}

		menuItemID := menuItem.ID
		orderItem := model.OrderItem{
			MenuItemID: &menuItemID,
			ItemName:   menuItem.Name,
			UnitPrice:  menuItem.Price,
			Quantity:   item.Quantity,
		}
		total = total.Add(orderItem.LineTotal())
		orderItems = append(orderItems, orderItem)
	}

	trackingCode, err := s.uniqueTrackingCode(ctx, tx)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		TrackingCode:         trackingCode,
		OrderType:            orderType,
		Status:               model.OrderPending,
		CustomerName:         req.CustomerName,
		CustomerEmail:        req.CustomerEmail,
		CustomerPhone:        req.CustomerPhone,
		TotalAmount:          total.Add(deliveryFee),
		DeliveryFee:          deliveryFee,
		DeliveryAddress:      req.DeliveryAddress,
		DeliveryInstructions: req.DeliveryInstructions,
		PickupTime:           req.PickupTime,
		Items:                orderItems,
	}

	if err := s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("store order in db: %w", err)
	}

	return order, nil
}

func (s *orderServiceImpl) uniqueTrackingCode(ctx context.Context, tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < maxTrackingCodeAttempts; attempt++ {
		code := newTrackingCode()
		exists, err := s.orderRepo.TrackingCodeExists(ctx, tx, code)
		if err != nil {
			return "", fmt.Errorf("check tracking code: %w", err)
		}
		if !exists {
			return code, nil
		}
		s.log.Warn().Str("tracking_code", code).Int("attempt", attempt+1).Msg("tracking code collision")
	}
	return "", apperr.New(apperr.KindStorageFailure, "could not allocate a tracking code after %d attempts", maxTrackingCodeAttempts)
}

func (s *orderServiceImpl) PlaceOrder(ctx context.Context, req *dto.CreateOrderRequest) (*model.Order, error) {
	var order *model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.Create(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Uint("order_id", order.ID).Str("tracking_code", order.TrackingCode).
		Str("total", order.TotalAmount.StringFixed(2)).Msg("order placed")
	s.publisher.Publish(ctx, orderEvent(event.OrderCreated, order, ""))

	return order, nil
}

func (s *orderServiceImpl) GetByTrackingCode(ctx context.Context, trackingCode string) (*model.Order, error) {
	if order, ok := s.cache.Get(ctx, trackingCode); ok {
		return order, nil
	}

	order, err := s.orderRepo.FindByTrackingCode(ctx, trackingCode)
	if err != nil {
		return nil, notFoundOr(err, "order %s not found", trackingCode)
	}

	s.cache.Set(ctx, order)
	return order, nil
}

func (s *orderServiceImpl) GetByID(ctx context.Context, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, nil, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order %d not found", orderID)
	}
	return order, nil
}

func (s *orderServiceImpl) List(ctx context.Context, filter repository.OrderFilter) ([]*model.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Validation(map[string]string{"status": fmt.Sprintf("unknown order status %q", filter.Status)})
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// TransitionStatus is the single place order status changes are checked
// against the state machine.
func (s *orderServiceImpl) TransitionStatus(ctx context.Context, orderID uint, target model.OrderStatus) (*model.Order, error) {
	if !target.Valid() {
		return nil, apperr.Validation(map[string]string{"status": fmt.Sprintf("unknown order status %q", target)})
	}

	var from model.OrderStatus
	var order *model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.orderRepo.FindByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			return notFoundOr(err, "order %d not found", orderID)
		}
		from = current.Status

		if !from.CanTransitionTo(target) {
			return apperr.New(apperr.KindIllegalTransition, "cannot move order %d from %s to %s", orderID, from, target)
		}

		ok, err := s.orderRepo.CompareAndSetStatus(ctx, tx, orderID, from, target)
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if !ok {
			return apperr.New(apperr.KindIllegalTransition, "order %d left %s before it could move to %s", orderID, from, target)
		}

		order, err = s.orderRepo.FindByID(ctx, tx, orderID)
		if err != nil {
			return fmt.Errorf("reload order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, order.TrackingCode)
	s.log.Info().Uint("order_id", orderID).Str("from", string(from)).Str("to", string(target)).Msg("order status changed")
	s.publisher.Publish(ctx, orderEvent(event.OrderStatusChanged, order, from))

	return order, nil
}
