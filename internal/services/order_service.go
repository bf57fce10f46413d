package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ocha/internal/apperr"
	"ocha/internal/events"
	"ocha/internal/idempotency"
	"ocha/internal/models"
	"ocha/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one (product, size, quantity) tuple of a new order.
type CartLine struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderInput is the payload of a new order.
type CreateOrderInput struct {
	StoreID string     `json:"store_id"`
	Pickup  *time.Time `json:"pickup"`
	Items   []CartLine `json:"items"`
}

// OrderPage is one page of a user's orders.
type OrderPage struct {
	Page        int            `json:"page"`
	TotalPages  int            `json:"totalPages"`
	TotalOrders int64          `json:"totalOrders"`
	Orders      []models.Order `json:"orders"`
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	storeRepo   repositories.StoreRepository
	sink        events.Sink
	transitions models.TransitionTable
	idem        idempotency.Store
}

// NewOrderService creates a new OrderService. A nil sink discards events and
// a nil transition table means models.ForwardTransitions.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	storeRepo repositories.StoreRepository,
	sink events.Sink,
	transitions models.TransitionTable,
) *OrderService {
	if sink == nil {
		sink = events.Nop{}
	}
	if transitions == nil {
		transitions = models.ForwardTransitions
	}
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		storeRepo:   storeRepo,
		sink:        sink,
		transitions: transitions,
	}
}

// WithIdempotency enables Idempotency-Key handling on CreateOrder.
func (s *OrderService) WithIdempotency(store idempotency.Store) *OrderService {
	s.idem = store
	return s
}

// CreateOrder validates the cart, prices every line from the current
// products and stores the order with its item snapshots in one transaction.
// When key is set and was already used by the same user, the first order
// is returned with replayed=true.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, in CreateOrderInput, key string) (order *models.Order, replayed bool, err error) {
	if key != "" && s.idem != nil {
		existing, reserved, rErr := s.idem.Reserve(ctx, userID, key)
		switch {
		case errors.Is(rErr, idempotency.ErrInProgress):
			return nil, false, apperr.Conflict(apperr.CodeDuplicate, "%s", rErr.Error())
		case rErr != nil:
			log.Printf("Idempotency store unavailable, creating order without it: %v", rErr)
		case !reserved:
			o, gErr := s.orderRepo.GetByID(ctx, existing)
			if gErr == nil {
				return o, true, nil
			}
			if !apperr.Is(gErr, apperr.CodeOrderNotFound) {
				return nil, false, gErr
			}
			// The remembered order was deleted since; the key is reused.
			reserved = true
		}
		if reserved {
			defer func() {
				if err != nil {
					if relErr := s.idem.Release(ctx, userID, key); relErr != nil {
						log.Printf("Failed to release idempotency key %s: %v", key, relErr)
					}
					return
				}
				if cErr := s.idem.Complete(ctx, userID, key, order.ID); cErr != nil {
					log.Printf("Failed to record idempotency key %s: %v", key, cErr)
				}
			}()
		}
	}

	order, err = s.createOrder(ctx, userID, in)
	return order, false, err
}

func (s *OrderService) createOrder(ctx context.Context, userID string, in CreateOrderInput) (*models.Order, error) {
	switch {
	case in.StoreID == "":
		return nil, apperr.MissingField("store_id")
	case in.Pickup == nil || in.Pickup.IsZero():
		return nil, apperr.MissingField("pickup")
	case len(in.Items) == 0:
		return nil, apperr.MissingField("items")
	}

	exists, err := s.storeRepo.Exists(ctx, in.StoreID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.NotFound(apperr.CodeStoreNotFound, "store %s not found", in.StoreID)
	}

	ids := make([]string, 0, len(in.Items))
	for i, line := range in.Items {
		if line.ProductID == "" || line.Size == "" || line.Quantity == 0 {
			e := apperr.Validation(apperr.CodeInvalidCartLine, "item %d requires product_id, size and quantity", i)
			e.Field = fmt.Sprintf("items[%d]", i)
			return nil, e
		}
		if line.Quantity < 1 {
			e := apperr.Validation(apperr.CodeInvalidQuantity, "quantity must be a positive integer, got %d", line.Quantity)
			e.Field = fmt.Sprintf("items[%d]", i)
			return nil, e
		}
		if !models.Size(line.Size).Valid() {
			e := apperr.Validation(apperr.CodeInvalidSize, "size %q is not one of S, M, L", line.Size)
			e.Field = fmt.Sprintf("items[%d]", i)
			return nil, e
		}
		ids = append(ids, line.ProductID)
	}

	products, err := s.productRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, line := range in.Items {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, apperr.NotFound(apperr.CodeProductNotFound, "product %s not found", line.ProductID)
		}
		size := models.Size(line.Size)
		price, err := PriceLine(product, size, line.Quantity)
		if err != nil {
			return nil, err
		}
		items = append(items, models.OrderItem{
			ProductID:           product.ID,
			ProductNameSnapshot: product.Name,
			Size:                size,
			Quantity:            line.Quantity,
			BasePriceSnapshot:   price.Base,
			ExtraSnapshot:       price.Extra,
			FinalPrice:          price.Final,
		})
		total = total.Add(price.Final)
	}

	order := &models.Order{
		UserID:     userID,
		StoreID:    in.StoreID,
		Status:     models.StatusPreparing,
		Pickup:     in.Pickup.UTC(),
		TotalPrice: total.Round(2),
		Items:      items,
	}
	if err := s.orderRepo.CreateWithItems(ctx, order); err != nil {
		return nil, err
	}

	created, err := s.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeOrderCreated, created.ID, created)
	return created, nil
}

// GetOwnOrders lists the user's orders, newest first.
func (s *OrderService) GetOwnOrders(ctx context.Context, userID string, status, storeID string, page repositories.Page) (*OrderPage, error) {
	filter := repositories.OrderFilter{StoreID: storeID}
	if status != "" {
		st, ok := models.ParseStatus(status)
		if !ok {
			return nil, invalidStatus(status)
		}
		filter.Status = st
	}

	orders, total, err := s.orderRepo.ListByUser(ctx, userID, filter, page)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return &OrderPage{
		Page:        page.Number,
		TotalPages:  repositories.TotalPages(total, page.Limit),
		TotalOrders: total,
		Orders:      orders,
	}, nil
}

// GetOrderByID returns the order if the actor may see it.
func (s *OrderService) GetOrderByID(ctx context.Context, actor models.Actor, id string) (*models.Order, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order) {
		return nil, apperr.Forbidden("order %s belongs to another user", id)
	}
	return order, nil
}

// SetStatus moves the order to newStatus if the transition table allows it.
func (s *OrderService) SetStatus(ctx context.Context, id, newStatus string) (*models.Order, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	to, ok := models.ParseStatus(newStatus)
	if !ok {
		return nil, invalidStatus(newStatus)
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if !s.transitions.Allows(from, to) {
		return nil, apperr.Conflict(apperr.CodeInvalidTransition, "cannot move order from %s to %s", from, to)
	}
	if from == to {
		return order, nil
	}

	if err := s.orderRepo.UpdateStatus(ctx, id, from, to); err != nil {
		return nil, err
	}
	updated, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeOrderStatusChanged, id, map[string]any{
		"order_id": id,
		"user_id":  updated.UserID,
		"from":     from,
		"to":       to,
	})
	return updated, nil
}

// DeleteOrder removes the order and its items.
func (s *OrderService) DeleteOrder(ctx context.Context, actor models.Actor, id string) error {
	order, err := s.GetOrderByID(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.TypeOrderDeleted, id, map[string]any{
		"order_id": id,
		"user_id":  order.UserID,
	})
	return nil
}

// ListItems returns the order's items with their current products.
func (s *OrderService) ListItems(ctx context.Context, actor models.Actor, id string) ([]models.OrderItem, error) {
	if _, err := s.GetOrderByID(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.orderRepo.ListItems(ctx, id)
}

// OrderStatsByUser returns one rollup row per user with at least one order.
func (s *OrderService) OrderStatsByUser(ctx context.Context) ([]models.UserOrderStats, error) {
	stats, err := s.orderRepo.StatsByUser(ctx)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = []models.UserOrderStats{}
	}
	return stats, nil
}

func (s *OrderService) publish(ctx context.Context, typ, subject string, payload any) {
	if err := s.sink.Publish(ctx, events.Event{Type: typ, Subject: subject, Payload: payload}); err != nil {
		log.Printf("Warning: failed to publish %s event for %s: %v", typ, subject, err)
	}
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation(apperr.CodeInvalidID, "%q is not a valid id", id)
	}
	return nil
}

func invalidStatus(value string) error {
	e := apperr.Validation(apperr.CodeInvalidStatus, "invalid status %q: use preparing, ready or collected", value)
	e.Field = "status"
	return e
}
