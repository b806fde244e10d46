package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"capypay/internal/commission"
	"capypay/internal/model"
)

// Reward tuning for cafeteria orders. The featured multiplier applies
// to the whole base+volume sum, not per item.
var (
	xpRate           = decimal.NewFromFloat(0.10)
	pointsVolumeRate = decimal.NewFromFloat(0.20)
)

const basePoints = 10

const statsCacheKey = "cafeteria:stats"

type OrderService interface {
	GetMenu(ctx context.Context, category string) (*model.Menu, error)
	PlaceOrder(ctx context.Context, req model.PlaceOrderRequest) (*model.PlaceOrderResult, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetUserOrders(ctx context.Context, accountID uuid.UUID) ([]model.Order, error)
	CompleteOrder(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (*model.CafeteriaStats, error)
}

// SettlementEngine validates carts against live menu data and settles
// orders through the store's atomic procedure. Client-supplied prices
// are never read; the request carries only ids and quantities.
type SettlementEngine struct {
	menu   MenuStore
	orders OrderStore
	cache  ResponseCache
}

func NewSettlementEngine(menu MenuStore, orders OrderStore, cache ResponseCache) *SettlementEngine {
	return &SettlementEngine{menu: menu, orders: orders, cache: cache}
}

// GetMenu returns the available items split into the featured plato
// del día and the carousel. With no featured item the first available
// one takes the slot.
func (e *SettlementEngine) GetMenu(ctx context.Context, category string) (*model.Menu, error) {
	items, err := e.menu.ListAvailable(ctx, category)
	if err != nil {
		return nil, err
	}
	menu := &model.Menu{Items: []model.MenuItem{}}
	if len(items) == 0 {
		return menu, nil
	}

	featured := items[0]
	for _, it := range items {
		if it.Featured {
			featured = it
			break
		}
	}
	menu.PlatoDia = &featured
	for _, it := range items {
		if it.ID != featured.ID {
			menu.Items = append(menu.Items, it)
		}
	}
	if len(menu.Items) == 0 {
		menu.Items = append(menu.Items, featured)
	}
	return menu, nil
}

// PlaceOrder computes the total from server-side prices plus the
// service fee and executes the settlement as one atomic store
// operation: debit, stock decrements and order rows together or not
// at all.
func (e *SettlementEngine) PlaceOrder(ctx context.Context, req model.PlaceOrderRequest) (*model.PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, model.ErrEmptyOrder
	}
	ids := make([]uuid.UUID, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, model.ErrInvalidAmount
		}
		ids = append(ids, item.MenuItemID)
	}

	menuItems, err := e.menu.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]model.MenuItem, len(menuItems))
	for _, m := range menuItems {
		byID[m.ID] = m
	}

	subtotal := decimal.Zero
	anyFeatured := false
	lines := make([]model.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		product, ok := byID[item.MenuItemID]
		if !ok || !product.Available {
			return nil, &model.ItemNotFoundError{ItemID: item.MenuItemID}
		}
		if product.Stock < item.Quantity {
			return nil, &model.StockError{ItemName: product.Name, Requested: item.Quantity, Stock: product.Stock}
		}
		if product.Featured {
			anyFeatured = true
		}
		subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		lines = append(lines, model.OrderLine{
			MenuItemID:  product.ID,
			Quantity:    item.Quantity,
			PriceAtTime: product.Price,
		})
	}

	total := subtotal.Add(commission.OrderFee(subtotal))
	xp := total.Mul(xpRate).Ceil().IntPart()
	points := basePoints + total.Mul(pointsVolumeRate).Ceil().IntPart()
	if anyFeatured {
		points *= 2
	}

	orderID, newBalance, err := e.orders.Settle(ctx, model.Settlement{
		AccountID: req.AccountID,
		Lines:     lines,
		Total:     total,
		XP:        xp,
		Points:    points,
	})
	if err != nil {
		if isBusinessError(err) {
			return nil, err
		}
		return nil, &model.TransactionFailedError{Err: err}
	}

	return &model.PlaceOrderResult{
		OrderID:      orderID,
		TotalCharged: total,
		NewBalance:   newBalance,
		XPGained:     xp,
		PointsGained: points,
	}, nil
}

// isBusinessError separates pre-validated business failures from
// store-side failures of the atomic settlement.
func isBusinessError(err error) bool {
	var insufficient *model.InsufficientFundsError
	var stock *model.StockError
	var notFound *model.ItemNotFoundError
	return errors.Is(err, model.ErrAccountNotFound) ||
		errors.As(err, &insufficient) ||
		errors.As(err, &stock) ||
		errors.As(err, &notFound)
}

func (e *SettlementEngine) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return e.orders.GetOrder(ctx, id)
}

func (e *SettlementEngine) GetUserOrders(ctx context.Context, accountID uuid.UUID) ([]model.Order, error) {
	return e.orders.ListByAccount(ctx, accountID)
}

func (e *SettlementEngine) CompleteOrder(ctx context.Context, id uuid.UUID) error {
	return e.orders.Complete(ctx, id)
}

// Stats derives an advisory occupancy estimate from the preparing-order
// count: 5% occupancy and 3 minutes of wait per order. Cached briefly;
// degrades to an offline payload when the store is unreachable.
func (e *SettlementEngine) Stats(ctx context.Context) (*model.CafeteriaStats, error) {
	var cached model.CafeteriaStats
	if err := e.cache.GetJSON(ctx, statsCacheKey, &cached); err == nil {
		return &cached, nil
	}

	active, err := e.orders.CountByStatus(ctx, model.OrderPreparing)
	if err != nil {
		slog.Warn("cafeteria stats unavailable, serving fallback", "error", err)
		return &model.CafeteriaStats{
			Occupancy: model.OccupancyInfo{Level: "Baja", Percent: 5, Detail: "Sistema Offline"},
			WaitTime:  "5 min",
			NextTurn:  "A-001",
		}, nil
	}

	percent := active * 5
	if percent > 100 {
		percent = 100
	}
	level := "Baja"
	switch {
	case percent > 80:
		level = "Alta"
	case percent > 40:
		level = "Media"
	}
	wait := "Sin espera"
	if active > 0 {
		wait = fmt.Sprintf("%d min", active*3)
	}

	stats := &model.CafeteriaStats{
		Occupancy: model.OccupancyInfo{
			Level:   level,
			Percent: percent,
			Detail:  fmt.Sprintf("%d pedidos en cola", active),
		},
		WaitTime: wait,
		NextTurn: "Ticket #--",
	}
	if err := e.cache.SetJSON(ctx, statsCacheKey, stats, 30*time.Second); err != nil {
		slog.Warn("stats cache write failed", "error", err)
	}
	return stats, nil
}
