package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order lifecycle states.
const (
	OrderPreparing = "preparing"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
)

type MenuItem struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Available   bool            `json:"is_available"`
	Featured    bool            `json:"is_featured"`
	ImageURL    string          `json:"image_url"`
	Sales       int64           `json:"sales"`
}

// Menu splits available items into the featured "plato del día" and the
// carousel of remaining items.
type Menu struct {
	PlatoDia *MenuItem  `json:"platoDia"`
	Items    []MenuItem `json:"items"`
}

// OrderLine captures the unit price at order time; it is never re-read
// from the menu afterwards.
type OrderLine struct {
	MenuItemID  uuid.UUID       `json:"menu_item_id"`
	Quantity    int             `json:"quantity"`
	PriceAtTime decimal.Decimal `json:"price_at_time"`
	Name        string          `json:"name,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
}

type Order struct {
	ID          uuid.UUID       `json:"id"`
	AccountID   uuid.UUID       `json:"account_id"`
	Total       decimal.Decimal `json:"total"`
	Status      string          `json:"status"`
	Lines       []OrderLine     `json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// PlaceOrderRequest carries only item ids and quantities; prices are
// always resolved server-side.
type PlaceOrderRequest struct {
	AccountID uuid.UUID        `json:"user_id"`
	Items     []PlaceOrderItem `json:"items"`
}

type PlaceOrderItem struct {
	MenuItemID uuid.UUID `json:"id"`
	Quantity   int       `json:"quantity"`
}

type PlaceOrderResult struct {
	OrderID      uuid.UUID       `json:"order_id"`
	TotalCharged decimal.Decimal `json:"total_charged"`
	NewBalance   decimal.Decimal `json:"new_balance"`
	XPGained     int64           `json:"xp_gained"`
	PointsGained int64           `json:"points_gained"`
}

// Settlement is the atomic unit of mutations triggered by placing an
// order: balance debit, stock decrements, order + line insertion and
// reward grants all succeed or fail together.
type Settlement struct {
	AccountID uuid.UUID
	Lines     []OrderLine
	Total     decimal.Decimal
	XP        int64
	Points    int64
}

// CafeteriaStats is an advisory queue/occupancy estimate.
type CafeteriaStats struct {
	Occupancy OccupancyInfo `json:"ocupacion"`
	WaitTime  string        `json:"tiempoEspera"`
	NextTurn  string        `json:"proximoTurno"`
}

type OccupancyInfo struct {
	Level   string `json:"nivel"`
	Percent int    `json:"porcentaje"`
	Detail  string `json:"detalle"`
}
