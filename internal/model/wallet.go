package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is an immutable record of a completed P2P transfer.
// Amount and commission are stored separately; the commission never
// reaches the receiver.
type Transaction struct {
	ID         uuid.UUID       `json:"id"`
	SenderID   uuid.UUID       `json:"sender_id"`
	ReceiverID uuid.UUID       `json:"receiver_id"`
	Amount     decimal.Decimal `json:"amount"`
	Commission decimal.Decimal `json:"commission"`
	Concept    string          `json:"concept"`
	Category   string          `json:"category"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Recharge is an immutable record of external currency converted to Capys.
// Rate is snapshotted at recharge time and never recomputed.
type Recharge struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"account_id"`
	AmountBs  decimal.Decimal `json:"amount_bs"`
	Rate      decimal.Decimal `json:"rate"`
	AmountCpy decimal.Decimal `json:"amount_capy"`
	Method    string          `json:"method"`
	CreatedAt time.Time       `json:"created_at"`
}

type RechargeRequest struct {
	Cedula   string          `json:"cedula"`
	AmountBs decimal.Decimal `json:"amount_bs"`
	Method   string          `json:"method"`
}

type RechargeResult struct {
	NewBalance decimal.Decimal `json:"new_balance"`
	Recharge   *Recharge       `json:"recharge"`
}

type TransferRequest struct {
	SenderID       uuid.UUID       `json:"sender_id"`
	ReceiverCedula string          `json:"receiver_cedula"`
	Amount         decimal.Decimal `json:"amount"`
	Concept        string          `json:"concept"`
	Pin            string          `json:"pin,omitempty"`
}

type TransferResult struct {
	Transaction *Transaction    `json:"transaction"`
	Commission  decimal.Decimal `json:"commission"`
	NewBalance  decimal.Decimal `json:"new_balance"`
}

// Movement kinds in the unified history feed.
const (
	MovementSent       = "PAGO ENVIADO"
	MovementReceived   = "PAGO RECIBIDO"
	MovementCommission = "COMISIÓN SERVICIO"
	MovementRecharge   = "RECARGA"
	MovementOrder      = "CONSUMO"
)

// Movement is one normalized entry in the history feed.
type Movement struct {
	ID          string          `json:"id"`
	Kind        string          `json:"tipo"`
	Amount      decimal.Decimal `json:"monto"`
	Description string          `json:"descripcion"`
	Date        time.Time       `json:"fecha"`
	Negative    bool            `json:"es_negativo"`
}

type History struct {
	AccountName string     `json:"usuario"`
	Count       int        `json:"cantidad"`
	Movements   []Movement `json:"movimientos"`
}

// NotificationEvent travels over the message bus from the wallet engine
// to the notification worker.
type NotificationEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	RelatedID uuid.UUID `json:"related_id"`
	CreatedAt time.Time `json:"created_at"`
}
