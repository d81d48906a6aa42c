package models

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	return t == OrderTypeDineIn || t == OrderTypeDelivery
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

var orderStatusRank = map[OrderStatus]int{
	OrderPending:   0,
	OrderPreparing: 1,
	OrderReady:     2,
	OrderCompleted: 3,
}

// OpenOrderStatuses lists the non-terminal order statuses.
var OpenOrderStatuses = []OrderStatus{OrderPending, OrderPreparing, OrderReady}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok || s == OrderCancelled
}

func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// CanTransitionTo allows forward moves (skipping steps is fine) and
// cancellation from any open status. Terminal statuses never change.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	if next == OrderCancelled {
		return true
	}
	return orderStatusRank[next] > orderStatusRank[s]
}

type SessionStatus string

const (
	SessionEmpty          SessionStatus = "empty"
	SessionOccupied       SessionStatus = "occupied"
	SessionOrdering       SessionStatus = "ordering"
	SessionDining         SessionStatus = "dining"
	SessionPaymentPending SessionStatus = "payment_pending"
	SessionCompleted      SessionStatus = "completed"
	SessionCleared        SessionStatus = "cleared"
)

var sessionStatusRank = map[SessionStatus]int{
	SessionOccupied:       0,
	SessionOrdering:       1,
	SessionDining:         2,
	SessionPaymentPending: 3,
	SessionCompleted:      4,
}

// TerminalSessionStatuses must match the predicate of the active-session
// partial unique index.
var TerminalSessionStatuses = []SessionStatus{SessionCompleted, SessionCleared}

// Valid reports whether s can be stored on a session row. SessionEmpty is
// only ever synthesized for tables without a row.
func (s SessionStatus) Valid() bool {
	_, ok := sessionStatusRank[s]
	return ok || s == SessionCleared
}

func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCleared
}

// CanTransitionTo mirrors OrderStatus: forward only, cleared from anywhere
// open. Re-applying the current status is allowed so callers can update the
// running total without moving the session.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if !s.Valid() || !next.Valid() || s.Terminal() {
		return false
	}
	if next == SessionCleared || next == s {
		return true
	}
	return sessionStatusRank[next] > sessionStatusRank[s]
}

type SessionPaymentStatus string

const (
	SessionUnpaid         SessionPaymentStatus = "unpaid"
	SessionPaymentWaiting SessionPaymentStatus = "pending"
	SessionPaid           SessionPaymentStatus = "paid"
	SessionPaymentFailed  SessionPaymentStatus = "failed"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentCompleted || s == PaymentFailed
}

func (s PaymentStatus) Terminal() bool {
	return s == PaymentCompleted || s == PaymentFailed
}
