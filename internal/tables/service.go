// Package tables manages dine-in table sessions and their simulated payments.
//
// A table is empty when it has no session row in a non-terminal status. The
// partial unique index ux_table_sessions_active guarantees at most one such
// row per table; a lost insert race surfaces as apperr.ErrTableOccupied.
package tables

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"fz-restaurant/internal/apperr"
	"fz-restaurant/internal/database/models"
	"fz-restaurant/internal/realtime"
	"fz-restaurant/internal/repository"
)

// CartClearer drops a table's draft cart once the table is cleared.
type CartClearer interface {
	Clear(ctx context.Context, tableID int) error
}

type Service struct {
	store     *repository.Store
	publisher realtime.Publisher
	carts     CartClearer
	now       func() time.Time
}

func NewService(store *repository.Store, publisher realtime.Publisher, carts CartClearer) *Service {
	if publisher == nil {
		publisher = realtime.Nop
	}
	return &Service{
		store:     store,
		publisher: publisher,
		carts:     carts,
		now:       time.Now,
	}
}

type TableStatus struct {
	TableID       int                         `json:"table_id"`
	Status        models.SessionStatus        `json:"status"`
	SessionID     *int64                      `json:"session_id,omitempty"`
	CustomerName  string                      `json:"customer_name,omitempty"`
	TotalAmount   decimal.Decimal             `json:"total_amount"`
	PaymentStatus models.SessionPaymentStatus `json:"payment_status,omitempty"`
	SessionStart  *time.Time                  `json:"session_start,omitempty"`
}

type ClearResult struct {
	TableID        int   `json:"tableId"`
	MovedToHistory int64 `json:"movedToHistory"`
}

func (s *Service) totalTables(ctx context.Context) (int, error) {
	settings, err := s.store.Settings(ctx)
	if err != nil {
		return 0, err
	}
	return settings.TotalTables, nil
}

func (s *Service) checkTable(ctx context.Context, tableID int) error {
	total, err := s.totalTables(ctx)
	if err != nil {
		return err
	}
	if tableID < 1 || tableID > total {
		return apperr.Validation("table must be between 1 and %d", total)
	}
	return nil
}

// CreateSession seats a customer at an empty table.
func (s *Service) CreateSession(ctx context.Context, tableID int, name, phone string) (*models.TableSession, error) {
	if err := s.checkTable(ctx, tableID); err != nil {
		return nil, err
	}

	session := &models.TableSession{
		TableID:       tableID,
		CustomerName:  strings.TrimSpace(name),
		CustomerPhone: strings.TrimSpace(phone),
		SessionStart:  s.now(),
		Status:        models.SessionOccupied,
		TotalAmount:   decimal.Zero,
		PaymentStatus: models.SessionUnpaid,
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		_, err := tx.ActiveSession(ctx, tableID)
		switch {
		case err == nil:
			return apperr.ErrTableOccupied
		case !errors.Is(err, apperr.ErrNotFound):
			return err
		}
		return tx.CreateSession(ctx, session)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrTableOccupied) {
			log.WithField("table_id", tableID).Info("Table already occupied")
		}
		return nil, err
	}

	log.WithFields(log.Fields{"table_id": tableID, "session_id": session.ID}).Info("Table session started")
	return session, nil
}

// Session returns the active session of a table with its open orders.
func (s *Service) Session(ctx context.Context, tableID int) (*models.TableSession, []models.Order, error) {
	session, err := s.store.ActiveSession(ctx, tableID)
	if err != nil {
		return nil, nil, err
	}
	orders, err := s.store.OpenOrdersForTable(ctx, tableID)
	if err != nil {
		return nil, nil, err
	}
	return session, orders, nil
}

// UpdateStatus moves the active session forward. totalAmount, when set,
// replaces the running total.
func (s *Service) UpdateStatus(ctx context.Context, tableID int, status models.SessionStatus, totalAmount *decimal.Decimal) (*models.TableSession, error) {
	if !status.Valid() {
		return nil, apperr.Validation("unknown session status %q", status)
	}
	if status == models.SessionCleared {
		return nil, apperr.Validation("use clear-table to clear a table")
	}
	if totalAmount != nil && totalAmount.IsNegative() {
		return nil, apperr.Validation("totalAmount cannot be negative")
	}

	var session *models.TableSession
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		session, err = tx.ActiveSession(ctx, tableID)
		if err != nil {
			return err
		}
		if !session.Status.CanTransitionTo(status) {
			return apperr.ErrInvalidTransition
		}

		session.Status = status
		if totalAmount != nil {
			session.TotalAmount = totalAmount.Round(2)
		}
		if status == models.SessionCompleted {
			end := s.now()
			session.SessionEnd = &end
		}
		return tx.SaveSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ClearTable ends the table's session and moves every open order of the
// table into history, all in one transaction. A table without an active
// session can still be cleared of stray open orders.
func (s *Service) ClearTable(ctx context.Context, tableID int) (*ClearResult, error) {
	if tableID < 1 {
		return nil, apperr.Validation("invalid table id")
	}

	result := &ClearResult{TableID: tableID}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		now := s.now()

		session, err := tx.ActiveSession(ctx, tableID)
		switch {
		case err == nil:
			session.Status = models.SessionCleared
			session.SessionEnd = &now
			if err := tx.SaveSession(ctx, session); err != nil {
				return err
			}
		case !errors.Is(err, apperr.ErrNotFound):
			return err
		}

		moved, err := tx.CompleteTableOrders(ctx, tableID, now)
		if err != nil {
			return err
		}
		result.MovedToHistory = moved
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("table_id", tableID).Error("Failed to clear table")
		return nil, err
	}

	if s.carts != nil {
		if err := s.carts.Clear(ctx, tableID); err != nil {
			log.WithError(err).WithField("table_id", tableID).Warn("Failed to drop cart draft")
		}
	}

	log.WithFields(log.Fields{
		"table_id":         tableID,
		"moved_to_history": result.MovedToHistory,
	}).Info("Table cleared")
	realtime.Notify(ctx, s.publisher, realtime.EventTableCleared, result)
	return result, nil
}

// AllTableStatuses reports every table 1..N; tables without an active
// session are empty.
func (s *Service) AllTableStatuses(ctx context.Context) ([]TableStatus, error) {
	total, err := s.totalTables(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := s.store.ActiveSessions(ctx)
	if err != nil {
		return nil, err
	}

	byTable := make(map[int]models.TableSession, len(sessions))
	for _, sess := range sessions {
		byTable[sess.TableID] = sess
	}

	out := make([]TableStatus, 0, total)
	for id := 1; id <= total; id++ {
		sess, ok := byTable[id]
		if !ok {
			out = append(out, TableStatus{TableID: id, Status: models.SessionEmpty, TotalAmount: decimal.Zero})
			continue
		}
		sessionID, start := sess.ID, sess.SessionStart
		out = append(out, TableStatus{
			TableID:       id,
			Status:        sess.Status,
			SessionID:     &sessionID,
			CustomerName:  sess.CustomerName,
			TotalAmount:   sess.TotalAmount,
			PaymentStatus: sess.PaymentStatus,
			SessionStart:  &start,
		})
	}
	return out, nil
}
