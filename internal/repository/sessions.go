package repository

import (
	"context"
	"fmt"

	"fz-restaurant/internal/apperr"
	"fz-restaurant/internal/database/models"
)

// ActiveSession returns the table's non-terminal session for update.
func (s *Store) ActiveSession(ctx context.Context, tableID int) (*models.TableSession, error) {
	var session models.TableSession
	err := forUpdate(s.conn(ctx)).
		Where("table_id = ? AND status NOT IN ?", tableID, models.TerminalSessionStatuses).
		First(&session).Error
	if err != nil {
		return nil, wrap(err, fmt.Sprintf("active session for table %d", tableID))
	}
	return &session, nil
}

func (s *Store) ActiveSessions(ctx context.Context) ([]models.TableSession, error) {
	sessions := []models.TableSession{}
	err := s.conn(ctx).
		Where("status NOT IN ?", models.TerminalSessionStatuses).
		Order("table_id ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, wrap(err, "list active sessions")
	}
	return sessions, nil
}

func (s *Store) SessionByID(ctx context.Context, id int64) (*models.TableSession, error) {
	var session models.TableSession
	if err := forUpdate(s.conn(ctx)).First(&session, id).Error; err != nil {
		return nil, wrap(err, fmt.Sprintf("session %d", id))
	}
	return &session, nil
}

// CreateSession inserts a new active session. The partial unique index on
// table_id rejects a second one, which surfaces as apperr.ErrTableOccupied.
func (s *Store) CreateSession(ctx context.Context, session *models.TableSession) error {
	err := s.conn(ctx).Create(session).Error
	if IsDuplicate(err) {
		return fmt.Errorf("%w: %w", apperr.ErrTableOccupied, err)
	}
	return wrap(err, "create session")
}

func (s *Store) SaveSession(ctx context.Context, session *models.TableSession) error {
	return wrap(s.conn(ctx).Save(session).Error, fmt.Sprintf("save session %d", session.ID))
}

func (s *Store) CreatePayment(ctx context.Context, payment *models.TablePayment) error {
	return wrap(s.conn(ctx).Create(payment).Error, "create payment")
}

func (s *Store) PaymentByID(ctx context.Context, id int64) (*models.TablePayment, error) {
	var payment models.TablePayment
	if err := forUpdate(s.conn(ctx)).First(&payment, id).Error; err != nil {
		return nil, wrap(err, fmt.Sprintf("payment %d", id))
	}
	return &payment, nil
}

func (s *Store) SavePayment(ctx context.Context, payment *models.TablePayment) error {
	return wrap(s.conn(ctx).Save(payment).Error, fmt.Sprintf("save payment %d", payment.ID))
}

func (s *Store) PaymentsForSession(ctx context.Context, sessionID int64) ([]models.TablePayment, error) {
	payments := []models.TablePayment{}
	err := s.conn(ctx).Where("session_id = ?", sessionID).Order("id ASC").Find(&payments).Error
	if err != nil {
		return nil, wrap(err, "list payments")
	}
	return payments, nil
}
