package tables

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"fz-restaurant/internal/apperr"
	"fz-restaurant/internal/database/models"
	"fz-restaurant/internal/realtime"
	"fz-restaurant/internal/repository"
)

type PaymentCompleted struct {
	TableID       int             `json:"tableId"`
	SessionID     int64           `json:"sessionId"`
	PaymentID     int64           `json:"paymentId"`
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
}

func newTransactionID() string {
	return fmt.Sprintf("TXN-%s", strings.ToUpper(uuid.NewString()))
}

// InitiatePayment opens a pending payment against the table's active session.
// A nil amount charges the session total.
func (s *Service) InitiatePayment(ctx context.Context, tableID int, method string, amount *decimal.Decimal) (*models.TablePayment, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, apperr.Validation("paymentMethod is required")
	}
	if amount != nil && !amount.IsPositive() {
		return nil, apperr.Validation("amount must be positive")
	}

	var payment *models.TablePayment
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		session, err := tx.ActiveSession(ctx, tableID)
		if err != nil {
			return err
		}
		if session.Status == models.SessionPaymentPending {
			return apperr.Conflict("a payment is already pending for table %d", tableID)
		}
		if !session.Status.CanTransitionTo(models.SessionPaymentPending) {
			return apperr.ErrInvalidTransition
		}

		charge := session.TotalAmount
		if amount != nil {
			charge = amount.Round(2)
		}
		if !charge.IsPositive() {
			return apperr.Validation("nothing to pay for table %d", tableID)
		}

		payment = &models.TablePayment{
			SessionID:     session.ID,
			TableID:       tableID,
			Amount:        charge,
			PaymentMethod: method,
			TransactionID: newTransactionID(),
			PaymentStatus: models.PaymentPending,
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}

		session.Status = models.SessionPaymentPending
		session.PaymentStatus = models.SessionPaymentWaiting
		return tx.SaveSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"table_id":       tableID,
		"payment_id":     payment.ID,
		"transaction_id": payment.TransactionID,
	}).Info("Payment initiated")
	return payment, nil
}

// UpdatePaymentStatus applies a gateway callback. Completed payments close the
// session; failed ones return it to dining so the guests can retry.
func (s *Service) UpdatePaymentStatus(ctx context.Context, paymentID int64, status models.PaymentStatus, gatewayResponse json.RawMessage) (*models.TablePayment, error) {
	if !status.Valid() {
		return nil, apperr.Validation("unknown payment status %q", status)
	}
	if len(gatewayResponse) > 0 && !json.Valid(gatewayResponse) {
		return nil, apperr.Validation("gatewayResponse must be valid JSON")
	}

	var payment *models.TablePayment
	changed := false
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		payment, err = tx.PaymentByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.PaymentStatus == status {
			return nil
		}
		if payment.PaymentStatus.Terminal() {
			return apperr.Conflict("payment %d is already %s", paymentID, payment.PaymentStatus)
		}
		changed = true

		now := s.now()
		payment.PaymentStatus = status
		if len(gatewayResponse) > 0 {
			payment.GatewayResponse = datatypes.JSON(gatewayResponse)
		}
		if status.Terminal() {
			payment.CompletedAt = &now
		}
		if err := tx.SavePayment(ctx, payment); err != nil {
			return err
		}

		session, err := tx.SessionByID(ctx, payment.SessionID)
		if err != nil {
			return err
		}
		if session.Status.Terminal() {
			return nil
		}
		switch status {
		case models.PaymentCompleted:
			session.Status = models.SessionCompleted
			session.PaymentStatus = models.SessionPaid
			session.SessionEnd = &now
		case models.PaymentFailed:
			session.Status = models.SessionDining
			session.PaymentStatus = models.SessionPaymentFailed
		default:
			return nil
		}
		return tx.SaveSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		return payment, nil
	}

	log.WithFields(log.Fields{
		"payment_id": payment.ID,
		"status":     payment.PaymentStatus,
	}).Info("Payment status updated")

	if status == models.PaymentCompleted {
		realtime.Notify(ctx, s.publisher, realtime.EventPaymentCompleted, PaymentCompleted{
			TableID:       payment.TableID,
			SessionID:     payment.SessionID,
			PaymentID:     payment.ID,
			TransactionID: payment.TransactionID,
			Amount:        payment.Amount,
		})
	}
	return payment, nil
}
