package models

import (
	"context"
	"errors"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger is the durable store behind the reconciliation engine. All order
// payment-state mutation funnels through it so the conditional-update
// semantics live in exactly one place. The engine only ever sees this
// interface; tests substitute an in-memory fake.
type Ledger interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetOrderByPaymentReference(ctx context.Context, reference string) (*Order, error)
	GetUser(ctx context.Context, userID int) (*User, error)
	// MarkOrderPaid performs the conditional UNPAID -> PAID transition and
	// reports how many rows changed. Zero means another caller already won
	// the race (or the order was cancelled); re-read to tell which.
	MarkOrderPaid(ctx context.Context, orderID string) (int64, error)
	// UpsertPayment creates or refreshes the single payment row of an order.
	UpsertPayment(ctx context.Context, payment *Payment) error
	// Transaction runs fn against a ledger bound to one DB transaction. The
	// read-status / decide / write critical section of reconciliation must
	// happen inside it.
	Transaction(ctx context.Context, fn func(tx Ledger) error) error
}

type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	err := l.db.WithContext(ctx).Model(&Order{}).Where("id = ?", orderID).Take(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetOrderByPaymentReference resolves an order through its settled payment row.
// Returns ErrorRecordNotFound when no payment carries the reference yet.
func (l *GormLedger) GetOrderByPaymentReference(ctx context.Context, reference string) (*Order, error) {
	var payment Payment
	err := l.db.WithContext(ctx).Model(&Payment{}).Where("reference = ?", reference).Take(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return l.GetOrder(ctx, payment.OrderId)
}

func (l *GormLedger) GetUser(ctx context.Context, userID int) (*User, error) {
	var user User
	err := l.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (l *GormLedger) MarkOrderPaid(ctx context.Context, orderID string) (int64, error) {
	result := l.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND status = ?", orderID, OrderStatusUnpaid).
		Update("status", OrderStatusPaid)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (l *GormLedger) UpsertPayment(ctx context.Context, payment *Payment) error {
	return l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "amount", "reference", "paid_at", "updated_at",
		}),
	}).Create(payment).Error
}

func (l *GormLedger) Transaction(ctx context.Context, fn func(tx Ledger) error) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormLedger{db: tx})
	})
}
