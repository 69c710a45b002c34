package repository

import (
	"context"
	"errors"

	"pos-payment-service/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSessionNotFound is returned when no session matches the lookup.
var ErrSessionNotFound = errors.New("payment session not found")

// SessionRepository defines data-access operations for payment sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.PaymentSession) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.PaymentSession, error)
	FindByIntentID(ctx context.Context, intentID string) (*models.PaymentSession, error)
	Update(ctx context.Context, session *models.PaymentSession) error
	AppendRefund(ctx context.Context, session *models.PaymentSession, refund *models.SessionRefund) error
}

// GormSessionRepository implements SessionRepository using GORM.
type GormSessionRepository struct {
	db *gorm.DB
}

func NewGormSessionRepository(db *gorm.DB) SessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) Create(ctx context.Context, session *models.PaymentSession) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(session).Error
}

func (r *GormSessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*models.PaymentSession, error) {
	return r.findOne(ctx, "session_id = ?", sessionID)
}

func (r *GormSessionRepository) FindByIntentID(ctx context.Context, intentID string) (*models.PaymentSession, error) {
	return r.findOne(ctx, "intent_id = ?", intentID)
}

func (r *GormSessionRepository) findOne(ctx context.Context, query string, arg string) (*models.PaymentSession, error) {
	var s models.PaymentSession
	err := r.db.WithContext(ctx).
		Preload("Refunds", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where(query, arg).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Update saves the session row; refunds are only ever appended through
// AppendRefund.
func (r *GormSessionRepository) Update(ctx context.Context, session *models.PaymentSession) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(session).Error
}

// AppendRefund stores a refund and the session totals it changed in one
// transaction.
func (r *GormSessionRepository) AppendRefund(ctx context.Context, session *models.PaymentSession, refund *models.SessionRefund) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		refund.SessionRef = session.ID
		if err := tx.Create(refund).Error; err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Save(session).Error
	})
}
