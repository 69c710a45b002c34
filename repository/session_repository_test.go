package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"pos-payment-service/models"
	"pos-payment-service/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func newSession() *models.PaymentSession {
	return models.NewPaymentSession("table-7", models.Metadata{SessionID: "table-7", VenueID: "venue-1", TableNumber: "7"},
		models.TotalsBreakdown{
			Subtotal: models.Money{Amount: 5000, Currency: "usd"},
			Tax:      models.Money{Amount: 400, Currency: "usd"},
			Tip:      models.Money{Amount: 900, Currency: "usd"},
			Total:    models.Money{Amount: 6300, Currency: "usd"},
		}, nil)
}

func TestCreate_Success(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSessionRepository(gormDB)
	s := newSession()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "payment_sessions"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(s.ID))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindBySessionID_NotFound(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSessionRepository(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_sessions"`)).
		WillReturnRows(sqlmock.NewRows([]string{}))

	s, err := repo.FindBySessionID(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	assert.Nil(t, s)
}

func TestFindByIntentID_WithRefunds(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSessionRepository(gormDB)

	id := uuid.New()
	now := time.Now()
	sessionRows := sqlmock.NewRows([]string{
		"id", "session_id", "venue_id", "table_number", "intent_id", "status", "currency",
		"subtotal_cents", "tax_cents", "tip_cents", "total_cents", "charged_cents", "refunded_cents", "tip_count",
		"created_at", "updated_at",
	}).AddRow(id, "table-7", "venue-1", "7", "pi_1", "confirmed", "usd",
		5000, 400, 900, 6300, 6300, 3000, 0, now, now)
	refundRows := sqlmock.NewRows([]string{"id", "session_ref", "refund_id", "amount_cents", "reason", "status", "created_at"}).
		AddRow(uuid.New(), id, "re_1", 3000, "requested_by_customer", "succeeded", now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_sessions"`)).WillReturnRows(sessionRows)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "session_refunds"`)).WillReturnRows(refundRows)

	s, err := repo.FindByIntentID(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "table-7", s.SessionID)
	assert.Equal(t, models.SessionStatusConfirmed, s.Status)
	require.NotNil(t, s.IntentID)
	assert.Equal(t, "pi_1", *s.IntentID)
	assert.Equal(t, int64(3300), s.RefundableCents())
	require.Len(t, s.Refunds, 1)
	assert.Equal(t, "re_1", s.Refunds[0].RefundID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_Error(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSessionRepository(gormDB)
	s := newSession()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payment_sessions"`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), s)
	assert.Error(t, err)
}

func TestAppendRefund_SingleTransaction(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSessionRepository(gormDB)
	s := newSession()
	refund := &models.SessionRefund{ID: uuid.New(), RefundID: "re_1", AmountCents: 3000, Reason: "duplicate", Status: "succeeded"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "session_refunds"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(refund.ID))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "payment_sessions"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.AppendRefund(context.Background(), s, refund))
	assert.Equal(t, s.ID, refund.SessionRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRefund_RollsBackOnInsertFailure(t *testing.T) {
	gormDB, mock := setupMockDB(t)
	repo := repository.NewGormSessionRepository(gormDB)
	s := newSession()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "session_refunds"`)).
		WillReturnError(errors.New("duplicate key value violates unique constraint"))
	mock.ExpectRollback()

	err := repo.AppendRefund(context.Background(), s, &models.SessionRefund{ID: uuid.New(), RefundID: "re_1", AmountCents: 100})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
