package customer

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"tableorder-service/internal/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var testNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

type recordingSender struct {
	phone, code string
}

func (r *recordingSender) SendOTP(_ context.Context, phone, code string, _ time.Duration) error {
	r.phone, r.code = phone, code
	return nil
}

type stubLimiter struct {
	allowed bool
	err     error
}

func (l stubLimiter) Allow(context.Context, string) (bool, error) {
	return l.allowed, l.err
}

func newTestService(t *testing.T, cfg Config, opts ...Option) (*Service, pgxmock.PgxPoolIface, *recordingSender) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	sender := &recordingSender{}
	opts = append([]Option{
		WithClock(func() time.Time { return testNow }),
		withCodeGenerator(func() (string, error) { return "482913", nil }),
	}, opts...)
	return NewService(mock, sender, cfg, nil, opts...), mock, sender
}

func TestRequestOTPDemoModeReturnsCode(t *testing.T) {
	svc, mock, sender := newTestService(t, Config{DemoMode: true})

	mock.ExpectExec(regexp.QuoteMeta("insert into otps")).
		WithArgs(pgxmock.AnyArg(), "+919876543210", "482913", testNow.Add(5*time.Minute), testNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	issued, err := svc.RequestOTP(context.Background(), "+919876543210", "Asha")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "482913", issued.Code)
	assert.Equal(t, 5, issued.ExpiresIn)
	assert.Equal(t, "482913", sender.code)
}

func TestRequestOTPHidesCodeOutsideDemo(t *testing.T) {
	svc, mock, _ := newTestService(t, Config{})
	mock.ExpectExec(regexp.QuoteMeta("insert into otps")).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	issued, err := svc.RequestOTP(context.Background(), "+919876543210", "Asha")
	require.NoError(t, err)
	assert.Empty(t, issued.Code)
}

func TestRequestOTPValidation(t *testing.T) {
	svc, mock, _ := newTestService(t, Config{})
	for _, phone := range []string{"9876543210", "+91987654321", "+449876543210", ""} {
		_, err := svc.RequestOTP(context.Background(), phone, "Asha")
		assert.True(t, apperr.IsCode(err, apperr.CodeValidation), phone)
	}
	_, err := svc.RequestOTP(context.Background(), "+919876543210", " ")
	assert.True(t, apperr.IsCode(err, apperr.CodeValidation))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestOTPRateLimited(t *testing.T) {
	svc, mock, _ := newTestService(t, Config{}, WithLimiter(stubLimiter{allowed: false}))

	_, err := svc.RequestOTP(context.Background(), "+919876543210", "Asha")
	assert.True(t, apperr.IsCode(err, apperr.CodeRateLimited))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestOTPLimiterOutageFailsOpen(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc := NewService(mock, nil, Config{}, zap.New(core),
		WithLimiter(stubLimiter{err: errors.New("redis down")}),
		WithClock(func() time.Time { return testNow }),
	)
	mock.ExpectExec(regexp.QuoteMeta("insert into otps")).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	_, err = svc.RequestOTP(context.Background(), "+919876543210", "Asha")
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("otp rate limiter unavailable").Len())
}

func TestVerifyOTPOpensSession(t *testing.T) {
	svc, mock, _ := newTestService(t, Config{})
	tableID, restaurantID, customerID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery(regexp.QuoteMeta("update otps set verified = true")).
		WithArgs("+919876543210", "482913", testNow).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectQuery(regexp.QuoteMeta("select restaurant_id from tables")).
		WithArgs(tableID).
		WillReturnRows(pgxmock.NewRows([]string{"restaurant_id"}).AddRow(restaurantID))
	mock.ExpectQuery(regexp.QuoteMeta("on conflict (phone) do update")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "phone"}).AddRow(customerID, "Asha", "+919876543210"))
	mock.ExpectExec(regexp.QuoteMeta("insert into customer_sessions")).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	session, err := svc.VerifyOTP(context.Background(), VerifyInput{
		Phone:   "+919876543210",
		Name:    "Asha",
		Code:    "482913",
		TableID: tableID,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, customerID, session.Customer.ID)
	assert.Equal(t, restaurantID, session.RestaurantID)
	assert.Equal(t, testNow.Add(2*time.Hour), session.ExpiresAt)
	assert.Regexp(t, `^session_`, session.Token)
}

func TestVerifyOTPRejectsUsedOrExpiredCode(t *testing.T) {
	svc, mock, _ := newTestService(t, Config{})

	mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	mock.ExpectQuery(regexp.QuoteMeta("update otps set verified = true")).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := svc.VerifyOTP(context.Background(), VerifyInput{
		Phone:   "+919876543210",
		Name:    "Asha",
		Code:    "000000",
		TableID: uuid.New(),
	})
	assert.True(t, apperr.IsCode(err, apperr.CodeUnauthorized))
	require.NoError(t, mock.ExpectationsWereMet())
}

func sessionRows(expiresAt time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "phone", "table_id", "restaurant_id", "expires_at"}).
		AddRow(uuid.New(), "Asha", "+919876543210", uuid.New(), uuid.New(), expiresAt)
}

func TestVerifySession(t *testing.T) {
	svc, mock, _ := newTestService(t, Config{})

	mock.ExpectQuery(regexp.QuoteMeta("from customer_sessions s")).
		WithArgs("session_live").
		WillReturnRows(sessionRows(testNow.Add(time.Hour)))
	session, err := svc.VerifySession(context.Background(), "session_live")
	require.NoError(t, err)
	assert.Equal(t, "Asha", session.Customer.Name)

	mock.ExpectQuery(regexp.QuoteMeta("from customer_sessions s")).
		WillReturnRows(sessionRows(testNow.Add(-time.Second)))
	_, err = svc.VerifySession(context.Background(), "session_old")
	assert.True(t, apperr.IsCode(err, apperr.CodeUnauthorized))

	mock.ExpectQuery(regexp.QuoteMeta("from customer_sessions s")).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "phone", "table_id", "restaurant_id", "expires_at"}))
	_, err = svc.VerifySession(context.Background(), "session_unknown")
	assert.True(t, apperr.IsCode(err, apperr.CodeUnauthorized))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeExpired(t *testing.T) {
	svc, mock, _ := newTestService(t, Config{})
	mock.ExpectExec(regexp.QuoteMeta("delete from otps")).WithArgs(testNow).WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec(regexp.QuoteMeta("delete from customer_sessions")).WithArgs(testNow).WillReturnResult(pgxmock.NewResult("DELETE", 2))

	otps, sessions, err := svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), otps)
	assert.Equal(t, int64(2), sessions)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateCodeIsSixDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		assert.Regexp(t, `^[1-9]\d{5}$`, code)
	}
}
