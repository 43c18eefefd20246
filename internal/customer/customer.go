package customer

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"tableorder-service/internal/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var phonePattern = regexp.MustCompile(`^\+91\d{10}$`)

type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Sender delivers a one-time code to a phone number.
type Sender interface {
	SendOTP(ctx context.Context, phone, code string, ttl time.Duration) error
}

type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type Customer struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone"`
}

type Session struct {
	Token        string    `json:"sessionToken"`
	Customer     Customer  `json:"customer"`
	TableID      uuid.UUID `json:"tableId"`
	RestaurantID uuid.UUID `json:"restaurantId"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type OTPIssued struct {
	ExpiresIn int       `json:"expiresIn"`
	ExpiresAt time.Time `json:"expiresAt"`
	// Code is only populated in demo mode.
	Code string `json:"otp,omitempty"`
}

type Config struct {
	OTPExpiry  time.Duration
	SessionTTL time.Duration
	DemoMode   bool
}

type Service struct {
	db      DB
	sender  Sender
	limiter Limiter
	logger  *zap.Logger
	cfg     Config
	now     func() time.Time
	newCode func() (string, error)
}

type Option func(*Service)

func WithLimiter(l Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func withCodeGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newCode = gen }
}

func NewService(db DB, sender Sender, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.OTPExpiry <= 0 {
		cfg.OTPExpiry = 5 * time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	s := &Service{
		db:      db,
		sender:  sender,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
		newCode: generateCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// RequestOTP issues a code for phone. Rate limiter failures are logged and
// the request is let through.
func (s *Service) RequestOTP(ctx context.Context, phone, name string) (OTPIssued, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || strings.TrimSpace(name) == "" {
		return OTPIssued{}, apperr.Validation("Phone and name are required")
	}
	if !ValidPhone(phone) {
		return OTPIssued{}, apperr.Validation("Invalid phone number format. Use +91XXXXXXXXXX")
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, phone)
		if err != nil {
			s.logger.Warn("otp rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			return OTPIssued{}, apperr.RateLimited("Too many OTP requests. Please try again later")
		}
	}

	code, err := s.newCode()
	if err != nil {
		return OTPIssued{}, fmt.Errorf("generate otp: %w", err)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.cfg.OTPExpiry)
	if _, err := s.db.Exec(ctx, `
		insert into otps (id, phone, code, expires_at, verified, created_at)
		values ($1, $2, $3, $4, false, $5)
	`, uuid.New(), phone, code, expiresAt, now); err != nil {
		return OTPIssued{}, fmt.Errorf("store otp: %w", err)
	}

	if s.sender != nil {
		if err := s.sender.SendOTP(ctx, phone, code, s.cfg.OTPExpiry); err != nil {
			return OTPIssued{}, fmt.Errorf("send otp: %w", err)
		}
	}

	issued := OTPIssued{
		ExpiresIn: int(s.cfg.OTPExpiry / time.Minute),
		ExpiresAt: expiresAt,
	}
	if s.cfg.DemoMode {
		issued.Code = code
	}
	return issued, nil
}

type VerifyInput struct {
	Phone   string    `json:"phone"`
	Name    string    `json:"name"`
	Code    string    `json:"otp"`
	TableID uuid.UUID `json:"tableId"`
}

// VerifyOTP consumes a matching code and opens a table session for the
// customer, creating or renaming the customer record as needed. All of it
// happens in one transaction so a code can only ever be used once.
func (s *Service) VerifyOTP(ctx context.Context, in VerifyInput) (Session, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
	if in.Phone == "" || in.Name == "" || in.Code == "" || in.TableID == uuid.Nil {
		return Session{}, apperr.Validation("Phone, name, OTP, and tableId are required")
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return Session{}, fmt.Errorf("begin verify otp: %w", err)
	}
	defer tx.Rollback(ctx)

	now := s.now().UTC()
	var otpID uuid.UUID
	err = tx.QueryRow(ctx, `
		update otps set verified = true
		where id = (
		  select id from otps
		  where phone = $1 and code = $2 and not verified and expires_at > $3
		  order by created_at desc
		  limit 1
		  for update skip locked
		)
		returning id
	`, in.Phone, in.Code, now).Scan(&otpID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, apperr.Unauthorized("Invalid or expired OTP")
	}
	if err != nil {
		return Session{}, fmt.Errorf("consume otp: %w", err)
	}

	var restaurantID uuid.UUID
	err = tx.QueryRow(ctx, `select restaurant_id from tables where id = $1`, in.TableID).Scan(&restaurantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, apperr.NotFound(apperr.CodeTableNotFound, "Table not found")
	}
	if err != nil {
		return Session{}, fmt.Errorf("load table: %w", err)
	}

	var c Customer
	if err := tx.QueryRow(ctx, `
		insert into customers (id, name, phone, created_at, updated_at)
		values ($1, $2, $3, $4, $4)
		on conflict (phone) do update set name = excluded.name, updated_at = excluded.updated_at
		returning id, name, phone
	`, uuid.New(), in.Name, in.Phone, now).Scan(&c.ID, &c.Name, &c.Phone); err != nil {
		return Session{}, fmt.Errorf("upsert customer: %w", err)
	}

	session := Session{
		Token:        "session_" + uuid.NewString(),
		Customer:     c,
		TableID:      in.TableID,
		RestaurantID: restaurantID,
		ExpiresAt:    now.Add(s.cfg.SessionTTL),
	}
	if _, err := tx.Exec(ctx, `
		insert into customer_sessions (id, customer_id, table_id, session_token, expires_at, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), c.ID, in.TableID, session.Token, session.ExpiresAt, now); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Session{}, fmt.Errorf("commit verify otp: %w", err)
	}

	s.logger.Info("customer session opened", zap.String("customerId", c.ID.String()), zap.String("tableId", in.TableID.String()))
	return session, nil
}

// VerifySession resolves a session token. Expired sessions are rejected.
func (s *Service) VerifySession(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, apperr.Unauthorized("Session token is required")
	}

	session := Session{Token: token}
	err := s.db.QueryRow(ctx, `
		select c.id, c.name, c.phone, s.table_id, t.restaurant_id, s.expires_at
		from customer_sessions s
		join customers c on c.id = s.customer_id
		join tables t on t.id = s.table_id
		where s.session_token = $1
	`, token).Scan(
		&session.Customer.ID,
		&session.Customer.Name,
		&session.Customer.Phone,
		&session.TableID,
		&session.RestaurantID,
		&session.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, apperr.Unauthorized("Invalid session")
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if !session.ExpiresAt.After(s.now()) {
		return Session{}, apperr.Unauthorized("Session expired")
	}
	return session, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if _, err := s.db.Exec(ctx, `delete from customer_sessions where session_token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes expired codes and sessions.
func (s *Service) PurgeExpired(ctx context.Context) (otps int64, sessions int64, err error) {
	now := s.now().UTC()
	tag, err := s.db.Exec(ctx, `delete from otps where expires_at < $1`, now)
	if err != nil {
		return 0, 0, fmt.Errorf("purge otps: %w", err)
	}
	otps = tag.RowsAffected()

	tag, err = s.db.Exec(ctx, `delete from customer_sessions where expires_at < $1`, now)
	if err != nil {
		return otps, 0, fmt.Errorf("purge sessions: %w", err)
	}
	return otps, tag.RowsAffected(), nil
}
