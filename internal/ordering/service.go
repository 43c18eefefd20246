package ordering

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is satisfied by *pgxpool.Pool.
type DB interface {
	querier
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// ReceiptArchiver stores a copy of a settled order's receipt.
type ReceiptArchiver interface {
	ArchiveReceipt(ctx context.Context, order Order) error
}

type Service struct {
	db          DB
	broadcaster *Broadcaster
	logger      *zap.Logger
	archiver    ReceiptArchiver
	now         func() time.Time
}

type Option func(*Service)

func WithReceiptArchiver(a ReceiptArchiver) Option {
	return func(s *Service) { s.archiver = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db DB, broadcaster *Broadcaster, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if broadcaster == nil {
		broadcaster = NewBroadcaster(nil, logger)
	}
	s := &Service{
		db:          db,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) begin(ctx context.Context) (pgx.Tx, error) {
	return s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}
