package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aizen-labs/premium-bot/internal/domain"
)

// PostgresLedger is the SQL-backed Ledger implementation. Id assignment comes
// from a serial column; resolution uses a conditional UPDATE so only one
// resolver of a given request wins.
type PostgresLedger struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPostgresLedger creates a SQL-backed redeem request ledger.
func NewPostgresLedger(db *sql.DB, log *slog.Logger) *PostgresLedger {
	if log == nil {
		log = slog.Default()
	}

	return &PostgresLedger{db: db, log: log}
}

func (l *PostgresLedger) Submit(ctx context.Context, userID int64, username, details string) (*domain.RedeemRequest, error) {
	const query = `
		INSERT INTO redeem_requests (user_id, username, details, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, username, details, status, reason, created_at, resolved_at
	`

	row := l.db.QueryRowContext(ctx, query, userID, username, details, domain.StatusPending, time.Now().UTC())

	req, err := scanRequest(row)
	if err != nil {
		l.log.Error("failed to submit redeem request", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("insert redeem request: %w", err)
	}

	return req, nil
}

func (l *PostgresLedger) Get(ctx context.Context, id int64) (*domain.RedeemRequest, error) {
	const query = `
		SELECT id, user_id, username, details, status, reason, created_at, resolved_at
		FROM redeem_requests
		WHERE id = $1
	`

	req, err := scanRequest(l.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}

		l.log.Error("failed to fetch redeem request", slog.Int64("request_id", id), slog.Any("error", err))
		return nil, fmt.Errorf("select redeem request: %w", err)
	}

	return req, nil
}

func (l *PostgresLedger) Resolve(ctx context.Context, id int64, status domain.RequestStatus, reason string) (*domain.RedeemRequest, error) {
	const claim = `
		UPDATE redeem_requests
		SET status = $2, reason = $3, resolved_at = $4
		WHERE id = $1 AND status = $5
		RETURNING id, user_id, username, details, status, reason, created_at, resolved_at
	`

	row := l.db.QueryRowContext(ctx, claim, id, status, reason, time.Now().UTC(), domain.StatusPending)

	req, err := scanRequest(row)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		l.log.Error("failed to resolve redeem request", slog.Int64("request_id", id), slog.Any("error", err))
		return nil, fmt.Errorf("resolve redeem request: %w", err)
	}

	// The claim missed; the request is either unknown or already decided.
	if _, err := l.Get(ctx, id); err != nil {
		return nil, err
	}

	return nil, ErrAlreadyResolved
}

func (l *PostgresLedger) Pending(ctx context.Context) ([]*domain.RedeemRequest, error) {
	const query = `
		SELECT id, user_id, username, details, status, reason, created_at, resolved_at
		FROM redeem_requests
		WHERE status = $1
		ORDER BY id
	`

	rows, err := l.db.QueryContext(ctx, query, domain.StatusPending)
	if err != nil {
		l.log.Error("failed to list pending requests", slog.Any("error", err))
		return nil, fmt.Errorf("select pending requests: %w", err)
	}
	defer rows.Close()

	var pending []*domain.RedeemRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redeem request: %w", err)
		}
		pending = append(pending, req)
	}

	return pending, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.RedeemRequest, error) {
	var (
		req        domain.RedeemRequest
		reason     sql.NullString
		resolvedAt sql.NullTime
	)

	if err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.Username,
		&req.Details,
		&req.Status,
		&reason,
		&req.CreatedAt,
		&resolvedAt,
	); err != nil {
		return nil, err
	}

	if reason.Valid {
		req.Reason = reason.String
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		req.ResolvedAt = &t
	}

	return &req, nil
}
