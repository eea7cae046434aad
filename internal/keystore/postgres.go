package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aizen-labs/premium-bot/internal/domain"
)

// PostgresKeyStore is the SQL-backed KeyStore implementation. Single-use
// redemption relies on a conditional UPDATE, so concurrent redeemers of the
// same key race on one row and only one wins.
type PostgresKeyStore struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPostgresKeyStore creates a SQL-backed key store.
func NewPostgresKeyStore(db *sql.DB, log *slog.Logger) *PostgresKeyStore {
	if log == nil {
		log = slog.Default()
	}

	return &PostgresKeyStore{db: db, log: log}
}

func (s *PostgresKeyStore) Generate(ctx context.Context, days int, now time.Time) (*domain.PremiumKey, error) {
	if days <= 0 {
		return nil, ErrInvalidDays
	}

	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	key := &domain.PremiumKey{
		Key:       token,
		Days:      days,
		ExpiresAt: now.UTC().Add(time.Duration(days) * 24 * time.Hour),
		CreatedAt: now.UTC(),
	}

	const query = `
		INSERT INTO premium_keys (key, days, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := s.db.ExecContext(ctx, query, key.Key, key.Days, key.ExpiresAt, key.CreatedAt); err != nil {
		s.log.Error("failed to insert premium key", slog.Any("error", err))
		return nil, fmt.Errorf("insert premium key: %w", err)
	}

	return key, nil
}

func (s *PostgresKeyStore) Redeem(ctx context.Context, token string, userID int64, now time.Time) (*domain.PremiumKey, error) {
	const claim = `
		UPDATE premium_keys
		SET used = TRUE, used_by = $2, used_at = $3
		WHERE key = $1 AND used = FALSE AND expires_at > $3
		RETURNING key, days, expires_at, used, used_by, used_at, created_at
	`

	key, err := scanKey(s.db.QueryRowContext(ctx, claim, token, userID, now.UTC()))
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.log.Error("failed to redeem premium key", slog.Any("error", err))
		return nil, fmt.Errorf("redeem premium key: %w", err)
	}

	// The claim missed; inspect the row to report why.
	existing, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if existing.Used {
		return nil, ErrKeyAlreadyUsed
	}

	return nil, ErrKeyExpired
}

func (s *PostgresKeyStore) Get(ctx context.Context, token string) (*domain.PremiumKey, error) {
	const query = `
		SELECT key, days, expires_at, used, used_by, used_at, created_at
		FROM premium_keys
		WHERE key = $1
	`

	key, err := scanKey(s.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}

		s.log.Error("failed to fetch premium key", slog.Any("error", err))
		return nil, fmt.Errorf("select premium key: %w", err)
	}

	return key, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (*domain.PremiumKey, error) {
	var (
		key    domain.PremiumKey
		usedBy sql.NullInt64
		usedAt sql.NullTime
	)

	if err := row.Scan(
		&key.Key,
		&key.Days,
		&key.ExpiresAt,
		&key.Used,
		&usedBy,
		&usedAt,
		&key.CreatedAt,
	); err != nil {
		return nil, err
	}

	if usedBy.Valid {
		id := usedBy.Int64
		key.UsedBy = &id
	}
	if usedAt.Valid {
		t := usedAt.Time
		key.UsedAt = &t
	}

	return &key, nil
}
