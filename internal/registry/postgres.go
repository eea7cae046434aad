package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aizen-labs/premium-bot/internal/domain"
)

// PostgresRegistry is the SQL-backed UserRegistry implementation.
type PostgresRegistry struct {
	db  *sql.DB
	log *slog.Logger
}

// NewPostgresRegistry creates a SQL-backed user registry.
func NewPostgresRegistry(db *sql.DB, log *slog.Logger) *PostgresRegistry {
	if log == nil {
		log = slog.Default()
	}

	return &PostgresRegistry{db: db, log: log}
}

func (r *PostgresRegistry) GetOrCreate(ctx context.Context, userID int64, username string) (*domain.User, error) {
	const query = `
		INSERT INTO users (telegram_id, username, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (telegram_id)
		DO UPDATE SET username = CASE WHEN EXCLUDED.username <> '' THEN EXCLUDED.username ELSE users.username END
		RETURNING telegram_id, username, is_premium, premium_until, redeem_used, banned, created_at
	`

	row := r.db.QueryRowContext(ctx, query, userID, username, time.Now().UTC())

	user, err := scanUser(row)
	if err != nil {
		r.log.Error("failed to get or create user", slog.Int64("telegram_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	return user, nil
}

func (r *PostgresRegistry) Get(ctx context.Context, userID int64) (*domain.User, error) {
	const query = `
		SELECT telegram_id, username, is_premium, premium_until, redeem_used, banned, created_at
		FROM users
		WHERE telegram_id = $1
	`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		r.log.Error("failed to fetch user", slog.Int64("telegram_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("select user: %w", err)
	}

	return user, nil
}

func (r *PostgresRegistry) SetBanned(ctx context.Context, userID int64, banned bool) error {
	const query = `UPDATE users SET banned = $2 WHERE telegram_id = $1`

	return r.execExpectingRow(ctx, query, "set banned", userID, banned)
}

func (r *PostgresRegistry) MarkRedeemUsed(ctx context.Context, userID int64) (bool, error) {
	const query = `UPDATE users SET redeem_used = TRUE WHERE telegram_id = $1 AND redeem_used = FALSE`

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		r.log.Error("user registry exec failed", slog.String("operation", "mark redeem used"), slog.Any("error", err))
		return false, fmt.Errorf("mark redeem used: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark redeem used rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}

	// Zero rows means either an unknown user or a quota already spent.
	if _, err := r.Get(ctx, userID); err != nil {
		return false, err
	}

	return false, nil
}

func (r *PostgresRegistry) GrantPremium(ctx context.Context, userID int64, until time.Time) error {
	const query = `UPDATE users SET is_premium = TRUE, premium_until = $2 WHERE telegram_id = $1`

	return r.execExpectingRow(ctx, query, "grant premium", userID, until.UTC())
}

func (r *PostgresRegistry) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE users SET is_premium = FALSE
		WHERE is_premium = TRUE AND premium_until IS NOT NULL AND premium_until <= $1
	`

	res, err := r.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		r.log.Error("failed to revoke expired premium", slog.Any("error", err))
		return 0, fmt.Errorf("revoke expired premium: %w", err)
	}

	return res.RowsAffected()
}

func (r *PostgresRegistry) AllIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT telegram_id FROM users ORDER BY telegram_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.log.Error("failed to list user ids", slog.Any("error", err))
		return nil, fmt.Errorf("select user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *PostgresRegistry) execExpectingRow(ctx context.Context, query, op string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error("user registry exec failed", slog.String("operation", op), slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user         domain.User
		premiumUntil sql.NullTime
	)

	if err := row.Scan(
		&user.TelegramID,
		&user.Username,
		&user.IsPremium,
		&premiumUntil,
		&user.RedeemUsed,
		&user.Banned,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}

	if premiumUntil.Valid {
		t := premiumUntil.Time
		user.PremiumUntil = &t
	}

	return &user, nil
}
