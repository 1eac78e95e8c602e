// Package invites — repository.go выполняет операции с таблицей invite_ledger.
package invites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицей invite_ledger.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий инвайт-воронки.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const entryColumns = `
	id, guild_id, invitee_id, inviter_id, invited_at, status,
	confirmed_at, revoked_at, COALESCE(revoked_reason, ''), points_awarded,
	created_at, updated_at
`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID, &e.GuildID, &e.InviteeID, &e.InviterID, &e.InvitedAt, &e.Status,
		&e.ConfirmedAt, &e.RevokedAt, &e.RevokedReason, &e.PointsAwarded,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Get возвращает запись по (гильдия, приглашённый) или nil, если её нет.
func (r *Repository) Get(ctx context.Context, guildID, inviteeID int64) (*Entry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM invite_ledger WHERE guild_id = $1 AND invitee_id = $2`,
		guildID, inviteeID,
	)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записи инвайта: %w", err)
	}
	return e, nil
}

// Upsert создаёт или перезаписывает запись для (гильдия, приглашённый).
// Уникальность по этой паре гарантируется индексом.
func (r *Repository) Upsert(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO invite_ledger
			(guild_id, invitee_id, inviter_id, invited_at, status,
			 confirmed_at, revoked_at, revoked_reason, points_awarded)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9)
		ON CONFLICT (guild_id, invitee_id) DO UPDATE SET
			inviter_id = EXCLUDED.inviter_id,
			invited_at = EXCLUDED.invited_at,
			status = EXCLUDED.status,
			confirmed_at = EXCLUDED.confirmed_at,
			revoked_at = EXCLUDED.revoked_at,
			revoked_reason = EXCLUDED.revoked_reason,
			points_awarded = EXCLUDED.points_awarded,
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query,
		e.GuildID, e.InviteeID, e.InviterID, e.InvitedAt, e.Status,
		e.ConfirmedAt, e.RevokedAt, e.RevokedReason, e.PointsAwarded,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения записи инвайта: %w", err)
	}
	return nil
}

// Confirm переводит запись в CONFIRMED и фиксирует выплаченную сумму.
// ConfirmedAt никогда не затирается последующим отзывом.
func (r *Repository) Confirm(ctx context.Context, guildID, inviteeID int64, at time.Time, pointsAwarded int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE invite_ledger
		SET status = $3, confirmed_at = $4, points_awarded = $5, updated_at = NOW()
		WHERE guild_id = $1 AND invitee_id = $2
	`, guildID, inviteeID, StatusConfirmed, at, pointsAwarded)
	if err != nil {
		return fmt.Errorf("ошибка подтверждения инвайта: %w", err)
	}
	return nil
}

// Revoke переводит запись в REVOKED с указанием причины.
func (r *Repository) Revoke(ctx context.Context, guildID, inviteeID int64, at time.Time, reason string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE invite_ledger
		SET status = $3, revoked_at = $4, revoked_reason = $5, updated_at = NOW()
		WHERE guild_id = $1 AND invitee_id = $2
	`, guildID, inviteeID, StatusRevoked, at, reason)
	if err != nil {
		return fmt.Errorf("ошибка отзыва инвайта: %w", err)
	}
	return nil
}

// ListPending возвращает все записи в статусе PENDING, старые первыми.
// Свип сам решает по настройкам гильдии, чья выдержка уже истекла.
func (r *Repository) ListPending(ctx context.Context) ([]*Entry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+entryColumns+` FROM invite_ledger WHERE status = $1 ORDER BY invited_at ASC`,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ожидающих инвайтов: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи инвайта: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
