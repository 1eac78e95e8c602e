// Package chat — repository.go выполняет операции с таблицей chat_activity.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицей chat_activity.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий чат-активности.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get возвращает состояние пользователя или nil, если записи ещё нет
// (первое сообщение).
func (r *Repository) Get(ctx context.Context, guildID, userID int64) (*Activity, error) {
	query := `
		SELECT guild_id, user_id, last_message_at, last_content_hash,
		       daily_points, daily_date, updated_at
		FROM chat_activity
		WHERE guild_id = $1 AND user_id = $2
	`
	var a Activity
	err := r.db.QueryRow(ctx, query, guildID, userID).Scan(
		&a.GuildID, &a.UserID, &a.LastMessageAt, &a.LastContentHash,
		&a.DailyPoints, &a.DailyDate, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения чат-активности: %w", err)
	}
	return &a, nil
}

// Upsert сохраняет состояние после засчитанного сообщения.
func (r *Repository) Upsert(ctx context.Context, a *Activity) error {
	query := `
		INSERT INTO chat_activity (guild_id, user_id, last_message_at, last_content_hash, daily_points, daily_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET
			last_message_at = EXCLUDED.last_message_at,
			last_content_hash = EXCLUDED.last_content_hash,
			daily_points = EXCLUDED.daily_points,
			daily_date = EXCLUDED.daily_date,
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query,
		a.GuildID, a.UserID, a.LastMessageAt, a.LastContentHash, a.DailyPoints, a.DailyDate,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения чат-активности: %w", err)
	}
	return nil
}
