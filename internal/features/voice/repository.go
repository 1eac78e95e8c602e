// Package voice — repository.go выполняет операции с таблицей voice_sessions.
package voice

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицей voice_sessions.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий голосовых сессий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get возвращает сессию пользователя или nil, если её нет.
func (r *Repository) Get(ctx context.Context, guildID, userID int64) (*Session, error) {
	query := `
		SELECT guild_id, user_id, channel_id, accumulated_seconds, last_checked_at
		FROM voice_sessions
		WHERE guild_id = $1 AND user_id = $2
	`
	var s Session
	err := r.db.QueryRow(ctx, query, guildID, userID).Scan(
		&s.GuildID, &s.UserID, &s.ChannelID, &s.AccumulatedSeconds, &s.LastCheckedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения голосовой сессии: %w", err)
	}
	return &s, nil
}

// Upsert сохраняет сессию после тика.
func (r *Repository) Upsert(ctx context.Context, s *Session) error {
	query := `
		INSERT INTO voice_sessions (guild_id, user_id, channel_id, accumulated_seconds, last_checked_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET
			channel_id = EXCLUDED.channel_id,
			accumulated_seconds = EXCLUDED.accumulated_seconds,
			last_checked_at = EXCLUDED.last_checked_at
	`
	_, err := r.db.Exec(ctx, query, s.GuildID, s.UserID, s.ChannelID, s.AccumulatedSeconds, s.LastCheckedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения голосовой сессии: %w", err)
	}
	return nil
}

// Delete удаляет сессию (полный выход из войса).
// Недобранный остаток секунд пропадает вместе с ней.
func (r *Repository) Delete(ctx context.Context, guildID, userID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM voice_sessions WHERE guild_id = $1 AND user_id = $2`,
		guildID, userID,
	)
	if err != nil {
		return fmt.Errorf("ошибка удаления голосовой сессии: %w", err)
	}
	return nil
}
