// Package punish — repository.go выполняет операции с таблицей punishments.
package punish

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицей punishments.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий наказаний.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create записывает новое наказание.
func (r *Repository) Create(ctx context.Context, p *Punishment) error {
	query := `
		INSERT INTO punishments (guild_id, user_id, moderator_id, reason, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
	`
	_, err := r.db.Exec(ctx, query, p.GuildID, p.UserID, p.ModeratorID, p.Reason, p.ExpiresAt)
	if err != nil {
		return fmt.Errorf("ошибка создания наказания: %w", err)
	}
	return nil
}

// Deactivate снимает все активные наказания пользователя.
// Записи остаются в таблице — история не теряется.
func (r *Repository) Deactivate(ctx context.Context, guildID, userID int64) error {
	query := `
		UPDATE punishments
		SET active = FALSE, lifted_at = NOW()
		WHERE guild_id = $1 AND user_id = $2 AND active
	`
	_, err := r.db.Exec(ctx, query, guildID, userID)
	if err != nil {
		return fmt.Errorf("ошибка снятия наказания: %w", err)
	}
	return nil
}

// GetActive возвращает текущее активное наказание пользователя
// или nil, если его нет.
func (r *Repository) GetActive(ctx context.Context, guildID, userID int64) (*Punishment, error) {
	query := `
		SELECT id, guild_id, user_id, moderator_id, reason, expires_at, active, created_at, lifted_at
		FROM punishments
		WHERE guild_id = $1 AND user_id = $2 AND active
		ORDER BY created_at DESC
		LIMIT 1
	`
	var p Punishment
	err := r.db.QueryRow(ctx, query, guildID, userID).Scan(
		&p.ID, &p.GuildID, &p.UserID, &p.ModeratorID, &p.Reason,
		&p.ExpiresAt, &p.Active, &p.CreatedAt, &p.LiftedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения наказания: %w", err)
	}
	return &p, nil
}

// History возвращает все наказания пользователя, новые первыми.
func (r *Repository) History(ctx context.Context, guildID, userID int64) ([]*Punishment, error) {
	query := `
		SELECT id, guild_id, user_id, moderator_id, reason, expires_at, active, created_at, lifted_at
		FROM punishments
		WHERE guild_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории наказаний: %w", err)
	}
	defer rows.Close()

	var punishments []*Punishment
	for rows.Next() {
		var p Punishment
		if err := rows.Scan(&p.ID, &p.GuildID, &p.UserID, &p.ModeratorID, &p.Reason,
			&p.ExpiresAt, &p.Active, &p.CreatedAt, &p.LiftedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования наказания: %w", err)
		}
		punishments = append(punishments, &p)
	}
	return punishments, rows.Err()
}
