// Package settings — repository.go выполняет операции с таблицей guild_settings.
package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицей guild_settings.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий настроек.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get возвращает настройки гильдии или pgx.ErrNoRows, если строки нет.
func (r *Repository) Get(ctx context.Context, guildID int64) (*GuildSettings, error) {
	query := `
		SELECT guild_id, enabled, mode,
		       chat_points, cooldown_minutes, daily_chat_cap, min_message_len,
		       call_points, call_block_minutes, min_call_users,
		       invite_points, invite_hold_hours, retention_days, min_account_age_days, anti_reentry,
		       oracle_enabled, oracle_strict,
		       allowed_channels, allowed_roles, ignored_users,
		       created_at, updated_at
		FROM guild_settings WHERE guild_id = $1
	`
	var s GuildSettings
	var channels, roles, ignored []byte
	err := r.db.QueryRow(ctx, query, guildID).Scan(
		&s.GuildID, &s.Enabled, &s.Mode,
		&s.ChatPoints, &s.CooldownMinutes, &s.DailyChatCap, &s.MinMessageLen,
		&s.CallPoints, &s.CallBlockMinutes, &s.MinCallUsers,
		&s.InvitePoints, &s.InviteHoldHours, &s.RetentionDays, &s.MinAccountAgeDays, &s.AntiReentry,
		&s.OracleEnabled, &s.OracleStrict,
		&channels, &roles, &ignored,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// JSONB-массивы распаковываем вручную
	if err := unmarshalIDs(channels, &s.AllowedChannels); err != nil {
		return nil, fmt.Errorf("ошибка разбора allowed_channels: %w", err)
	}
	if err := unmarshalIDs(roles, &s.AllowedRoles); err != nil {
		return nil, fmt.Errorf("ошибка разбора allowed_roles: %w", err)
	}
	if err := unmarshalIDs(ignored, &s.IgnoredUsers); err != nil {
		return nil, fmt.Errorf("ошибка разбора ignored_users: %w", err)
	}
	return &s, nil
}

// CreateDefaults создаёт строку настроек с дефолтами, если её ещё нет.
func (r *Repository) CreateDefaults(ctx context.Context, guildID int64) error {
	d := Defaults(guildID)
	query := `
		INSERT INTO guild_settings (
			guild_id, enabled, mode,
			chat_points, cooldown_minutes, daily_chat_cap, min_message_len,
			call_points, call_block_minutes, min_call_users,
			invite_points, invite_hold_hours, retention_days, min_account_age_days, anti_reentry,
			oracle_enabled, oracle_strict,
			allowed_channels, allowed_roles, ignored_users
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, '[]', '[]', '[]')
		ON CONFLICT (guild_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query,
		d.GuildID, d.Enabled, d.Mode,
		d.ChatPoints, d.CooldownMinutes, d.DailyChatCap, d.MinMessageLen,
		d.CallPoints, d.CallBlockMinutes, d.MinCallUsers,
		d.InvitePoints, d.InviteHoldHours, d.RetentionDays, d.MinAccountAgeDays, d.AntiReentry,
		d.OracleEnabled, d.OracleStrict,
	)
	if err != nil {
		return fmt.Errorf("ошибка создания настроек гильдии: %w", err)
	}
	return nil
}

// Update перезаписывает настройки гильдии целиком.
func (r *Repository) Update(ctx context.Context, s *GuildSettings) error {
	channels, err := marshalIDs(s.AllowedChannels)
	if err != nil {
		return err
	}
	roles, err := marshalIDs(s.AllowedRoles)
	if err != nil {
		return err
	}
	ignored, err := marshalIDs(s.IgnoredUsers)
	if err != nil {
		return err
	}

	query := `
		UPDATE guild_settings SET
			enabled = $2, mode = $3,
			chat_points = $4, cooldown_minutes = $5, daily_chat_cap = $6, min_message_len = $7,
			call_points = $8, call_block_minutes = $9, min_call_users = $10,
			invite_points = $11, invite_hold_hours = $12, retention_days = $13,
			min_account_age_days = $14, anti_reentry = $15,
			oracle_enabled = $16, oracle_strict = $17,
			allowed_channels = $18, allowed_roles = $19, ignored_users = $20,
			updated_at = NOW()
		WHERE guild_id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		s.GuildID, s.Enabled, s.Mode,
		s.ChatPoints, s.CooldownMinutes, s.DailyChatCap, s.MinMessageLen,
		s.CallPoints, s.CallBlockMinutes, s.MinCallUsers,
		s.InvitePoints, s.InviteHoldHours, s.RetentionDays, s.MinAccountAgeDays, s.AntiReentry,
		s.OracleEnabled, s.OracleStrict,
		channels, roles, ignored,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления настроек: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GuildIDs возвращает идентификаторы всех гильдий с настройками.
// Нужен планировщику для публикации таблиц лидеров.
func (r *Repository) GuildIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT guild_id FROM guild_settings ORDER BY guild_id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка гильдий: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func marshalIDs(ids []int64) ([]byte, error) {
	if ids == nil {
		ids = []int64{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации списка ID: %w", err)
	}
	return b, nil
}

func unmarshalIDs(raw []byte, dst *[]int64) error {
	if len(raw) == 0 {
		*dst = nil
		return nil
	}
	return json.Unmarshal(raw, dst)
}
