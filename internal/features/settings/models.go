// Package settings управляет игровыми настройками начисления по гильдиям.
// models.go описывает структуру строки guild_settings.
//
// В отличие от конфигурации процесса (internal/config), эти параметры
// меняются админами на лету и читаются всеми трекерами через кеш.
package settings

import "time"

// Режимы допуска к начислению.
const (
	// ModeGlobal — очки начисляются всем участникам гильдии
	ModeGlobal = "GLOBAL"
	// ModeSelective — очки начисляются только обладателям ролей из allow-списка
	ModeSelective = "SELECTIVE"
)

// GuildSettings — настройки начисления одной гильдии.
// Создаётся лениво с дефолтами при первом обращении.
type GuildSettings struct {
	GuildID int64 `db:"guild_id"`
	Enabled bool  `db:"enabled"` // Глобальный выключатель системы очков
	Mode    string `db:"mode"`   // GLOBAL или SELECTIVE

	// Чат
	ChatPoints      int64 `db:"chat_points"`       // Награда за засчитанное сообщение
	CooldownMinutes int   `db:"cooldown_minutes"`  // Минимум минут между начислениями
	DailyChatCap    int64 `db:"daily_chat_cap"`    // Потолок очков за чат в сутки UTC (0 = без лимита)
	MinMessageLen   int   `db:"min_message_len"`   // Минимальная длина сообщения после trim

	// Войс
	CallPoints       int64 `db:"call_points"`        // Награда за один полный блок
	CallBlockMinutes int   `db:"call_block_minutes"` // Длительность блока в минутах
	MinCallUsers     int   `db:"min_call_users"`     // Минимум активных участников в канале

	// Инвайты
	InvitePoints      int64 `db:"invite_points"`        // Награда пригласившему
	InviteHoldHours   int   `db:"invite_hold_hours"`    // Выдержка до подтверждения (0 = сразу)
	RetentionDays     int   `db:"retention_days"`       // Окно удержания после подтверждения
	MinAccountAgeDays int   `db:"min_account_age_days"` // Минимальный возраст аккаунта приглашённого
	AntiReentry       bool  `db:"anti_reentry"`         // Запрет повторной выплаты за того же приглашённого

	// Оракул (проверка профиля)
	OracleEnabled bool `db:"oracle_enabled"` // Требование профиля включено
	OracleStrict  bool `db:"oracle_strict"`  // strict: при сбое оракула — отказ; lenient — допуск

	// Фильтры (JSONB-массивы идентификаторов)
	AllowedChannels []int64 `db:"allowed_channels"` // Пустой список = все каналы
	AllowedRoles    []int64 `db:"allowed_roles"`    // Роли для режима SELECTIVE
	IgnoredUsers    []int64 `db:"ignored_users"`    // Пользователи вне начисления

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Defaults возвращает настройки по умолчанию для новой гильдии.
func Defaults(guildID int64) *GuildSettings {
	return &GuildSettings{
		GuildID:           guildID,
		Enabled:           true,
		Mode:              ModeGlobal,
		ChatPoints:        5,
		CooldownMinutes:   1,
		DailyChatCap:      40,
		MinMessageLen:     5,
		CallPoints:        2,
		CallBlockMinutes:  5,
		MinCallUsers:      2,
		InvitePoints:      10,
		InviteHoldHours:   24,
		RetentionDays:     5,
		MinAccountAgeDays: 7,
		AntiReentry:       true,
		OracleEnabled:     false,
		OracleStrict:      false,
	}
}

// ChannelAllowed проверяет, участвует ли канал в начислении.
// Пустой allow-список означает «все каналы разрешены».
func (s *GuildSettings) ChannelAllowed(channelID int64) bool {
	if len(s.AllowedChannels) == 0 {
		return true
	}
	for _, id := range s.AllowedChannels {
		if id == channelID {
			return true
		}
	}
	return false
}

// UserIgnored проверяет, исключён ли пользователь из начисления.
func (s *GuildSettings) UserIgnored(userID int64) bool {
	for _, id := range s.IgnoredUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// RolesAllowed проверяет допуск по ролям.
// В режиме GLOBAL допущены все; в SELECTIVE нужна хотя бы одна роль
// из allow-списка.
func (s *GuildSettings) RolesAllowed(roleIDs []int64) bool {
	if s.Mode != ModeSelective {
		return true
	}
	for _, allowed := range s.AllowedRoles {
		for _, have := range roleIDs {
			if allowed == have {
				return true
			}
		}
	}
	return false
}

// BlockSeconds возвращает длительность войс-блока в секундах.
func (s *GuildSettings) BlockSeconds() int64 {
	return int64(s.CallBlockMinutes) * 60
}
