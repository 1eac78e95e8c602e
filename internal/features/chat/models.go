// Package chat реализует начисление очков за сообщения:
// кулдаун, анти-дубликат и дневной лимит.
// models.go описывает структуру таблицы chat_activity.
package chat

import "time"

// Activity — состояние чат-начисления одного пользователя в гильдии.
type Activity struct {
	GuildID         int64      `db:"guild_id"`
	UserID          int64      `db:"user_id"`
	LastMessageAt   *time.Time `db:"last_message_at"`   // Момент последнего засчитанного сообщения
	LastContentHash string     `db:"last_content_hash"` // Хеш последнего засчитанного сообщения
	DailyPoints     int64      `db:"daily_points"`      // Начислено за текущие сутки UTC
	DailyDate       time.Time  `db:"daily_date"`        // Граница суток, к которым относится DailyPoints
	UpdatedAt       time.Time  `db:"updated_at"`
}
