// Package voice реализует начисление очков за присутствие в голосовых
// каналах: периодический тик копит секунды и платит за полные блоки.
// models.go описывает структуру таблицы voice_sessions.
package voice

import "time"

// Session — накопитель голосового времени одного пользователя в гильдии.
// Ключ — (гильдия, пользователь), а не канал: переход между каналами
// внутри гильдии между тиками не теряет прогресс. Полный выход из
// войса удаляет сессию вместе с недобранным остатком.
type Session struct {
	GuildID            int64     `db:"guild_id"`
	UserID             int64     `db:"user_id"`
	ChannelID          int64     `db:"channel_id"`          // Где пользователя видели в последний раз
	AccumulatedSeconds int64     `db:"accumulated_seconds"` // Остаток, не дотянувший до полного блока
	LastCheckedAt      time.Time `db:"last_checked_at"`
}
