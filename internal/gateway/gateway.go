// Package gateway описывает границу с платформенным адаптером.
// Сам адаптер (Discord/Telegram-шлюз, UI, эмбеды) — внешний коллаборатор;
// движок потребляет только эти структуры событий и интерфейсы.
//
// Все идентификаторы — int64 (snowflake платформы).
package gateway

import (
	"context"
	"time"
)

// ChatEvent — входящее сообщение в текстовом канале гильдии.
type ChatEvent struct {
	GuildID   int64
	UserID    int64
	ChannelID int64
	Content   string
	IsBot     bool      // Сообщения ботов очки не приносят
	RoleIDs   []int64   // Роли автора на момент события (для режима SELECTIVE)
	Timestamp time.Time // Момент отправки по часам платформы
}

// MemberJoined — вступление участника в гильдию.
// InviterID равен 0, если платформа не смогла определить пригласившего.
type MemberJoined struct {
	GuildID        int64
	InviterID      int64
	InviteeID      int64
	AccountAgeDays int
	InvitedAt      time.Time
}

// MemberLeft — выход участника из гильдии.
type MemberLeft struct {
	GuildID int64
	UserID  int64
}

// VoiceLeft — полный выход из голосового канала (не переход между каналами).
type VoiceLeft struct {
	GuildID int64
	UserID  int64
}

// VoiceParticipant — один подключённый участник голосового канала
// в срезе на момент тика.
type VoiceParticipant struct {
	UserID         int64
	IsBot          bool
	RoleIDs        []int64
	SelfMuted      bool
	ServerMuted    bool
	SelfDeafened   bool
	ServerDeafened bool
}

// ChannelSnapshot — срез одного голосового канала на момент тика.
type ChannelSnapshot struct {
	GuildID      int64
	ChannelID    int64
	Participants []VoiceParticipant
}

// VoiceProvider отдаёт срезы всех голосовых каналов из live-кеша шлюза.
// Тик пересканирует всё состояние — O(каналы × участники), приемлемо
// на скромных масштабах (push-модель осознанно не применяется).
type VoiceProvider interface {
	Snapshots(ctx context.Context) ([]ChannelSnapshot, error)
}

// MemberProvider отвечает, состоит ли пользователь в гильдии сейчас.
// Нужен свипу инвайт-воронки: PENDING подтверждается только если
// приглашённый всё ещё на месте.
type MemberProvider interface {
	IsMember(ctx context.Context, guildID, userID int64) (bool, error)
}
