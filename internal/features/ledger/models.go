// Package ledger — авторитетное хранилище очков: текущие балансы
// по (гильдия, пользователь) плюс неизменяемый журнал транзакций.
// models.go описывает структуры таблиц balances и transactions.
package ledger

import "time"

// Balance представляет баланс пользователя в одной гильдии.
// Создаётся лениво при первом касании; никогда не удаляется, только обнуляется.
type Balance struct {
	ID          int64      `db:"id"`
	GuildID     int64      `db:"guild_id"`
	UserID      int64      `db:"user_id"`
	Points      int64      `db:"points"`       // Всегда >= 0
	FrozenUntil *time.Time `db:"frozen_until"` // nil = не заморожен; далёкое будущее = бессрочно
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Transaction — одна запись журнала. Каждое изменение баланса
// порождает ровно одну такую строку; пара применяется атомарно.
type Transaction struct {
	ID        int64     `db:"id"`
	GuildID   int64     `db:"guild_id"`
	UserID    int64     `db:"user_id"`
	Amount    int64     `db:"amount"` // Со знаком: начисление > 0, списание < 0
	Type      string    `db:"tx_type"`
	Source    string    `db:"source"`
	Reason    string    `db:"reason"`
	ActorID   *int64    `db:"actor_id"` // Модератор для ручных операций, nil для системных
	CreatedAt time.Time `db:"created_at"`
}

// Типы транзакций — источник изменения баланса.
const (
	TxTypeChat         = "CHAT"          // Начисление за сообщение
	TxTypeCall         = "CALL"          // Начисление за голосовые блоки
	TxTypeInvite       = "INVITE"        // Выплата за подтверждённый инвайт
	TxTypeInviteRevoke = "INVITE_REVOKE" // Отзыв инвайт-выплаты (ранний выход)
	TxTypeAdminAdd     = "ADMIN_ADD"     // Ручное начисление модератором
	TxTypeAdminRemove  = "ADMIN_REMOVE"  // Ручное списание модератором
	TxTypeReset        = "RESET"         // Обнуление при сбросе гильдии
)

// Источники транзакций.
const (
	SourceSystem = "SYSTEM"
	SourceAdmin  = "ADMIN"
)
