// Package punish реализует реестр заморозок: модераторские наказания,
// временно или бессрочно приостанавливающие начисление очков.
// models.go описывает структуру таблицы punishments.
package punish

import "time"

// Punishment — одно наказание. История сохраняется: снятие наказания
// деактивирует запись, но не удаляет её.
type Punishment struct {
	ID          int64      `db:"id"`
	GuildID     int64      `db:"guild_id"`
	UserID      int64      `db:"user_id"`
	ModeratorID int64      `db:"moderator_id"`
	Reason      string     `db:"reason"`
	ExpiresAt   *time.Time `db:"expires_at"` // nil = бессрочно
	Active      bool       `db:"active"`
	CreatedAt   time.Time  `db:"created_at"`
	LiftedAt    *time.Time `db:"lifted_at"` // Когда снято (вручную или по истечении)
}

// Indefinite сообщает, бессрочно ли наказание.
func (p *Punishment) Indefinite() bool {
	return p.ExpiresAt == nil
}
