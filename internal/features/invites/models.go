// Package invites реализует инвайт-воронку: машину состояний
// PENDING → {CONFIRMED, REVOKED} с выплатой пригласившему и отзывом
// при раннем выходе.
// models.go описывает структуру таблицы invite_ledger.
package invites

import "time"

// Статусы записи воронки.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusRevoked   = "REVOKED"
)

// Причины отзыва. Значения фиксированы — это данные, по ним
// строятся отчёты модерации.
const (
	ReasonMinAccountAge   = "IDADE_MINIMA"            // Аккаунт приглашённого моложе минимума
	ReasonLeftBeforeHold  = "SAIU_ANTES_CONFIRMACAO"  // Вышел до подтверждения
	ReasonLeftInRetention = "SAIU_ANTES_PRAZO"        // Вышел в окне удержания после подтверждения
)

// Entry — запись воронки, уникальная по (гильдия, приглашённый).
//
// ConfirmedAt остаётся заполненным и после отзыва: анти-повтор
// смотрит на «когда-либо подтверждался», а не на текущий статус.
type Entry struct {
	ID            int64      `db:"id"`
	GuildID       int64      `db:"guild_id"`
	InviteeID     int64      `db:"invitee_id"`
	InviterID     int64      `db:"inviter_id"`
	InvitedAt     time.Time  `db:"invited_at"`
	Status        string     `db:"status"`
	ConfirmedAt   *time.Time `db:"confirmed_at"`
	RevokedAt     *time.Time `db:"revoked_at"`
	RevokedReason string     `db:"revoked_reason"`
	PointsAwarded int64      `db:"points_awarded"` // Фактически выплачено при подтверждении
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// EverConfirmed сообщает, доходила ли запись когда-либо до CONFIRMED.
func (e *Entry) EverConfirmed() bool {
	return e.ConfirmedAt != nil
}
