// Package engine собирает трекеры в единый фасад для платформенного
// адаптера: маршрутизация входящих событий плюс читающая поверхность
// (балансы, топ, история, статус наказания).
//
// Движок сам ничего не решает — вся логика в сервисах фич. Здесь только
// диспетчеризация, восстановление после паник и перевод отказов
// начисления в debug-логи (отказ — штатный исход, не ошибка).
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-engine/internal/common"
	"serotonyl.ru/points-engine/internal/features/chat"
	"serotonyl.ru/points-engine/internal/features/invites"
	"serotonyl.ru/points-engine/internal/features/ledger"
	"serotonyl.ru/points-engine/internal/features/punish"
	"serotonyl.ru/points-engine/internal/features/voice"
	"serotonyl.ru/points-engine/internal/gateway"
)

// Engine — фасад движка начисления.
type Engine struct {
	ledger  *ledger.Service
	punish  *punish.Service
	chat    *chat.Service
	voice   *voice.Service
	invites *invites.Service
}

// New создаёт движок из готовых сервисов.
func New(
	ledgerService *ledger.Service,
	punishService *punish.Service,
	chatService *chat.Service,
	voiceService *voice.Service,
	inviteService *invites.Service,
) *Engine {
	return &Engine{
		ledger:  ledgerService,
		punish:  punishService,
		chat:    chatService,
		voice:   voiceService,
		invites: inviteService,
	}
}

// --- Входящие события ---

// OnMessage обрабатывает сообщение чата.
func (e *Engine) OnMessage(ctx context.Context, ev gateway.ChatEvent) {
	defer recoverPanic("chat")

	awarded, err := e.chat.HandleMessage(ctx, ev)
	if err != nil {
		logAccrualOutcome(err, log.Fields{
			"guild_id": ev.GuildID,
			"user_id":  ev.UserID,
		}, "Сообщение не засчитано")
		return
	}
	log.WithFields(log.Fields{
		"guild_id": ev.GuildID,
		"user_id":  ev.UserID,
		"award":    awarded,
	}).Debug("Очки за сообщение начислены")
}

// OnMemberJoined обрабатывает вступление участника (инвайт-воронка).
func (e *Engine) OnMemberJoined(ctx context.Context, ev gateway.MemberJoined) {
	defer recoverPanic("invite_join")

	if err := e.invites.HandleJoin(ctx, ev); err != nil {
		logAccrualOutcome(err, log.Fields{
			"guild_id":   ev.GuildID,
			"invitee_id": ev.InviteeID,
		}, "Вступление не повлияло на воронку")
	}
}

// OnMemberLeft обрабатывает выход участника: воронка (отзыв выплаты)
// и голосовая сессия (сброс накопленного).
func (e *Engine) OnMemberLeft(ctx context.Context, ev gateway.MemberLeft) {
	defer recoverPanic("member_left")

	if err := e.invites.HandleLeave(ctx, ev); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"guild_id": ev.GuildID,
			"user_id":  ev.UserID,
		}).Error("Ошибка обработки выхода в воронке")
	}
	if err := e.voice.HandleLeave(ctx, gateway.VoiceLeft(ev)); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"guild_id": ev.GuildID,
			"user_id":  ev.UserID,
		}).Error("Ошибка удаления голосовой сессии")
	}
}

// OnVoiceLeft обрабатывает полный выход из голосового канала.
func (e *Engine) OnVoiceLeft(ctx context.Context, ev gateway.VoiceLeft) {
	defer recoverPanic("voice_left")

	if err := e.voice.HandleLeave(ctx, ev); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"guild_id": ev.GuildID,
			"user_id":  ev.UserID,
		}).Error("Ошибка удаления голосовой сессии")
	}
}

// --- Читающая поверхность ---

// GetBalance возвращает баланс пользователя.
func (e *Engine) GetBalance(ctx context.Context, guildID, userID int64) (*ledger.Balance, error) {
	return e.ledger.Get(ctx, guildID, userID)
}

// GetTopBalances возвращает топ-N балансов гильдии.
func (e *Engine) GetTopBalances(ctx context.Context, guildID int64, n int) ([]*ledger.Balance, error) {
	return e.ledger.TopN(ctx, guildID, n)
}

// GetHistory возвращает страницу журнала транзакций пользователя.
func (e *Engine) GetHistory(ctx context.Context, guildID, userID int64, limit, offset int) ([]*ledger.Transaction, error) {
	return e.ledger.History(ctx, guildID, userID, limit, offset)
}

// GetPunishment возвращает активное наказание пользователя.
func (e *Engine) GetPunishment(ctx context.Context, guildID, userID int64) (*punish.Punishment, error) {
	return e.punish.Status(ctx, guildID, userID)
}

// --- Служебное ---

// accrualRejections — штатные причины отказа начисления;
// они не являются ошибками и логируются на уровне debug.
var accrualRejections = []error{
	common.ErrSystemDisabled,
	common.ErrUserFrozen,
	common.ErrNotEligible,
	common.ErrChannelNotAllowed,
	common.ErrMessageTooShort,
	common.ErrDuplicateMessage,
	common.ErrCooldown,
	common.ErrDailyCapReached,
	common.ErrSelfInvite,
	common.ErrInviteAlreadyConfirmed,
}

func logAccrualOutcome(err error, fields log.Fields, msg string) {
	for _, rejection := range accrualRejections {
		if errors.Is(err, rejection) {
			log.WithFields(fields).WithField("reason", err.Error()).Debug(msg)
			return
		}
	}
	log.WithError(err).WithFields(fields).Error(msg)
}

// recoverPanic не даёт панике в обработчике одного события уронить процесс.
func recoverPanic(component string) {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"component": component,
			"panic":     fmt.Sprintf("%v", r),
			"stack":     string(debug.Stack()),
		}).Error("ПАНИКА в обработчике события — восстановлено")
	}
}
