// Package invites — service.go содержит машину состояний воронки.
//
// Жизненный цикл: PENDING → {CONFIRMED, REVOKED}. CONFIRMED терминален
// для выплат (анти-повтор), но досягаем для REVOKED через отзыв при
// раннем выходе. Отзыв возвращает ровно points_awarded — сумму,
// зафиксированную в момент подтверждения, а не пересчёт по текущим
// настройкам.
package invites

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-engine/internal/common"
	"serotonyl.ru/points-engine/internal/features/eligibility"
	"serotonyl.ru/points-engine/internal/features/ledger"
	"serotonyl.ru/points-engine/internal/features/settings"
	"serotonyl.ru/points-engine/internal/gateway"
)

// Store — операции хранилища воронки.
type Store interface {
	Get(ctx context.Context, guildID, inviteeID int64) (*Entry, error)
	Upsert(ctx context.Context, e *Entry) error
	Confirm(ctx context.Context, guildID, inviteeID int64, at time.Time, pointsAwarded int64) error
	Revoke(ctx context.Context, guildID, inviteeID int64, at time.Time, reason string) error
	ListPending(ctx context.Context) ([]*Entry, error)
}

// Ledger — применение дельты к балансу. Реализуется ledger.Service.
type Ledger interface {
	Apply(ctx context.Context, guildID, userID, delta int64, txType, source, reason string, actorID *int64) (int64, error)
}

// Freezer — проверка заморозки. Реализуется punish.Service.
type Freezer interface {
	IsFrozen(ctx context.Context, guildID, userID int64) (bool, error)
}

// Oracle — проверка допуска по профилю. Реализуется eligibility.Adapter.
type Oracle interface {
	Check(ctx context.Context, userID int64, enabled, strict bool) eligibility.Result
}

// Settings — чтение настроек гильдии. Реализуется settings.Service.
type Settings interface {
	Get(ctx context.Context, guildID int64) (*settings.GuildSettings, error)
}

// Service управляет инвайт-воронкой.
type Service struct {
	store    Store
	ledger   Ledger
	freezer  Freezer
	oracle   Oracle
	settings Settings
	members  gateway.MemberProvider
	clock    func() time.Time
}

// NewService создаёт сервис инвайт-воронки.
func NewService(store Store, l Ledger, f Freezer, o Oracle, s Settings, members gateway.MemberProvider) *Service {
	return &Service{
		store:    store,
		ledger:   l,
		freezer:  f,
		oracle:   o,
		settings: s,
		members:  members,
		clock:    time.Now,
	}
}

// HandleJoin обрабатывает вступление приглашённого.
func (s *Service) HandleJoin(ctx context.Context, ev gateway.MemberJoined) error {
	gs, err := s.settings.Get(ctx, ev.GuildID)
	if err != nil {
		return err
	}

	// Награда 0 означает «инвайт-начисление выключено»
	if !gs.Enabled || gs.InvitePoints <= 0 {
		return common.ErrSystemDisabled
	}
	// Без известного пригласившего платить некому
	if ev.InviterID == 0 {
		return nil
	}
	if ev.InviterID == ev.InviteeID {
		return common.ErrSelfInvite
	}

	existing, err := s.store.Get(ctx, ev.GuildID, ev.InviteeID)
	if err != nil {
		return err
	}
	// Анти-повтор: если запись когда-либо доходила до CONFIRMED,
	// повторное вступление того же приглашённого больше не платит
	if gs.AntiReentry && existing != nil && existing.EverConfirmed() {
		return common.ErrInviteAlreadyConfirmed
	}

	now := s.clock()

	// Молодой аккаунт — сразу REVOKED, без выплаты
	if ev.AccountAgeDays < gs.MinAccountAgeDays {
		entry := &Entry{
			GuildID:       ev.GuildID,
			InviteeID:     ev.InviteeID,
			InviterID:     ev.InviterID,
			InvitedAt:     ev.InvitedAt,
			Status:        StatusRevoked,
			RevokedAt:     &now,
			RevokedReason: ReasonMinAccountAge,
		}
		if err := s.store.Upsert(ctx, entry); err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"guild_id":   ev.GuildID,
			"invitee_id": ev.InviteeID,
			"age_days":   ev.AccountAgeDays,
		}).Debug("Инвайт отклонён: аккаунт моложе минимума")
		return nil
	}

	entry := &Entry{
		GuildID:   ev.GuildID,
		InviteeID: ev.InviteeID,
		InviterID: ev.InviterID,
		InvitedAt: ev.InvitedAt,
		Status:    StatusPending,
	}
	if err := s.store.Upsert(ctx, entry); err != nil {
		return err
	}

	// Нулевая выдержка — подтверждаем немедленно
	if gs.InviteHoldHours == 0 {
		return s.confirmAndPay(ctx, gs, entry)
	}
	return nil
}

// confirmAndPay подтверждает запись и платит пригласившему.
// Отказ оракула или заморозка пригласившего не возвращают запись
// в PENDING: она помечается CONFIRMED с нулевой выплатой, чтобы
// перезаходами нельзя было фармить повторные попытки.
func (s *Service) confirmAndPay(ctx context.Context, gs *settings.GuildSettings, e *Entry) error {
	now := s.clock()
	award := gs.InvitePoints

	frozen, err := s.freezer.IsFrozen(ctx, e.GuildID, e.InviterID)
	if err != nil {
		return err
	}
	if frozen {
		award = 0
	} else if res := s.oracle.Check(ctx, e.InviterID, gs.OracleEnabled, gs.OracleStrict); !res.Allowed {
		award = 0
	}

	if award > 0 {
		reason := fmt.Sprintf("выплата за приглашение пользователя %d", e.InviteeID)
		if _, err := s.ledger.Apply(ctx, e.GuildID, e.InviterID, award,
			ledger.TxTypeInvite, ledger.SourceSystem, reason, nil); err != nil {
			return err
		}
	}

	if err := s.store.Confirm(ctx, e.GuildID, e.InviteeID, now, award); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"guild_id":   e.GuildID,
		"inviter_id": e.InviterID,
		"invitee_id": e.InviteeID,
		"award":      award,
	}).Info("Инвайт подтверждён")
	return nil
}

// Sweep пакетно подтверждает PENDING-записи с истёкшей выдержкой.
// Ошибка по одной записи логируется и не прерывает остальных.
func (s *Service) Sweep(ctx context.Context) error {
	pending, err := s.store.ListPending(ctx)
	if err != nil {
		return err
	}

	now := s.clock()
	for _, e := range pending {
		if err := s.sweepEntry(ctx, e, now); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"guild_id":   e.GuildID,
				"invitee_id": e.InviteeID,
			}).Error("Ошибка обработки ожидающего инвайта")
		}
	}
	return nil
}

func (s *Service) sweepEntry(ctx context.Context, e *Entry, now time.Time) error {
	gs, err := s.settings.Get(ctx, e.GuildID)
	if err != nil {
		return err
	}

	hold := time.Duration(gs.InviteHoldHours) * time.Hour
	if now.Sub(e.InvitedAt) < hold {
		return nil // Выдержка ещё идёт
	}

	// Приглашённый должен быть всё ещё на месте
	present, err := s.members.IsMember(ctx, e.GuildID, e.InviteeID)
	if err != nil {
		return err
	}
	if !present {
		return s.store.Revoke(ctx, e.GuildID, e.InviteeID, now, ReasonLeftBeforeHold)
	}

	return s.confirmAndPay(ctx, gs, e)
}

// HandleLeave обрабатывает выход приглашённого из гильдии.
func (s *Service) HandleLeave(ctx context.Context, ev gateway.MemberLeft) error {
	entry, err := s.store.Get(ctx, ev.GuildID, ev.UserID)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}

	now := s.clock()
	switch entry.Status {
	case StatusPending:
		// Не дождался подтверждения
		return s.store.Revoke(ctx, ev.GuildID, ev.UserID, now, ReasonLeftBeforeHold)

	case StatusConfirmed:
		gs, err := s.settings.Get(ctx, ev.GuildID)
		if err != nil {
			return err
		}
		retention := time.Duration(gs.RetentionDays) * 24 * time.Hour
		if entry.ConfirmedAt == nil || now.Sub(*entry.ConfirmedAt) > retention {
			return nil // Окно удержания прошло — выход безвреден
		}

		// Возвращаем РОВНО выплаченное при подтверждении,
		// а не пересчёт по текущим настройкам
		if entry.PointsAwarded > 0 {
			reason := fmt.Sprintf("отзыв выплаты: пользователь %d вышел в окне удержания", entry.InviteeID)
			if _, err := s.ledger.Apply(ctx, entry.GuildID, entry.InviterID, -entry.PointsAwarded,
				ledger.TxTypeInviteRevoke, ledger.SourceSystem, reason, nil); err != nil {
				return err
			}
		}
		if err := s.store.Revoke(ctx, ev.GuildID, ev.UserID, now, ReasonLeftInRetention); err != nil {
			return err
		}

		log.WithFields(log.Fields{
			"guild_id":   entry.GuildID,
			"inviter_id": entry.InviterID,
			"invitee_id": entry.InviteeID,
			"clawback":   entry.PointsAwarded,
		}).Info("Инвайт-выплата отозвана")
		return nil
	}

	return nil
}
