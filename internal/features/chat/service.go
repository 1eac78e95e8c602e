// Package chat — service.go содержит машину состояний чат-начисления.
//
// Порядок проверок фиксирован: выключатель/допуск/заморозка/оракул →
// фильтр канала → минимальная длина → анти-дубликат → кулдаун →
// дневной лимит → начисление. Отказ на любом шаге не меняет состояние.
package chat

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-engine/internal/common"
	"serotonyl.ru/points-engine/internal/features/eligibility"
	"serotonyl.ru/points-engine/internal/features/ledger"
	"serotonyl.ru/points-engine/internal/features/settings"
	"serotonyl.ru/points-engine/internal/gateway"
)

// Store — операции хранилища чат-активности.
type Store interface {
	Get(ctx context.Context, guildID, userID int64) (*Activity, error)
	Upsert(ctx context.Context, a *Activity) error
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

// Service управляет чат-начислением.
type Service struct {
	store    Store
	ledger   Ledger
	freezer  Freezer
	oracle   Oracle
	settings Settings
	clock    func() time.Time
}

// NewService создаёт сервис чат-начисления.
func NewService(store Store, l Ledger, f Freezer, o Oracle, s Settings) *Service {
	return &Service{
		store:    store,
		ledger:   l,
		freezer:  f,
		oracle:   o,
		settings: s,
		clock:    time.Now,
	}
}

// HandleMessage обрабатывает одно сообщение и возвращает начисленную
// сумму. Отказы возвращаются осмысленными ошибками из common и
// не мутируют состояние.
func (s *Service) HandleMessage(ctx context.Context, ev gateway.ChatEvent) (int64, error) {
	gs, err := s.settings.Get(ctx, ev.GuildID)
	if err != nil {
		return 0, err
	}

	// Шаг 1: выключатель, допуск, заморозка, оракул.
	// Нулевая награда означает «чат-начисление выключено».
	if !gs.Enabled || gs.ChatPoints <= 0 {
		return 0, common.ErrSystemDisabled
	}
	if ev.IsBot || gs.UserIgnored(ev.UserID) || !gs.RolesAllowed(ev.RoleIDs) {
		return 0, common.ErrNotEligible
	}
	frozen, err := s.freezer.IsFrozen(ctx, ev.GuildID, ev.UserID)
	if err != nil {
		return 0, err
	}
	if frozen {
		return 0, common.ErrUserFrozen
	}
	if res := s.oracle.Check(ctx, ev.UserID, gs.OracleEnabled, gs.OracleStrict); !res.Allowed {
		return 0, common.ErrNotEligible
	}

	// Шаг 2: фильтр каналов
	if !gs.ChannelAllowed(ev.ChannelID) {
		return 0, common.ErrChannelNotAllowed
	}

	// Шаг 3: минимальная длина
	if len([]rune(strings.TrimSpace(ev.Content))) < gs.MinMessageLen {
		return 0, common.ErrMessageTooShort
	}

	now := ev.Timestamp
	if now.IsZero() {
		now = s.clock()
	}

	activity, err := s.store.Get(ctx, ev.GuildID, ev.UserID)
	if err != nil {
		return 0, err
	}
	if activity == nil {
		activity = &Activity{GuildID: ev.GuildID, UserID: ev.UserID}
	}

	// Шаг 4: анти-дубликат — только точный повтор предыдущего сообщения
	hash := ContentHash(ev.Content)
	if activity.LastContentHash != "" && activity.LastContentHash == hash {
		return 0, common.ErrDuplicateMessage
	}

	// Шаг 5: кулдаун
	cooldown := time.Duration(gs.CooldownMinutes) * time.Minute
	if activity.LastMessageAt != nil && now.Sub(*activity.LastMessageAt) < cooldown {
		return 0, common.ErrCooldown
	}

	// Шаг 6: дневной лимит (сутки UTC)
	daily := activity.DailyPoints
	if !common.SameUTCDay(activity.DailyDate, now) {
		daily = 0
	}
	award := gs.ChatPoints
	if gs.DailyChatCap > 0 && daily+award > gs.DailyChatCap {
		// Платим только остаток дневного бюджета
		award = gs.DailyChatCap - daily
		if award <= 0 {
			return 0, common.ErrDailyCapReached
		}
	}

	// Шаг 7: начисление и обновление состояния
	if _, err := s.ledger.Apply(ctx, ev.GuildID, ev.UserID, award,
		ledger.TxTypeChat, ledger.SourceSystem, "начисление за сообщение", nil); err != nil {
		return 0, err
	}

	activity.LastMessageAt = &now
	activity.LastContentHash = hash
	activity.DailyPoints = daily + award
	activity.DailyDate = common.UTCDate(now)
	if err := s.store.Upsert(ctx, activity); err != nil {
		// Начисление уже проведено; потеря состояния грозит лишь
		// повторным начислением внутри кулдауна
		log.WithError(err).WithFields(log.Fields{
			"guild_id": ev.GuildID,
			"user_id":  ev.UserID,
		}).Error("Ошибка сохранения чат-активности после начисления")
	}

	return award, nil
}
