// Package voice — service.go содержит логику войс-тика.
//
// Тик — единственный серийный таймер (планировщик гарантирует, что
// новый тик не стартует до завершения предыдущего), поэтому каждую
// сессию в один момент времени трогает ровно одно исполнение.
// Ошибка обработки одного канала или участника логируется и не
// останавливает остальных.
package voice

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-engine/internal/features/eligibility"
	"serotonyl.ru/points-engine/internal/features/ledger"
	"serotonyl.ru/points-engine/internal/features/settings"
	"serotonyl.ru/points-engine/internal/gateway"
)

// Store — операции хранилища голосовых сессий.
type Store interface {
	Get(ctx context.Context, guildID, userID int64) (*Session, error)
	Upsert(ctx context.Context, s *Session) error
	Delete(ctx context.Context, guildID, userID int64) error
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

// Service управляет войс-начислением.
type Service struct {
	store    Store
	ledger   Ledger
	freezer  Freezer
	oracle   Oracle
	settings Settings
	provider gateway.VoiceProvider
	tick     time.Duration // Длительность тика T
	clock    func() time.Time
}

// NewService создаёт сервис войс-начисления.
// tick — интервал T, ровно столько секунд добавляется активным
// участникам на каждом тике.
func NewService(store Store, l Ledger, f Freezer, o Oracle, s Settings, provider gateway.VoiceProvider, tick time.Duration) *Service {
	return &Service{
		store:    store,
		ledger:   l,
		freezer:  f,
		oracle:   o,
		settings: s,
		provider: provider,
		tick:     tick,
		clock:    time.Now,
	}
}

// Tick выполняет один проход по всем голосовым каналам.
func (s *Service) Tick(ctx context.Context) error {
	snapshots, err := s.provider.Snapshots(ctx)
	if err != nil {
		return fmt.Errorf("ошибка получения срезов голосовых каналов: %w", err)
	}

	for _, snap := range snapshots {
		if err := s.processChannel(ctx, snap); err != nil {
			// Один канал не должен блокировать остальные
			log.WithError(err).WithFields(log.Fields{
				"guild_id":   snap.GuildID,
				"channel_id": snap.ChannelID,
			}).Error("Ошибка обработки голосового канала")
		}
	}
	return nil
}

// processChannel начисляет время участникам одного канала.
func (s *Service) processChannel(ctx context.Context, snap gateway.ChannelSnapshot) error {
	gs, err := s.settings.Get(ctx, snap.GuildID)
	if err != nil {
		return err
	}
	if !gs.Enabled || !gs.ChannelAllowed(snap.ChannelID) {
		return nil
	}
	// Нулевая награда означает «войс-начисление выключено».
	// Неположительный блок в настройки не пропускается, но строка могла
	// быть изменена мимо сервиса — на блок делим, молча пропускаем.
	if gs.CallPoints <= 0 || gs.BlockSeconds() <= 0 {
		return nil
	}

	// Боты не считаются; пустой канал пропускаем целиком
	var humans []gateway.VoiceParticipant
	for _, p := range snap.Participants {
		if !p.IsBot {
			humans = append(humans, p)
		}
	}
	if len(humans) == 0 {
		return nil
	}

	// Активные: допущены по ролям/спискам, не замьючены и не заглушены
	var active []gateway.VoiceParticipant
	for _, p := range humans {
		if gs.UserIgnored(p.UserID) || !gs.RolesAllowed(p.RoleIDs) {
			continue
		}
		if p.SelfMuted || p.ServerMuted || p.SelfDeafened || p.ServerDeafened {
			continue
		}
		active = append(active, p)
	}

	// Порог общеканальный: мало активных — не начисляем НИКОМУ,
	// даже индивидуально подходящим участникам
	if len(active) < gs.MinCallUsers {
		return nil
	}

	for _, p := range active {
		if err := s.accrue(ctx, gs, snap.ChannelID, p.UserID); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"guild_id": snap.GuildID,
				"user_id":  p.UserID,
			}).Error("Ошибка начисления голосового времени")
		}
	}
	return nil
}

// accrue добавляет T секунд одному участнику и платит за полные блоки.
func (s *Service) accrue(ctx context.Context, gs *settings.GuildSettings, channelID, userID int64) error {
	// Заморозка и оракул — индивидуальные ворота на моменте начисления
	frozen, err := s.freezer.IsFrozen(ctx, gs.GuildID, userID)
	if err != nil {
		return err
	}
	if frozen {
		return nil
	}
	if res := s.oracle.Check(ctx, userID, gs.OracleEnabled, gs.OracleStrict); !res.Allowed {
		return nil
	}

	session, err := s.store.Get(ctx, gs.GuildID, userID)
	if err != nil {
		return err
	}
	if session == nil {
		session = &Session{GuildID: gs.GuildID, UserID: userID}
	}

	accumulated := session.AccumulatedSeconds + int64(s.tick/time.Second)

	blockSeconds := gs.BlockSeconds()
	completedBlocks := accumulated / blockSeconds
	remainder := accumulated % blockSeconds

	if completedBlocks > 0 {
		// Несколько блоков за один тик схлопываются в одну транзакцию
		award := gs.CallPoints * completedBlocks
		reason := fmt.Sprintf("голосовое время: %d блок(ов) по %d мин", completedBlocks, gs.CallBlockMinutes)
		if _, err := s.ledger.Apply(ctx, gs.GuildID, userID, award,
			ledger.TxTypeCall, ledger.SourceSystem, reason, nil); err != nil {
			return err
		}
	}

	session.ChannelID = channelID
	session.AccumulatedSeconds = remainder
	session.LastCheckedAt = s.clock()
	return s.store.Upsert(ctx, session)
}

// HandleLeave обрабатывает полный выход из войса: сессия удаляется,
// недобранный до блока остаток секунд сгорает.
func (s *Service) HandleLeave(ctx context.Context, ev gateway.VoiceLeft) error {
	return s.store.Delete(ctx, ev.GuildID, ev.UserID)
}
