// Package settings — service.go содержит бизнес-логику настроек гильдий.
// Настройки читаются трекерами на каждое событие, поэтому кешируются
// с коротким TTL; обновление админом инвалидирует кеш немедленно.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-engine/internal/cache"
)

// Store — операции хранилища, нужные сервису.
// Реализуется Repository; в тестах подменяется in-memory фейком.
type Store interface {
	Get(ctx context.Context, guildID int64) (*GuildSettings, error)
	CreateDefaults(ctx context.Context, guildID int64) error
	Update(ctx context.Context, s *GuildSettings) error
	GuildIDs(ctx context.Context) ([]int64, error)
}

// Service управляет настройками гильдий.
type Service struct {
	store Store
	cache *cache.Cache
	ttl   time.Duration
}

// NewService создаёт сервис настроек.
func NewService(store Store, c *cache.Cache, ttl time.Duration) *Service {
	return &Service{store: store, cache: c, ttl: ttl}
}

// Get возвращает настройки гильдии, создавая строку с дефолтами
// при первом обращении.
func (s *Service) Get(ctx context.Context, guildID int64) (*GuildSettings, error) {
	key := cacheKey(guildID)
	if v, ok := s.cache.Get(key); ok {
		return v.(*GuildSettings), nil
	}

	gs, err := s.store.Get(ctx, guildID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Первое обращение — создаём дефолты и перечитываем
		if err := s.store.CreateDefaults(ctx, guildID); err != nil {
			return nil, err
		}
		gs, err = s.store.Get(ctx, guildID)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения настроек гильдии %d: %w", guildID, err)
	}

	s.cache.Set(key, gs, s.ttl)
	return gs, nil
}

// Update сохраняет новые настройки и сбрасывает кеш.
// Настройки проверяются синхронно — некорректные значения отклоняются
// здесь и никогда не доезжают до трекеров.
func (s *Service) Update(ctx context.Context, gs *GuildSettings) error {
	if err := validate(gs); err != nil {
		return err
	}
	if err := s.store.Update(ctx, gs); err != nil {
		return err
	}
	s.cache.Delete(cacheKey(gs.GuildID))

	log.WithField("guild_id", gs.GuildID).Info("Настройки гильдии обновлены")
	return nil
}

// GuildIDs возвращает все гильдии, известные движку.
func (s *Service) GuildIDs(ctx context.Context) ([]int64, error) {
	return s.store.GuildIDs(ctx)
}

// validate проверяет игровые параметры перед сохранением.
// Нулевые награды допустимы (означают «этот трекер выключен»),
// но длительность войс-блока обязана быть положительной: на неё
// делится накопленное время.
func validate(gs *GuildSettings) error {
	if gs.Mode != ModeGlobal && gs.Mode != ModeSelective {
		return fmt.Errorf("неизвестный режим %q", gs.Mode)
	}
	if gs.CallBlockMinutes <= 0 {
		return fmt.Errorf("длительность войс-блока должна быть положительной, получено %d", gs.CallBlockMinutes)
	}
	if gs.ChatPoints < 0 || gs.CallPoints < 0 || gs.InvitePoints < 0 {
		return fmt.Errorf("награды не могут быть отрицательными")
	}
	if gs.CooldownMinutes < 0 || gs.DailyChatCap < 0 || gs.MinMessageLen < 0 {
		return fmt.Errorf("кулдаун, дневной лимит и минимальная длина не могут быть отрицательными")
	}
	if gs.MinCallUsers < 1 {
		return fmt.Errorf("минимум активных участников войса должен быть не меньше 1, получено %d", gs.MinCallUsers)
	}
	if gs.InviteHoldHours < 0 || gs.RetentionDays < 0 || gs.MinAccountAgeDays < 0 {
		return fmt.Errorf("параметры инвайт-воронки не могут быть отрицательными")
	}
	return nil
}

func cacheKey(guildID int64) string {
	return fmt.Sprintf("settings:%d", guildID)
}
