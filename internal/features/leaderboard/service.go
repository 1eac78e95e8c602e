// Package leaderboard периодически материализует топ балансов гильдии
// для отображения. Чистое чтение: движок здесь ничего не мутирует.
package leaderboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-engine/internal/cache"
	"serotonyl.ru/points-engine/internal/features/ledger"
)

// Ledger — чтение топа балансов. Реализуется ledger.Service.
type Ledger interface {
	TopN(ctx context.Context, guildID int64, n int) ([]*ledger.Balance, error)
}

// Guilds — перечисление гильдий для публикации. Реализуется settings.Service.
type Guilds interface {
	GuildIDs(ctx context.Context) ([]int64, error)
}

// Sink принимает отрендеренную таблицу. Боевую реализацию поставляет
// UI-адаптер (эмбед в канал); по умолчанию — вывод в лог.
type Sink func(guildID int64, rendered string)

// Service публикует таблицы лидеров.
type Service struct {
	ledger Ledger
	guilds Guilds
	sink   Sink
	cache  *cache.Cache
	size   int
}

// NewService создаёт публикатор таблиц лидеров.
func NewService(l Ledger, g Guilds, sink Sink, c *cache.Cache, size int) *Service {
	if sink == nil {
		sink = func(guildID int64, rendered string) {
			log.WithField("guild_id", guildID).Debug("Таблица лидеров:\n" + rendered)
		}
	}
	return &Service{ledger: l, guilds: g, sink: sink, cache: c, size: size}
}

// Top возвращает топ-N балансов гильдии (без кеша — живые данные).
func (s *Service) Top(ctx context.Context, guildID int64, n int) ([]*ledger.Balance, error) {
	return s.ledger.TopN(ctx, guildID, n)
}

// Render возвращает отрендеренный топ гильдии; результат кешируется
// на минуту отдельно от данных леджера.
func (s *Service) Render(ctx context.Context, guildID int64) (string, error) {
	key := fmt.Sprintf("leaderboard:%d", guildID)
	if v, ok := s.cache.Get(key); ok {
		return v.(string), nil
	}

	top, err := s.ledger.TopN(ctx, guildID, s.size)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🏆 Топ-%d по очкам:\n", s.size))
	for i, b := range top {
		sb.WriteString(fmt.Sprintf("%d. <@%d> — %d\n", i+1, b.UserID, b.Points))
	}
	if len(top) == 0 {
		sb.WriteString("пока пусто\n")
	}

	rendered := sb.String()
	s.cache.Set(key, rendered, time.Minute)
	return rendered, nil
}

// Publish рендерит и отправляет таблицы всех известных гильдий.
// Ошибка одной гильдии не прерывает остальных.
func (s *Service) Publish(ctx context.Context) error {
	ids, err := s.guilds.GuildIDs(ctx)
	if err != nil {
		return err
	}

	for _, guildID := range ids {
		rendered, err := s.Render(ctx, guildID)
		if err != nil {
			log.WithError(err).WithField("guild_id", guildID).Error("Ошибка рендера таблицы лидеров")
			continue
		}
		s.sink(guildID, rendered)
	}
	return nil
}
