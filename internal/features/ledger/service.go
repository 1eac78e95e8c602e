// Package ledger — service.go содержит бизнес-логику леджера:
// валидацию, применение дельт, чтение балансов и истории.
package ledger

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-engine/internal/common"
)

// Store — операции хранилища, нужные сервису.
// Реализуется Repository; в тестах подменяется in-memory фейком.
type Store interface {
	Apply(ctx context.Context, guildID, userID, delta int64, txType, source, reason string, actorID *int64) (int64, error)
	Get(ctx context.Context, guildID, userID int64) (*Balance, error)
	TopN(ctx context.Context, guildID int64, n int) ([]*Balance, error)
	Reset(ctx context.Context, guildID int64, actorID int64) (int, error)
	History(ctx context.Context, guildID, userID int64, limit, offset int) ([]*Transaction, error)
	SetFrozenUntil(ctx context.Context, guildID, userID int64, until *time.Time) error
}

// Service управляет леджером очков.
type Service struct {
	store Store
}

// NewService создаёт сервис леджера.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Apply применяет подписанную дельту к балансу и пишет журнал.
// Нулевые дельты отклоняются: транзакция без изменения не нужна.
func (s *Service) Apply(ctx context.Context, guildID, userID, delta int64, txType, source, reason string, actorID *int64) (int64, error) {
	if delta == 0 {
		return 0, common.ErrZeroDelta
	}

	newPoints, err := s.store.Apply(ctx, guildID, userID, delta, txType, source, reason, actorID)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"user_id":  userID,
		"delta":    delta,
		"type":     txType,
		"points":   newPoints,
	}).Debug("Баланс изменён")

	return newPoints, nil
}

// Get возвращает баланс пользователя (лениво создавая нулевой).
func (s *Service) Get(ctx context.Context, guildID, userID int64) (*Balance, error) {
	return s.store.Get(ctx, guildID, userID)
}

// TopN возвращает топ балансов гильдии.
func (s *Service) TopN(ctx context.Context, guildID int64, n int) ([]*Balance, error) {
	if n <= 0 {
		return nil, common.ErrInvalidAmount
	}
	return s.store.TopN(ctx, guildID, n)
}

// Reset обнуляет все балансы гильдии с полным аудитом.
func (s *Service) Reset(ctx context.Context, guildID int64, actorID int64) (int, error) {
	count, err := s.store.Reset(ctx, guildID, actorID)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"actor_id": actorID,
		"zeroed":   count,
	}).Warn("Балансы гильдии обнулены")

	return count, nil
}

// History возвращает страницу журнала транзакций пользователя.
// Размер страницы зажимается в [1, 100].
func (s *Service) History(ctx context.Context, guildID, userID int64, limit, offset int) ([]*Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.History(ctx, guildID, userID, limit, offset)
}
