// Package admin реализует модераторские команды: ручные начисления
// и списания, заморозку/разморозку и обнуление гильдии.
// service.go — валидация, аудит и защита разрушительных операций.
package admin

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-engine/internal/common"
	"serotonyl.ru/points-engine/internal/features/ledger"
)

// Ledger — операции леджера, нужные админке. Реализуется ledger.Service.
type Ledger interface {
	Apply(ctx context.Context, guildID, userID, delta int64, txType, source, reason string, actorID *int64) (int64, error)
	Reset(ctx context.Context, guildID int64, actorID int64) (int, error)
}

// Registry — реестр заморозок. Реализуется punish.Service.
type Registry interface {
	Freeze(ctx context.Context, guildID, userID int64, expiresAt *time.Time, reason string, moderatorID int64) error
	Lift(ctx context.Context, guildID, userID int64) error
}

// Service обрабатывает админ-команды.
type Service struct {
	ledger       Ledger
	registry     Registry
	passwordHash string // Argon2id-хеш пароля для обнуления

	// Защита от перебора пароля: таймстемпы неудачных попыток по актору
	attemptsMu sync.Mutex
	attempts   map[int64][]time.Time

	clock func() time.Time
}

// NewService создаёт сервис админ-команд.
func NewService(ledger Ledger, registry Registry, passwordHash string) *Service {
	return &Service{
		ledger:       ledger,
		registry:     registry,
		passwordHash: passwordHash,
		attempts:     make(map[int64][]time.Time),
		clock:        time.Now,
	}
}

// AddPoints вручную начисляет очки. Работает и для замороженных:
// заморозка останавливает только автоматическое начисление.
func (s *Service) AddPoints(ctx context.Context, guildID, userID, amount int64, reason string, actorID int64) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	return s.ledger.Apply(ctx, guildID, userID, amount, ledger.TxTypeAdminAdd, ledger.SourceAdmin, reason, &actorID)
}

// RemovePoints вручную списывает очки. Баланс зажимается нулём
// на уровне леджера — уйти в минус нельзя.
func (s *Service) RemovePoints(ctx context.Context, guildID, userID, amount int64, reason string, actorID int64) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	return s.ledger.Apply(ctx, guildID, userID, -amount, ledger.TxTypeAdminRemove, ledger.SourceAdmin, reason, &actorID)
}

// Freeze замораживает начисление пользователю.
// duration == 0 означает бессрочную заморозку.
func (s *Service) Freeze(ctx context.Context, guildID, userID int64, duration time.Duration, reason string, moderatorID int64) error {
	var expiresAt *time.Time
	if duration > 0 {
		t := s.clock().Add(duration)
		expiresAt = &t
	}
	return s.registry.Freeze(ctx, guildID, userID, expiresAt, reason, moderatorID)
}

// Lift снимает заморозку.
func (s *Service) Lift(ctx context.Context, guildID, userID int64) error {
	return s.registry.Lift(ctx, guildID, userID)
}

// ResetAll обнуляет все балансы гильдии. Операция необратима, поэтому
// требует пароль (Argon2id-хеш в конфигурации) и ограничивает перебор:
// 3 неудачные попытки — блокировка актора на час.
func (s *Service) ResetAll(ctx context.Context, guildID int64, actorID int64, password string) (int, error) {
	if s.tooManyAttempts(actorID) {
		return 0, common.ErrTooManyAttempts
	}

	if !verifyArgon2id(password, s.passwordHash) {
		s.recordAttempt(actorID)
		log.WithFields(log.Fields{
			"guild_id": guildID,
			"actor_id": actorID,
		}).Warn("Неверный пароль при попытке обнуления")
		return 0, common.ErrWrongPassword
	}

	return s.ledger.Reset(ctx, guildID, actorID)
}

// tooManyAttempts проверяет лимит неудачных попыток за последний час.
func (s *Service) tooManyAttempts(actorID int64) bool {
	s.attemptsMu.Lock()
	defer s.attemptsMu.Unlock()

	cutoff := s.clock().Add(-1 * time.Hour)
	var recent []time.Time
	for _, t := range s.attempts[actorID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	s.attempts[actorID] = recent
	return len(recent) >= 3
}

func (s *Service) recordAttempt(actorID int64) {
	s.attemptsMu.Lock()
	defer s.attemptsMu.Unlock()
	s.attempts[actorID] = append(s.attempts[actorID], s.clock())
}
