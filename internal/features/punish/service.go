// Package punish — service.go содержит бизнес-логику реестра заморозок.
//
// IsFrozen вызывается на каждом пути начисления (сообщение, войс-тик,
// подтверждение инвайта), поэтому результат кешируется с коротким TTL.
// Freeze и Lift инвалидируют кеш немедленно — устаревание ограничено
// TTL только для «ничего не менялось».
package punish

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-engine/internal/cache"
	"serotonyl.ru/points-engine/internal/common"
	"serotonyl.ru/points-engine/internal/features/ledger"
)

// Store — операции хранилища наказаний.
type Store interface {
	Create(ctx context.Context, p *Punishment) error
	Deactivate(ctx context.Context, guildID, userID int64) error
	GetActive(ctx context.Context, guildID, userID int64) (*Punishment, error)
	History(ctx context.Context, guildID, userID int64) ([]*Punishment, error)
}

// BalanceStore — операции над балансами, нужные реестру:
// чтение и установка отметки frozen_until. Реализуется ledger.Repository.
type BalanceStore interface {
	Get(ctx context.Context, guildID, userID int64) (*ledger.Balance, error)
	SetFrozenUntil(ctx context.Context, guildID, userID int64, until *time.Time) error
}

// Service управляет заморозками.
type Service struct {
	store    Store
	balances BalanceStore
	cache    *cache.Cache
	ttl      time.Duration
	clock    func() time.Time
}

// NewService создаёт сервис реестра заморозок.
func NewService(store Store, balances BalanceStore, c *cache.Cache, ttl time.Duration) *Service {
	return &Service{
		store:    store,
		balances: balances,
		cache:    c,
		ttl:      ttl,
		clock:    time.Now,
	}
}

// Freeze накладывает заморозку: создаёт запись наказания и выставляет
// frozen_until на балансе. Очки не трогаются — замороженный остаётся
// в таблице лидеров и доступен для админ-корректировок.
//
// expiresAt == nil означает бессрочную заморозку (на балансе хранится
// сентинел далёкого будущего).
func (s *Service) Freeze(ctx context.Context, guildID, userID int64, expiresAt *time.Time, reason string, moderatorID int64) error {
	p := &Punishment{
		GuildID:     guildID,
		UserID:      userID,
		ModeratorID: moderatorID,
		Reason:      reason,
		ExpiresAt:   expiresAt,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return err
	}

	until := expiresAt
	if until == nil {
		until = &common.IndefiniteFreeze
	}
	if err := s.balances.SetFrozenUntil(ctx, guildID, userID, until); err != nil {
		return err
	}

	s.cache.Delete(frozenKey(guildID, userID))

	log.WithFields(log.Fields{
		"guild_id":     guildID,
		"user_id":      userID,
		"moderator_id": moderatorID,
		"expires_at":   expiresAt,
	}).Info("Пользователь заморожен")

	return nil
}

// Lift снимает заморозку: деактивирует открытые наказания
// и очищает frozen_until.
func (s *Service) Lift(ctx context.Context, guildID, userID int64) error {
	if err := s.store.Deactivate(ctx, guildID, userID); err != nil {
		return err
	}
	if err := s.balances.SetFrozenUntil(ctx, guildID, userID, nil); err != nil {
		return err
	}

	s.cache.Delete(frozenKey(guildID, userID))

	log.WithFields(log.Fields{
		"guild_id": guildID,
		"user_id":  userID,
	}).Info("Заморозка снята")

	return nil
}

// IsFrozen проверяет, заморожен ли пользователь сейчас.
// Истёкшие заморозки лениво снимаются прямо при чтении.
func (s *Service) IsFrozen(ctx context.Context, guildID, userID int64) (bool, error) {
	key := frozenKey(guildID, userID)
	if v, ok := s.cache.Get(key); ok {
		return v.(bool), nil
	}

	b, err := s.balances.Get(ctx, guildID, userID)
	if err != nil {
		return false, err
	}

	frozen := false
	if b.FrozenUntil != nil {
		if b.FrozenUntil.After(s.clock()) {
			frozen = true
		} else {
			// Срок вышел — лениво подчищаем и баланс, и наказание
			if err := s.Lift(ctx, guildID, userID); err != nil {
				log.WithError(err).WithField("user_id", userID).Error("Ошибка ленивого снятия заморозки")
			}
		}
	}

	s.cache.Set(key, frozen, s.ttl)
	return frozen, nil
}

// Status возвращает активное наказание пользователя.
func (s *Service) Status(ctx context.Context, guildID, userID int64) (*Punishment, error) {
	p, err := s.store.GetActive(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, common.ErrPunishmentNotFound
	}
	return p, nil
}

// History возвращает всю историю наказаний пользователя.
func (s *Service) History(ctx context.Context, guildID, userID int64) ([]*Punishment, error) {
	return s.store.History(ctx, guildID, userID)
}

func frozenKey(guildID, userID int64) string {
	return fmt.Sprintf("frozen:%d:%d", guildID, userID)
}
