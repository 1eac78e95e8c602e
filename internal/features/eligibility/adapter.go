// Package eligibility — adapter.go кеширует ответы оракула
// и применяет политику отказа strict/lenient.
package eligibility

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/points-engine/internal/cache"
)

// Adapter — кеширующая обёртка над оракулом.
// Check никогда не возвращает ошибку: сбой сети разрешается политикой
// и фиксируется в логах для наблюдаемости.
type Adapter struct {
	oracle Oracle
	cache  *cache.Cache
	ttl    time.Duration
}

// NewAdapter создаёт адаптер оракула.
func NewAdapter(oracle Oracle, c *cache.Cache, ttl time.Duration) *Adapter {
	return &Adapter{oracle: oracle, cache: c, ttl: ttl}
}

// Check возвращает решение о допуске пользователя.
//
// Параметры:
//   - enabled: требование профиля включено в настройках гильдии.
//     Если выключено — всегда {Allowed: true, Active: false},
//     без обращения к оракулу и кешу.
//   - strict: политика при сбое оракула. strict = отказ (Allowed=false),
//     lenient = допуск (Allowed=true).
func (a *Adapter) Check(ctx context.Context, userID int64, enabled, strict bool) Result {
	if !enabled {
		return Result{Allowed: true, Active: false}
	}

	key := cacheKey(userID)
	if v, ok := a.cache.Get(key); ok {
		return v.(Result)
	}

	res, err := a.oracle.Check(ctx, userID)
	if err != nil {
		// Сбой не пробрасывается вызывающему — решает политика
		log.WithError(err).WithFields(log.Fields{
			"user_id": userID,
			"strict":  strict,
		}).Warn("Оракул недоступен, применяем политику отказа")
		return Result{Allowed: !strict, Active: true}
	}
	res.Active = true

	a.cache.Set(key, res, a.ttl)
	return res
}

// Invalidate сбрасывает кешированный ответ для пользователя
// (например, после известного изменения профиля).
func (a *Adapter) Invalidate(userID int64) {
	a.cache.Delete(cacheKey(userID))
}

func cacheKey(userID int64) string {
	return fmt.Sprintf("oracle:%d", userID)
}
