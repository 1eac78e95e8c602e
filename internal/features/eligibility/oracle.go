// Package eligibility оборачивает внешнюю проверку профиля:
// «удовлетворяет ли пользователь настроенному требованию».
// oracle.go описывает контракт оракула.
//
// Оракул — сетевой вызов к платформе и может падать. Адаптер
// (adapter.go) прячет сбои за политикой strict/lenient, поэтому
// трекеры никогда не видят ошибок оракула.
package eligibility

import "context"

// Result — ответ оракула.
type Result struct {
	Allowed bool // Пользователь допущен к начислению
	Active  bool // Требование реально проверялось (false = проверка выключена)
}

// Oracle — внешняя проверка профиля пользователя.
// Платформенный адаптер поставляет боевую реализацию;
// тесты подставляют детерминированный фейк.
type Oracle interface {
	Check(ctx context.Context, userID int64) (Result, error)
}

// OracleFunc адаптирует функцию к интерфейсу Oracle.
type OracleFunc func(ctx context.Context, userID int64) (Result, error)

// Check вызывает функцию.
func (f OracleFunc) Check(ctx context.Context, userID int64) (Result, error) {
	return f(ctx, userID)
}
