// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях движка.
// Эти ошибки позволяют вызывающему коду различать типы отказов
// и возвращать понятные причины без разбора текста ошибки.
package common

import "errors"

// Ошибки леджера (балансы, транзакции)
var (
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная там, где нужна положительная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrZeroDelta — нулевое изменение баланса, транзакция не имеет смысла
	ErrZeroDelta = errors.New("изменение баланса не может быть нулевым")
	// ErrBalanceNotFound — запись баланса не найдена
	ErrBalanceNotFound = errors.New("баланс не найден")
)

// Ошибки начисления (чат, войс, инвайты)
var (
	// ErrSystemDisabled — система очков выключена в настройках гильдии
	ErrSystemDisabled = errors.New("система очков отключена")
	// ErrUserFrozen — начисление пользователю заморожено модератором
	ErrUserFrozen = errors.New("начисление пользователю заморожено")
	// ErrNotEligible — пользователь не проходит условия начисления
	ErrNotEligible = errors.New("пользователь не удовлетворяет условиям начисления")
	// ErrChannelNotAllowed — канал не входит в список разрешённых
	ErrChannelNotAllowed = errors.New("канал не участвует в начислении")
	// ErrMessageTooShort — сообщение короче минимальной длины
	ErrMessageTooShort = errors.New("сообщение слишком короткое")
	// ErrDuplicateMessage — точный повтор предыдущего сообщения
	ErrDuplicateMessage = errors.New("повтор предыдущего сообщения")
	// ErrCooldown — кулдаун после предыдущего начисления ещё не истёк
	ErrCooldown = errors.New("кулдаун ещё не истёк")
	// ErrDailyCapReached — дневной лимит очков за чат исчерпан
	ErrDailyCapReached = errors.New("дневной лимит очков исчерпан")
)

// Ошибки инвайт-воронки
var (
	// ErrSelfInvite — пользователь пригласил сам себя
	ErrSelfInvite = errors.New("нельзя пригласить самого себя")
	// ErrInviteAlreadyConfirmed — инвайт уже был подтверждён ранее (анти-повтор)
	ErrInviteAlreadyConfirmed = errors.New("инвайт уже подтверждён, повторная выплата запрещена")
	// ErrInviteNotFound — запись инвайта не найдена
	ErrInviteNotFound = errors.New("запись инвайта не найдена")
)

// Ошибки админки
var (
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrPunishmentNotFound — активное наказание не найдено
	ErrPunishmentNotFound = errors.New("активное наказание не найдено")
)
