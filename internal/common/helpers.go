// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: работа с границей суток UTC, бессрочная заморозка,
// форматирование дат для логов и отчётов.
package common

import (
	"time"
)

// IndefiniteFreeze — сентинел «заморожен навсегда».
// Далёкое будущее вместо NULL, чтобы проверка frozen_until > now()
// работала одинаково для срочных и бессрочных заморозок.
var IndefiniteFreeze = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// UTCDate возвращает границу суток UTC для момента t (время обнуляется).
// Дневной лимит очков за чат считается в пределах календарного дня UTC.
//
// Примеры:
//
//	UTCDate(2026-03-01 23:59 UTC) → 2026-03-01 00:00 UTC
//	UTCDate(2026-03-02 00:00 UTC) → 2026-03-02 00:00 UTC
func UTCDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameUTCDay проверяет, приходятся ли два момента на один календарный день UTC.
func SameUTCDay(a, b time.Time) bool {
	return UTCDate(a).Equal(UTCDate(b))
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" (UTC).
// Используется для отображения дат транзакций и наказаний.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("02.01.2006 15:04")
}
