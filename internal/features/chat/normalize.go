// Package chat — normalize.go приводит текст сообщения к канонической
// форме и считает его хеш для анти-дубликата.
//
// Правило сознательно узкое: блокируется только точный повтор
// непосредственно предыдущего сообщения. Это не спам-фильтр —
// непоследовательные повторы не отслеживаются.
package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize приводит текст к канонической форме:
// нижний регистр, пробельные последовательности схлопнуты в один пробел.
//
// Примеры:
//
//	Normalize("Привет  МИР")  → "привет мир"
//	Normalize(" привет\tмир ") → "привет мир"
func Normalize(content string) string {
	return strings.Join(strings.Fields(strings.ToLower(content)), " ")
}

// ContentHash возвращает sha256-хеш нормализованного текста (hex).
// В chat_activity хранится хеш, а не сам текст.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(Normalize(content)))
	return hex.EncodeToString(sum[:])
}
