// Package cache реализует простой in-memory кеш с TTL.
// Кеш принадлежит экземпляру движка и передаётся по ссылке —
// никакого глобального состояния, каждый тест создаёт свежий кеш.
//
// Используется для: статуса заморозки, ответов оракула,
// настроек гильдий и отрендеренных таблиц лидеров.
package cache

import (
	"sync"
	"time"
)

// entry — одно значение с моментом истечения.
type entry struct {
	value     any
	expiresAt time.Time
}

// Cache хранит значения по строковому ключу с индивидуальным TTL.
// Безопасен для конкурентного использования.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New создаёт кеш и запускает фоновую очистку протухших записей.
func New() *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		stopCh:  make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Close останавливает фоновую горутину очистки.
// Его надо вызывать на shutdown (иначе cleanup будет жить вечно).
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Set кладёт значение с заданным временем жизни.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
}

// Get возвращает значение, если оно есть и ещё не истекло.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Delete явно инвалидирует запись (например, при freeze/lift).
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len возвращает число живых записей (протухшие не считаются).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// cleanup периодически выбрасывает протухшие записи,
// чтобы кеш не рос бесконечно на редко запрашиваемых ключах.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
