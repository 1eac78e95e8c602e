package leaderboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/points-engine/internal/cache"
	"serotonyl.ru/points-engine/internal/features/ledger"
)

type fakeLedger struct {
	tops  map[int64][]*ledger.Balance
	calls int
	err   error
}

func (l *fakeLedger) TopN(_ context.Context, guildID int64, _ int) ([]*ledger.Balance, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.tops[guildID], nil
}

type fakeGuilds struct {
	ids []int64
}

func (g *fakeGuilds) GuildIDs(_ context.Context) ([]int64, error) {
	return g.ids, nil
}

func newLeaderboardFixture(t *testing.T, l *fakeLedger, g *fakeGuilds, sink Sink) *Service {
	t.Helper()
	c := cache.New()
	t.Cleanup(c.Close)
	return NewService(l, g, sink, c, 3)
}

func balances(pairs ...int64) []*ledger.Balance {
	var out []*ledger.Balance
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, &ledger.Balance{UserID: pairs[i], Points: pairs[i+1]})
	}
	return out
}

func TestRenderFormatsTop(t *testing.T) {
	l := &fakeLedger{tops: map[int64][]*ledger.Balance{
		1: balances(9, 70, 7, 50, 8, 30),
	}}
	svc := newLeaderboardFixture(t, l, &fakeGuilds{}, nil)

	rendered, err := svc.Render(context.Background(), 1)
	require.NoError(t, err)

	assert.Contains(t, rendered, "Топ-3 по очкам")
	assert.Contains(t, rendered, "1. <@9> — 70")
	assert.Contains(t, rendered, "3. <@8> — 30")
}

func TestRenderEmptyGuild(t *testing.T) {
	l := &fakeLedger{tops: map[int64][]*ledger.Balance{}}
	svc := newLeaderboardFixture(t, l, &fakeGuilds{}, nil)

	rendered, err := svc.Render(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, rendered, "пока пусто")
}

func TestRenderCached(t *testing.T) {
	l := &fakeLedger{tops: map[int64][]*ledger.Balance{1: balances(7, 50)}}
	svc := newLeaderboardFixture(t, l, &fakeGuilds{}, nil)

	_, err := svc.Render(context.Background(), 1)
	require.NoError(t, err)
	_, err = svc.Render(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, l.calls, "повторный рендер в пределах минуты читает кеш")
}

func TestPublishSendsToSink(t *testing.T) {
	l := &fakeLedger{tops: map[int64][]*ledger.Balance{
		1: balances(7, 50),
		2: balances(8, 30),
	}}
	got := make(map[int64]string)
	sink := func(guildID int64, rendered string) { got[guildID] = rendered }
	svc := newLeaderboardFixture(t, l, &fakeGuilds{ids: []int64{1, 2}}, sink)

	require.NoError(t, svc.Publish(context.Background()))

	assert.Len(t, got, 2)
	assert.Contains(t, got[1], "<@7>")
	assert.Contains(t, got[2], "<@8>")
}

func TestPublishErrorDoesNotStopOthers(t *testing.T) {
	l := &fakeLedger{err: errors.New("леджер недоступен")}
	sent := 0
	sink := func(int64, string) { sent++ }
	svc := newLeaderboardFixture(t, l, &fakeGuilds{ids: []int64{1, 2}}, sink)

	// Ошибки по гильдиям логируются, Publish завершается без ошибки
	require.NoError(t, svc.Publish(context.Background()))
	assert.Zero(t, sent)
}

func TestTopReadsLive(t *testing.T) {
	l := &fakeLedger{tops: map[int64][]*ledger.Balance{1: balances(7, 50)}}
	svc := newLeaderboardFixture(t, l, &fakeGuilds{}, nil)

	top, err := svc.Top(context.Background(), 1, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(50), top[0].Points)

	_, err = svc.Top(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, l.calls, "Top не кешируется")
}
