package punish

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/points-engine/internal/cache"
	"serotonyl.ru/points-engine/internal/common"
	"serotonyl.ru/points-engine/internal/features/ledger"
)

// --- фейки ---

type fakeStore struct {
	punishments []*Punishment
}

func (s *fakeStore) Create(_ context.Context, p *Punishment) error {
	cp := *p
	cp.ID = int64(len(s.punishments) + 1)
	cp.Active = true
	s.punishments = append(s.punishments, &cp)
	return nil
}

func (s *fakeStore) Deactivate(_ context.Context, guildID, userID int64) error {
	for _, p := range s.punishments {
		if p.GuildID == guildID && p.UserID == userID && p.Active {
			p.Active = false
			now := time.Now()
			p.LiftedAt = &now
		}
	}
	return nil
}

func (s *fakeStore) GetActive(_ context.Context, guildID, userID int64) (*Punishment, error) {
	for i := len(s.punishments) - 1; i >= 0; i-- {
		p := s.punishments[i]
		if p.GuildID == guildID && p.UserID == userID && p.Active {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) History(_ context.Context, guildID, userID int64) ([]*Punishment, error) {
	var out []*Punishment
	for _, p := range s.punishments {
		if p.GuildID == guildID && p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeBalances struct {
	frozen map[string]*time.Time
}

func newFakeBalances() *fakeBalances {
	return &fakeBalances{frozen: make(map[string]*time.Time)}
}

func bkey(guildID, userID int64) string {
	return fmt.Sprintf("%d:%d", guildID, userID)
}

func (b *fakeBalances) Get(_ context.Context, guildID, userID int64) (*ledger.Balance, error) {
	return &ledger.Balance{
		GuildID:     guildID,
		UserID:      userID,
		FrozenUntil: b.frozen[bkey(guildID, userID)],
	}, nil
}

func (b *fakeBalances) SetFrozenUntil(_ context.Context, guildID, userID int64, until *time.Time) error {
	b.frozen[bkey(guildID, userID)] = until
	return nil
}

// --- окружение ---

type punishFixture struct {
	svc      *Service
	store    *fakeStore
	balances *fakeBalances
	cache    *cache.Cache
	now      time.Time
}

func newPunishFixture(t *testing.T) *punishFixture {
	t.Helper()
	c := cache.New()
	t.Cleanup(c.Close)

	f := &punishFixture{
		store:    &fakeStore{},
		balances: newFakeBalances(),
		cache:    c,
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.balances, c, 30*time.Second)
	f.svc.clock = func() time.Time { return f.now }
	return f
}

func TestFreezeAndIsFrozen(t *testing.T) {
	f := newPunishFixture(t)
	expires := f.now.Add(time.Hour)

	require.NoError(t, f.svc.Freeze(context.Background(), 1, 7, &expires, "спам", 999))

	frozen, err := f.svc.IsFrozen(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, frozen)

	// Посторонний не затронут
	frozen, err = f.svc.IsFrozen(context.Background(), 1, 8)
	require.NoError(t, err)
	assert.False(t, frozen)
}

func TestFreezeIndefinite(t *testing.T) {
	f := newPunishFixture(t)

	require.NoError(t, f.svc.Freeze(context.Background(), 1, 7, nil, "бессрочно", 999))

	// На балансе — сентинел далёкого будущего, а не NULL
	until := f.balances.frozen[bkey(1, 7)]
	require.NotNil(t, until)
	assert.True(t, until.Equal(common.IndefiniteFreeze))

	// Заморозка держится сколь угодно долго
	f.now = f.now.AddDate(10, 0, 0)
	frozen, err := f.svc.IsFrozen(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, frozen)
}

func TestLiftClearsFreeze(t *testing.T) {
	f := newPunishFixture(t)
	expires := f.now.Add(time.Hour)
	require.NoError(t, f.svc.Freeze(context.Background(), 1, 7, &expires, "спам", 999))

	require.NoError(t, f.svc.Lift(context.Background(), 1, 7))

	// Кеш инвалидирован Lift-ом: читаем свежее состояние, не TTL
	frozen, err := f.svc.IsFrozen(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.False(t, frozen)
	assert.Nil(t, f.balances.frozen[bkey(1, 7)])
}

func TestIsFrozenExpiredLazyLift(t *testing.T) {
	f := newPunishFixture(t)
	expires := f.now.Add(time.Hour)
	require.NoError(t, f.svc.Freeze(context.Background(), 1, 7, &expires, "спам", 999))

	// Срок вышел: чтение само снимает заморозку
	f.now = f.now.Add(2 * time.Hour)
	frozen, err := f.svc.IsFrozen(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.False(t, frozen)

	assert.Nil(t, f.balances.frozen[bkey(1, 7)], "frozen_until очищен лениво")
	active, _ := f.store.GetActive(context.Background(), 1, 7)
	assert.Nil(t, active, "наказание деактивировано лениво")
}

func TestFreezeDoesNotTouchPoints(t *testing.T) {
	f := newPunishFixture(t)

	// Freeze работает только с frozen_until и записью наказания
	require.NoError(t, f.svc.Freeze(context.Background(), 1, 7, nil, "спам", 999))
	require.NoError(t, f.svc.Lift(context.Background(), 1, 7))

	history, err := f.svc.History(context.Background(), 1, 7)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Active, "история сохраняется после снятия")
	assert.NotNil(t, history[0].LiftedAt)
}

func TestStatusNotFound(t *testing.T) {
	f := newPunishFixture(t)

	_, err := f.svc.Status(context.Background(), 1, 7)
	assert.ErrorIs(t, err, common.ErrPunishmentNotFound)
}

func TestStatusReturnsActive(t *testing.T) {
	f := newPunishFixture(t)
	require.NoError(t, f.svc.Freeze(context.Background(), 1, 7, nil, "спам", 999))

	p, err := f.svc.Status(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, "спам", p.Reason)
	assert.True(t, p.Indefinite())
}

func TestIsFrozenUsesCache(t *testing.T) {
	f := newPunishFixture(t)
	expires := f.now.Add(time.Hour)
	require.NoError(t, f.svc.Freeze(context.Background(), 1, 7, &expires, "спам", 999))

	frozen, err := f.svc.IsFrozen(context.Background(), 1, 7)
	require.NoError(t, err)
	require.True(t, frozen)

	// Подменяем хранилище за спиной кеша: ответ остаётся кешированным
	f.balances.frozen[bkey(1, 7)] = nil
	frozen, err = f.svc.IsFrozen(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, frozen, "в пределах TTL читается кеш")
}
