package voice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/points-engine/internal/features/eligibility"
	"serotonyl.ru/points-engine/internal/features/settings"
	"serotonyl.ru/points-engine/internal/gateway"
)

// --- фейки ---

type fakeStore struct {
	sessions map[string]*Session
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]*Session)}
}

func key(guildID, userID int64) string {
	return fmt.Sprintf("%d:%d", guildID, userID)
}

func (s *fakeStore) Get(_ context.Context, guildID, userID int64) (*Session, error) {
	sess, ok := s.sessions[key(guildID, userID)]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *fakeStore) Upsert(_ context.Context, sess *Session) error {
	cp := *sess
	s.sessions[key(sess.GuildID, sess.UserID)] = &cp
	return nil
}

func (s *fakeStore) Delete(_ context.Context, guildID, userID int64) error {
	delete(s.sessions, key(guildID, userID))
	return nil
}

type appliedTx struct {
	userID, delta int64
	txType        string
}

type fakeLedger struct {
	applies  []appliedTx
	balances map[int64]int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[int64]int64)}
}

func (l *fakeLedger) Apply(_ context.Context, _, userID, delta int64, txType, _, _ string, _ *int64) (int64, error) {
	l.applies = append(l.applies, appliedTx{userID, delta, txType})
	l.balances[userID] += delta
	return l.balances[userID], nil
}

type fakeFreezer struct {
	frozen map[int64]bool
}

func (f *fakeFreezer) IsFrozen(_ context.Context, _, userID int64) (bool, error) {
	return f.frozen[userID], nil
}

type fakeOracle struct {
	denied map[int64]bool
}

func (o *fakeOracle) Check(_ context.Context, userID int64, enabled, _ bool) eligibility.Result {
	if !enabled {
		return eligibility.Result{Allowed: true}
	}
	return eligibility.Result{Allowed: !o.denied[userID], Active: true}
}

type fakeSettings struct {
	gs *settings.GuildSettings
}

func (s *fakeSettings) Get(_ context.Context, _ int64) (*settings.GuildSettings, error) {
	return s.gs, nil
}

type fakeProvider struct {
	snapshots []gateway.ChannelSnapshot
}

func (p *fakeProvider) Snapshots(_ context.Context) ([]gateway.ChannelSnapshot, error) {
	return p.snapshots, nil
}

// --- окружение ---

type voiceFixture struct {
	svc      *Service
	store    *fakeStore
	ledger   *fakeLedger
	freezer  *fakeFreezer
	oracle   *fakeOracle
	settings *settings.GuildSettings
	provider *fakeProvider
}

// newVoiceFixture: тик 60 секунд, блок 5 минут, 2 очка за блок,
// минимум 2 активных участника (дефолты гильдии).
func newVoiceFixture() *voiceFixture {
	gs := settings.Defaults(1)
	store := newFakeStore()
	l := newFakeLedger()
	fr := &fakeFreezer{frozen: make(map[int64]bool)}
	or := &fakeOracle{denied: make(map[int64]bool)}
	pr := &fakeProvider{}
	svc := NewService(store, l, fr, or, &fakeSettings{gs: gs}, pr, time.Minute)
	return &voiceFixture{svc: svc, store: store, ledger: l, freezer: fr, oracle: or, settings: gs, provider: pr}
}

func channel(channelID int64, userIDs ...int64) gateway.ChannelSnapshot {
	snap := gateway.ChannelSnapshot{GuildID: 1, ChannelID: channelID}
	for _, id := range userIDs {
		snap.Participants = append(snap.Participants, gateway.VoiceParticipant{UserID: id})
	}
	return snap
}

func (f *voiceFixture) ticks(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.svc.Tick(context.Background()))
	}
}

func TestTickAlonePaysNothing(t *testing.T) {
	f := newVoiceFixture()
	f.provider.snapshots = []gateway.ChannelSnapshot{channel(10, 7)}

	// Один участник при минимуме 2: время не копится и очки не платятся
	f.ticks(t, 10)

	assert.Empty(t, f.ledger.applies)
	assert.Nil(t, f.store.sessions[key(1, 7)])
}

func TestTickPairEarnsPerBlock(t *testing.T) {
	f := newVoiceFixture()
	f.provider.snapshots = []gateway.ChannelSnapshot{channel(10, 7, 8)}

	// 4 тика по минуте: блок в 5 минут ещё не полон
	f.ticks(t, 4)
	assert.Empty(t, f.ledger.applies)
	assert.Equal(t, int64(240), f.store.sessions[key(1, 7)].AccumulatedSeconds)

	// Пятый тик закрывает блок: каждому по 2 очка, остаток обнулён
	f.ticks(t, 1)
	assert.Equal(t, int64(2), f.ledger.balances[7])
	assert.Equal(t, int64(2), f.ledger.balances[8])
	assert.Equal(t, int64(0), f.store.sessions[key(1, 7)].AccumulatedSeconds)
}

func TestTickMultipleBlocksOneTransaction(t *testing.T) {
	f := newVoiceFixture()
	f.provider.snapshots = []gateway.ChannelSnapshot{channel(10, 7, 8)}
	// Тик длиннее двух блоков: после пропуска планировщика
	f.svc.tick = 11 * time.Minute

	f.ticks(t, 1)

	// 660 секунд = 2 полных блока + 60 секунд остатка, одной транзакцией
	require.Len(t, f.ledger.applies, 2) // по одной на каждого участника
	assert.Equal(t, int64(4), f.ledger.balances[7])
	assert.Equal(t, int64(60), f.store.sessions[key(1, 7)].AccumulatedSeconds)
}

func TestTickMutedExcludedFromThreshold(t *testing.T) {
	f := newVoiceFixture()
	snap := channel(10, 7)
	snap.Participants = append(snap.Participants, gateway.VoiceParticipant{UserID: 8, ServerMuted: true})
	f.provider.snapshots = []gateway.ChannelSnapshot{snap}

	// Замьюченный не считается активным: порог в 2 не достигнут,
	// не платят никому
	f.ticks(t, 5)
	assert.Empty(t, f.ledger.applies)
}

func TestTickDeafenedExcluded(t *testing.T) {
	f := newVoiceFixture()
	snap := channel(10, 7, 8)
	snap.Participants = append(snap.Participants, gateway.VoiceParticipant{UserID: 9, SelfDeafened: true})
	f.provider.snapshots = []gateway.ChannelSnapshot{snap}

	f.ticks(t, 5)

	// Активная пара получает очки, заглушённый — нет
	assert.Equal(t, int64(2), f.ledger.balances[7])
	assert.Equal(t, int64(2), f.ledger.balances[8])
	assert.Zero(t, f.ledger.balances[9])
	assert.Nil(t, f.store.sessions[key(1, 9)], "время заглушённого не копится")
}

func TestTickBotsDontCount(t *testing.T) {
	f := newVoiceFixture()
	snap := channel(10, 7)
	snap.Participants = append(snap.Participants, gateway.VoiceParticipant{UserID: 99, IsBot: true})
	f.provider.snapshots = []gateway.ChannelSnapshot{snap}

	f.ticks(t, 5)
	assert.Empty(t, f.ledger.applies)
}

func TestTickFrozenSkippedIndividually(t *testing.T) {
	f := newVoiceFixture()
	f.provider.snapshots = []gateway.ChannelSnapshot{channel(10, 7, 8)}
	f.freezer.frozen[7] = true

	f.ticks(t, 5)

	// Замороженный не копит и не получает, но для порога он активен:
	// сосед продолжает зарабатывать
	assert.Zero(t, f.ledger.balances[7])
	assert.Nil(t, f.store.sessions[key(1, 7)])
	assert.Equal(t, int64(2), f.ledger.balances[8])
}

func TestTickOracleDeniedSkipped(t *testing.T) {
	f := newVoiceFixture()
	f.settings.OracleEnabled = true
	f.provider.snapshots = []gateway.ChannelSnapshot{channel(10, 7, 8)}
	f.oracle.denied[7] = true

	f.ticks(t, 5)

	assert.Zero(t, f.ledger.balances[7])
	assert.Equal(t, int64(2), f.ledger.balances[8])
}

func TestTickChannelFilter(t *testing.T) {
	f := newVoiceFixture()
	f.settings.AllowedChannels = []int64{20}
	f.provider.snapshots = []gateway.ChannelSnapshot{
		channel(10, 7, 8), // вне allow-списка
		channel(20, 3, 4),
	}

	f.ticks(t, 5)

	assert.Zero(t, f.ledger.balances[7])
	assert.Equal(t, int64(2), f.ledger.balances[3])
}

func TestTickDisabledGuild(t *testing.T) {
	f := newVoiceFixture()
	f.settings.Enabled = false
	f.provider.snapshots = []gateway.ChannelSnapshot{channel(10, 7, 8)}

	f.ticks(t, 5)
	assert.Empty(t, f.ledger.applies)
}

func TestTickZeroBlockMinutesDoesNotPanic(t *testing.T) {
	f := newVoiceFixture()
	f.provider.snapshots = []gateway.ChannelSnapshot{channel(10, 7, 8)}
	// Строка настроек испорчена мимо сервиса: на длительность блока
	// делится накопленное время, тик обязан пережить ноль
	f.settings.CallBlockMinutes = 0

	assert.NotPanics(t, func() { f.ticks(t, 5) })
	assert.Empty(t, f.ledger.applies)
	assert.Nil(t, f.store.sessions[key(1, 7)], "время при испорченном блоке не копится")
}

func TestTickZeroCallPointsDisablesAccrual(t *testing.T) {
	f := newVoiceFixture()
	f.provider.snapshots = []gateway.ChannelSnapshot{channel(10, 7, 8)}
	f.settings.CallPoints = 0

	f.ticks(t, 10)
	assert.Empty(t, f.ledger.applies)
}

func TestTickAccumulationSurvivesChannelMove(t *testing.T) {
	f := newVoiceFixture()

	// 3 минуты в одном канале
	f.provider.snapshots = []gateway.ChannelSnapshot{channel(10, 7, 8)}
	f.ticks(t, 3)

	// Переход в другой канал не сбрасывает накопленное
	f.provider.snapshots = []gateway.ChannelSnapshot{channel(11, 7, 8)}
	f.ticks(t, 2)

	assert.Equal(t, int64(2), f.ledger.balances[7])
	assert.Equal(t, int64(11), f.store.sessions[key(1, 7)].ChannelID)
}

func TestHandleLeaveDiscardsRemainder(t *testing.T) {
	f := newVoiceFixture()
	f.provider.snapshots = []gateway.ChannelSnapshot{channel(10, 7, 8)}
	f.ticks(t, 3)
	require.NotNil(t, f.store.sessions[key(1, 7)])

	// Полный выход: сессия удаляется, 180 секунд сгорают
	err := f.svc.HandleLeave(context.Background(), gateway.VoiceLeft{GuildID: 1, UserID: 7})
	require.NoError(t, err)
	assert.Nil(t, f.store.sessions[key(1, 7)])

	// Возвращение начинает отсчёт с нуля
	f.ticks(t, 4)
	assert.Zero(t, f.ledger.balances[7])
	f.ticks(t, 1)
	assert.Equal(t, int64(2), f.ledger.balances[7])
}
