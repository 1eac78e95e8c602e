package eligibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/points-engine/internal/cache"
)

type countingOracle struct {
	calls   int
	allowed bool
	err     error
}

func (o *countingOracle) Check(_ context.Context, _ int64) (Result, error) {
	o.calls++
	if o.err != nil {
		return Result{}, o.err
	}
	return Result{Allowed: o.allowed}, nil
}

func newAdapterFixture(t *testing.T, oracle Oracle) *Adapter {
	t.Helper()
	c := cache.New()
	t.Cleanup(c.Close)
	return NewAdapter(oracle, c, time.Minute)
}

func TestCheckDisabledSkipsOracle(t *testing.T) {
	oracle := &countingOracle{allowed: false}
	a := newAdapterFixture(t, oracle)

	res := a.Check(context.Background(), 7, false, true)

	assert.True(t, res.Allowed)
	assert.False(t, res.Active, "при выключенном требовании проверка не active")
	assert.Zero(t, oracle.calls, "оракул не должен вызываться")
}

func TestCheckAllowed(t *testing.T) {
	oracle := &countingOracle{allowed: true}
	a := newAdapterFixture(t, oracle)

	res := a.Check(context.Background(), 7, true, false)

	assert.True(t, res.Allowed)
	assert.True(t, res.Active)
}

func TestCheckCachesAnswer(t *testing.T) {
	oracle := &countingOracle{allowed: true}
	a := newAdapterFixture(t, oracle)

	a.Check(context.Background(), 7, true, false)
	a.Check(context.Background(), 7, true, false)
	a.Check(context.Background(), 7, true, false)

	assert.Equal(t, 1, oracle.calls, "повторы в пределах TTL читают кеш")
}

func TestCheckInvalidate(t *testing.T) {
	oracle := &countingOracle{allowed: true}
	a := newAdapterFixture(t, oracle)

	a.Check(context.Background(), 7, true, false)
	a.Invalidate(7)
	a.Check(context.Background(), 7, true, false)

	assert.Equal(t, 2, oracle.calls)
}

func TestCheckStrictDeniesOnFailure(t *testing.T) {
	oracle := &countingOracle{err: errors.New("сеть недоступна")}
	a := newAdapterFixture(t, oracle)

	res := a.Check(context.Background(), 7, true, true)
	assert.False(t, res.Allowed)
}

func TestCheckLenientAllowsOnFailure(t *testing.T) {
	oracle := &countingOracle{err: errors.New("сеть недоступна")}
	a := newAdapterFixture(t, oracle)

	res := a.Check(context.Background(), 7, true, false)
	assert.True(t, res.Allowed)
}

func TestCheckFailureNotCached(t *testing.T) {
	oracle := &countingOracle{err: errors.New("сеть недоступна")}
	a := newAdapterFixture(t, oracle)

	a.Check(context.Background(), 7, true, false)

	// После восстановления оракула следующий вызов идёт к нему,
	// а не к кешированному аварийному ответу
	oracle.err = nil
	oracle.allowed = false
	res := a.Check(context.Background(), 7, true, false)

	require.Equal(t, 2, oracle.calls)
	assert.False(t, res.Allowed)
}

func TestOracleFunc(t *testing.T) {
	fn := OracleFunc(func(_ context.Context, userID int64) (Result, error) {
		return Result{Allowed: userID == 7}, nil
	})

	res, err := fn.Check(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
