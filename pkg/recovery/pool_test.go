package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/memwarden/agent/pkg/pressure"
)

type fakePool struct {
	maxSize int
}

func (p *fakePool) MaxSize() int     { return p.maxSize }
func (p *fakePool) SetMaxSize(n int) { p.maxSize = n }

type cleanupPool struct {
	fakePool
	cleanups   int
	cleanupErr error
}

func (p *cleanupPool) Cleanup(ctx context.Context) error {
	p.cleanups++
	return p.cleanupErr
}

func TestPoolStrategyGating(t *testing.T) {
	s := NewPoolReductionStrategy(&fakePool{maxSize: 10})

	assert.False(t, s.CanApply(snapAt(pressure.Low)))
	assert.False(t, s.CanApply(snapAt(pressure.Moderate)))
	assert.False(t, s.CanApply(snapAt(pressure.High)), "pool reduction is a last resort, never applied below critical")
	assert.True(t, s.CanApply(snapAt(pressure.Critical)))
	assert.True(t, s.CanApply(snapAt(pressure.Emergency)))
}

func TestPoolStrategyReduction(t *testing.T) {
	pool := &fakePool{maxSize: 100}
	s := NewPoolReductionStrategy(pool)

	out := s.Execute(context.Background(), snapAt(pressure.Critical))

	assert.Equal(t, ActionReduceConnections, out.Action)
	assert.Equal(t, 1, out.PoolsReduced)
	assert.Equal(t, 50, pool.maxSize)
}

func TestPoolStrategyDoesNotRatchet(t *testing.T) {
	pool := &fakePool{maxSize: 100}
	s := NewPoolReductionStrategy(pool)

	s.Execute(context.Background(), snapAt(pressure.Critical))
	assert.Equal(t, 50, pool.maxSize)

	// A second pass recomputes from the remembered original, not from the
	// already-reduced size
	s.Execute(context.Background(), snapAt(pressure.Emergency))
	assert.Equal(t, 50, pool.maxSize, "repeated reductions must not cascade 100->50->25")
}

func TestPoolStrategyMinimumFloor(t *testing.T) {
	pool := &fakePool{maxSize: 1}
	s := NewPoolReductionStrategy(pool)

	s.Execute(context.Background(), snapAt(pressure.Emergency))

	assert.Equal(t, 1, pool.maxSize, "a pool never shrinks below one connection")
}

func TestPoolStrategyCleanup(t *testing.T) {
	healthy := &cleanupPool{fakePool: fakePool{maxSize: 20}}
	broken := &cleanupPool{fakePool: fakePool{maxSize: 30}, cleanupErr: errors.New("close failed")}
	plain := &fakePool{maxSize: 40}

	s := NewPoolReductionStrategy(healthy, broken, plain)
	out := s.Execute(context.Background(), snapAt(pressure.Critical))

	assert.Equal(t, 3, out.PoolsReduced, "a failing cleanup does not undo the reduction")
	assert.Len(t, out.Errors, 1)
	assert.Equal(t, 1, healthy.cleanups)
	assert.Equal(t, 10, healthy.maxSize)
	assert.Equal(t, 15, broken.maxSize)
	assert.Equal(t, 20, plain.maxSize)
}

func TestPoolStrategyRestoreOriginalSizes(t *testing.T) {
	first := &fakePool{maxSize: 100}
	second := &fakePool{maxSize: 8}
	s := NewPoolReductionStrategy(first, second)

	s.Execute(context.Background(), snapAt(pressure.Critical))
	assert.Equal(t, 50, first.maxSize)
	assert.Equal(t, 4, second.maxSize)

	restored := s.RestoreOriginalSizes()
	assert.Equal(t, 2, restored)
	assert.Equal(t, 100, first.maxSize)
	assert.Equal(t, 8, second.maxSize)

	// After a restore the next reduction re-reads the current size
	s.Execute(context.Background(), snapAt(pressure.Critical))
	assert.Equal(t, 50, first.maxSize)
}

func TestPoolStrategyRestoreWithoutReduction(t *testing.T) {
	s := NewPoolReductionStrategy(&fakePool{maxSize: 10})
	assert.Equal(t, 0, s.RestoreOriginalSizes())
}
