// Package ledgertest provides a behaviour suite shared by every Ledger
// implementation.
package ledgertest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evslot/core/ledger"
	"github.com/kilianp07/evslot/core/model"
)

// Factory returns an empty ledger. The suite closes it.
type Factory func(t *testing.T) ledger.Ledger

var t0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// Run executes the suite against ledgers produced by newLedger.
func Run(t *testing.T, newLedger Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, l ledger.Ledger)
	}{
		{"UpsertInsertsOccupied", testUpsertInserts},
		{"UpsertPreservesIdentity", testUpsertPreservesIdentity},
		{"UpsertRejectsInvalid", testUpsertRejectsInvalid},
		{"GetMissing", testGetMissing},
		{"UpdateChargeAndClock", testUpdateChargeAndClock},
		{"UpdateRejectsOverCapacity", testUpdateRejectsOverCapacity},
		{"SetRetiredKeepsHistory", testSetRetired},
		{"SetRetiredTwice", testSetRetiredTwice},
		{"ReparkRetired", testReparkRetired},
		{"ListFilter", testListFilter},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := newLedger(t)
			t.Cleanup(func() { _ = l.Close() })
			tc.fn(t, l)
		})
	}
}

func params(plate string, current, total, desired int) model.Params {
	return model.Params{Plate: plate, CurrentCharge: current, TotalCharge: total, DesiredPercentage: desired}
}

func testUpsertInserts(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	rec, err := l.Upsert(ctx, params("XXXXX", 0, 1000, 50), t0)
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.Equal(t, model.StatusOccupied, rec.Status)

	got, err := l.Get(ctx, "XXXXX")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, 1000, got.TotalCharge)
	assert.Equal(t, 50, got.DesiredPercentage)
	assert.True(t, got.StartTime.Equal(t0), "start time %v", got.StartTime)
	assert.True(t, got.Occupied())
}

func testUpsertPreservesIdentity(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	first, err := l.Upsert(ctx, params("X", 50, 100, 20), t0)
	require.NoError(t, err)
	second, err := l.Upsert(ctx, params("X", 10, 200, 90), t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := l.List(ctx, ledger.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 10, all[0].CurrentCharge)
	assert.Equal(t, 200, all[0].TotalCharge)
	assert.Equal(t, 90, all[0].DesiredPercentage)
	assert.True(t, all[0].StartTime.Equal(t0.Add(time.Minute)))
}

func testUpsertRejectsInvalid(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	for _, p := range []model.Params{
		params("A", -1, 100, 50),
		params("A", 100, -1, 50),
		params("A", 100, 10, 50),
		params("A", 50, 100, -1),
		params("A", 50, 100, 105),
	} {
		_, err := l.Upsert(ctx, p, t0)
		assert.ErrorIs(t, err, ledger.ErrConstraintViolation, "%+v", p)
	}
	all, err := l.List(ctx, ledger.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testGetMissing(t *testing.T, l ledger.Ledger) {
	_, err := l.Get(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	err = l.UpdateChargeAndClock(context.Background(), "NOPE", 1, t0)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	err = l.SetRetired(context.Background(), "NOPE", 1)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func testUpdateChargeAndClock(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	_, err := l.Upsert(ctx, params("A", 50, 100, 90), t0)
	require.NoError(t, err)
	later := t0.Add(10 * time.Second)
	require.NoError(t, l.UpdateChargeAndClock(ctx, "A", 60, later))
	got, err := l.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 60, got.CurrentCharge)
	assert.True(t, got.StartTime.Equal(later))
}

func testUpdateRejectsOverCapacity(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	_, err := l.Upsert(ctx, params("A", 50, 100, 90), t0)
	require.NoError(t, err)
	err = l.UpdateChargeAndClock(ctx, "A", 101, t0.Add(time.Second))
	assert.ErrorIs(t, err, ledger.ErrConstraintViolation)
	got, err := l.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 50, got.CurrentCharge, "charge must not change")
	assert.True(t, got.StartTime.Equal(t0), "clock must not change")
}

func testSetRetired(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	_, err := l.Upsert(ctx, params("A", 50, 100, 90), t0)
	require.NoError(t, err)
	require.NoError(t, l.SetRetired(ctx, "A", 75))
	got, err := l.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRetired, got.Status)
	assert.False(t, got.Occupied())
	assert.Equal(t, 75, got.CurrentCharge)
}

func testSetRetiredTwice(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	_, err := l.Upsert(ctx, params("A", 50, 100, 90), t0)
	require.NoError(t, err)
	require.NoError(t, l.SetRetired(ctx, "A", 75))
	err = l.SetRetired(ctx, "A", 80)
	assert.True(t, errors.Is(err, model.ErrInvalidTransition), "got %v", err)
	got, err := l.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 75, got.CurrentCharge)
}

func testReparkRetired(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	first, err := l.Upsert(ctx, params("A", 50, 100, 90), t0)
	require.NoError(t, err)
	require.NoError(t, l.SetRetired(ctx, "A", 75))
	again, err := l.Upsert(ctx, params("A", 20, 100, 60), t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, model.StatusOccupied, again.Status)
}

func testListFilter(t *testing.T, l ledger.Ledger) {
	ctx := context.Background()
	for _, plate := range []string{"C", "A", "B"} {
		_, err := l.Upsert(ctx, params(plate, 10, 100, 50), t0)
		require.NoError(t, err)
	}
	require.NoError(t, l.SetRetired(ctx, "B", 10))

	all, err := l.List(ctx, ledger.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"A", "B", "C"}, plates(all))

	occ, err := l.List(ctx, ledger.Filter{Status: model.StatusOccupied})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, plates(occ))

	ret, err := l.List(ctx, ledger.Filter{Status: model.StatusRetired})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, plates(ret))
}

func plates(recs []model.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Plate
	}
	return out
}
