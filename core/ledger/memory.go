package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/evslot/core/model"
)

// MemoryLedger keeps records in memory for tests or lightweight usage.
type MemoryLedger struct {
	mu     sync.Mutex
	nextID int64
	data   map[string]model.Record
}

// NewMemoryLedger returns an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{data: map[string]model.Record{}}
}

func (l *MemoryLedger) Upsert(ctx context.Context, p model.Params, start time.Time) (model.Record, error) {
	if err := p.Validate(); err != nil {
		return model.Record{}, fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.data[p.Plate]
	status, err := model.Next(ctx, rec.Status, model.EventPark)
	if err != nil {
		return model.Record{}, err
	}
	if !ok {
		l.nextID++
		rec.ID = l.nextID
	}
	rec.Params = p
	rec.StartTime = start.UTC()
	rec.Status = status
	l.data[p.Plate] = rec
	return rec, nil
}

func (l *MemoryLedger) Get(_ context.Context, plate string) (model.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.data[plate]
	if !ok {
		return model.Record{}, fmt.Errorf("%w: %s", ErrNotFound, plate)
	}
	return rec, nil
}

func (l *MemoryLedger) UpdateChargeAndClock(_ context.Context, plate string, charge int, start time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.data[plate]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, plate)
	}
	next := rec.Params
	next.CurrentCharge = charge
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}
	rec.Params = next
	rec.StartTime = start.UTC()
	l.data[plate] = rec
	return nil
}

func (l *MemoryLedger) SetRetired(ctx context.Context, plate string, finalCharge int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.data[plate]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, plate)
	}
	status, err := model.Next(ctx, rec.Status, model.EventRetire)
	if err != nil {
		return err
	}
	next := rec.Params
	next.CurrentCharge = finalCharge
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}
	rec.Params = next
	rec.Status = status
	l.data[plate] = rec
	return nil
}

func (l *MemoryLedger) List(_ context.Context, f Filter) ([]model.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	res := make([]model.Record, 0, len(l.data))
	for _, rec := range l.data {
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Plate < res[j].Plate })
	return res, nil
}

func (l *MemoryLedger) Close() error { return nil }
