package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/evslot/core/charging"
	"github.com/kilianp07/evslot/core/completion"
	"github.com/kilianp07/evslot/core/events"
	"github.com/kilianp07/evslot/core/ledger"
	"github.com/kilianp07/evslot/core/logger"
	"github.com/kilianp07/evslot/core/metrics"
	"github.com/kilianp07/evslot/core/model"
	"github.com/kilianp07/evslot/core/monitoring"
)

// Status is the answer to a single vehicle status query.
type Status struct {
	Plate       string
	EstimatedAt time.Time
	Completed   bool
}

// Engine drives the workflows spanning the ledger and the completion index.
// It owns both stores and closes them in Close.
type Engine struct {
	ledger       ledger.Ledger
	index        completion.Index
	now          func() time.Time
	log          logger.Logger
	sink         metrics.Sink
	events       events.Publisher
	open         Opener
	maxLineBytes int
}

// Opener resolves an import source name, such as a URL or a file path, into a
// readable stream.
type Opener func(ctx context.Context, src string) (io.ReadCloser, error)

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(e *Engine) { e.log = l } }

// WithMetrics sets the metrics sink.
func WithMetrics(s metrics.Sink) Option { return func(e *Engine) { e.sink = s } }

// WithPublisher sets the destination of ready and retired events.
func WithPublisher(p events.Publisher) Option { return func(e *Engine) { e.events = p } }

// WithSource sets how ImportURL resolves source names.
func WithSource(open Opener) Option { return func(e *Engine) { e.open = open } }

// WithMaxLineBytes bounds import line length.
func WithMaxLineBytes(n int) Option { return func(e *Engine) { e.maxLineBytes = n } }

// New returns an Engine over the given stores.
func New(l ledger.Ledger, idx completion.Index, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		ledger:       l,
		index:        idx,
		now:          time.Now,
		log:          log,
		sink:         metrics.NopSink{},
		events:       events.NopPublisher{},
		maxLineBytes: DefaultMaxLineBytes,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Vehicles lists ledger records, including retired history, sorted by plate.
func (e *Engine) Vehicles(ctx context.Context, f ledger.Filter) ([]model.Record, error) {
	recs, err := e.ledger.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return recs, nil
}

func (e *Engine) clock() time.Time { return e.now().UTC() }

// Ingest records one vehicle: the ledger is upserted with the accrual clock
// starting now, then the predicted completion time is written to the index.
func (e *Engine) Ingest(ctx context.Context, p model.Params) (time.Time, error) {
	now := e.clock()
	rec, err := e.ledger.Upsert(ctx, p, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("upsert %s: %w", p.Plate, err)
	}
	at := charging.CompletionTime(rec.CurrentCharge, rec.TotalCharge, rec.DesiredPercentage, now)
	if err := e.index.Set(ctx, rec.Plate, at); err != nil {
		monitoring.CaptureStoreFault("completion", "set", rec.Plate, err)
		return time.Time{}, fmt.Errorf("index %s: %w", rec.Plate, err)
	}
	return at, nil
}

// ImportBatch ingests every line of r and returns how many were imported.
// Malformed or rejected lines are logged and skipped. An error, always
// wrapping ErrTransport, is returned only when r fails or ctx ends. The count
// returned with it is the number of vehicles already committed to both stores
// before the failure; they stay imported and a retry of the same source
// re-ingests them idempotently.
func (e *Engine) ImportBatch(ctx context.Context, r io.Reader) (int, error) {
	start := time.Now()
	batch := uuid.NewString()
	imported, skipped := 0, 0
	err := scanLines(r, e.maxLineBytes, func(line string, lerr error) {
		if ctx.Err() != nil {
			return
		}
		if lerr == nil && isBlank(line) {
			return
		}
		if lerr == nil {
			var p model.Params
			if p, lerr = ParseLine(line); lerr == nil {
				_, lerr = e.Ingest(ctx, p)
			}
		}
		if lerr != nil {
			skipped++
			e.log.Errorw("could not import vehicle", map[string]any{
				"batch": batch,
				"line":  trimLine(line),
				"error": lerr.Error(),
			})
			return
		}
		imported++
	})
	if err == nil {
		err = ctx.Err()
	}
	ev := metrics.ImportEvent{
		BatchID:  batch,
		Imported: imported,
		Skipped:  skipped,
		Failed:   err != nil,
		Duration: time.Since(start),
		Time:     e.clock(),
	}
	if merr := e.sink.RecordImport(ev); merr != nil {
		e.log.Warnf("record import metrics: %v", merr)
	}
	if err != nil {
		return imported, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	e.log.Infof("batch %s imported %d vehicles, skipped %d", batch, imported, skipped)
	return imported, nil
}

// ImportURL opens src and imports its content with ImportBatch. A source that
// cannot be opened yields zero records and ErrTransport.
func (e *Engine) ImportURL(ctx context.Context, src string) (int, error) {
	if e.open == nil {
		return 0, fmt.Errorf("%w: no source opener configured", ErrTransport)
	}
	rc, err := e.open(ctx, src)
	if err != nil {
		e.log.Errorw("could not open import source", map[string]any{
			"source": src,
			"error":  err.Error(),
		})
		return 0, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() { _ = rc.Close() }()
	return e.ImportBatch(ctx, rc)
}

// ListReady refreshes the charge of every tracked vehicle and returns those
// whose predicted completion time has passed, sorted by plate.
func (e *Engine) ListReady(ctx context.Context) ([]model.Record, error) {
	start := time.Now()
	entries, err := e.index.List(ctx)
	if err != nil {
		monitoring.CaptureStoreFault("completion", "list", "", err)
		return nil, fmt.Errorf("list completion index: %w", err)
	}
	now := e.clock()
	var ready []model.Record
	obs := make([]metrics.ChargeObservation, 0, len(entries))
	skipped := 0
	for _, entry := range entries {
		rec, err := e.refresh(ctx, entry.Plate, now)
		if errors.Is(err, errSkip) {
			skipped++
			continue
		}
		if err != nil {
			return nil, err
		}
		done := !entry.At.After(now)
		obs = append(obs, metrics.ChargeObservation{
			Plate:         rec.Plate,
			CurrentCharge: rec.CurrentCharge,
			TotalCharge:   rec.TotalCharge,
			Ready:         done,
			Context:       "refresh",
			Time:          now,
		})
		if !done {
			continue
		}
		ready = append(ready, rec)
		e.events.Publish(events.VehicleEvent{
			Kind:          events.KindReady,
			Plate:         rec.Plate,
			CurrentCharge: rec.CurrentCharge,
			TotalCharge:   rec.TotalCharge,
			EstimatedAt:   entry.At,
			Time:          now,
		})
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].Plate < ready[j].Plate })
	e.recordRefresh(metrics.RefreshEvent{
		Tracked:  len(entries),
		Ready:    len(ready),
		Skipped:  skipped,
		Duration: time.Since(start),
		Time:     now,
	}, obs)
	return ready, nil
}

var errSkip = errors.New("skip")

// refresh accrues charge for plate up to now and advances its clock.
func (e *Engine) refresh(ctx context.Context, plate string, now time.Time) (model.Record, error) {
	rec, err := e.ledger.Get(ctx, plate)
	if errors.Is(err, ledger.ErrNotFound) {
		e.log.Warnf("tracked plate %s has no ledger record, skipping", plate)
		return rec, errSkip
	}
	if err != nil {
		return rec, fmt.Errorf("load %s: %w", plate, err)
	}
	if !rec.Occupied() {
		e.log.Warnf("tracked plate %s is %s in the ledger, skipping", plate, rec.Status)
		return rec, errSkip
	}
	charge := charging.Accrue(rec.CurrentCharge, rec.TotalCharge, rec.StartTime, now)
	if err := e.ledger.UpdateChargeAndClock(ctx, plate, charge, now); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return rec, errSkip
		}
		return rec, fmt.Errorf("refresh %s: %w", plate, err)
	}
	rec.CurrentCharge = charge
	rec.StartTime = now
	return rec, nil
}

// GetStatus returns the predicted completion time of plate and whether it has
// passed. Only the completion index is consulted.
func (e *Engine) GetStatus(ctx context.Context, plate string) (Status, error) {
	at, err := e.lookup(ctx, plate)
	if err != nil {
		return Status{}, err
	}
	return Status{Plate: plate, EstimatedAt: at, Completed: !at.After(e.clock())}, nil
}

// Retire stops tracking plate and returns its final charge. The ledger record
// is kept with its charge frozen.
func (e *Engine) Retire(ctx context.Context, plate string) (int, error) {
	if _, err := e.lookup(ctx, plate); err != nil {
		return 0, err
	}
	if err := e.index.Delete(ctx, plate); err != nil {
		monitoring.CaptureStoreFault("completion", "delete", plate, err)
		return 0, fmt.Errorf("untrack %s: %w", plate, err)
	}
	rec, err := e.ledger.Get(ctx, plate)
	if errors.Is(err, ledger.ErrNotFound) {
		e.log.Warnf("removed completion entry of %s without ledger record", plate)
		return 0, fmt.Errorf("%w: %s", ErrNotFound, plate)
	}
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", plate, err)
	}
	if !rec.Occupied() {
		e.log.Warnf("removed stale completion entry of %s, already %s", plate, rec.Status)
		return rec.CurrentCharge, nil
	}
	now := e.clock()
	charge := charging.Accrue(rec.CurrentCharge, rec.TotalCharge, rec.StartTime, now)
	if err := e.ledger.SetRetired(ctx, plate, charge); err != nil {
		return 0, fmt.Errorf("retire %s: %w", plate, err)
	}
	e.recordRetire(rec, charge, now)
	e.events.Publish(events.VehicleEvent{
		Kind:          events.KindRetired,
		Plate:         plate,
		CurrentCharge: charge,
		TotalCharge:   rec.TotalCharge,
		Time:          now,
	})
	return charge, nil
}

func (e *Engine) lookup(ctx context.Context, plate string) (time.Time, error) {
	at, err := e.index.Get(ctx, plate)
	if errors.Is(err, completion.ErrNotFound) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, plate)
	}
	if err != nil {
		monitoring.CaptureStoreFault("completion", "get", plate, err)
		return time.Time{}, fmt.Errorf("lookup %s: %w", plate, err)
	}
	return at, nil
}

// Close releases both stores.
func (e *Engine) Close() error {
	return errors.Join(e.index.Close(), e.ledger.Close())
}

func (e *Engine) recordRefresh(ev metrics.RefreshEvent, obs []metrics.ChargeObservation) {
	if rec, ok := e.sink.(metrics.RefreshRecorder); ok {
		if err := rec.RecordRefresh(ev); err != nil {
			e.log.Warnf("record refresh metrics: %v", err)
		}
	}
	if rec, ok := e.sink.(metrics.ChargeRecorder); ok && len(obs) > 0 {
		if err := rec.RecordCharge(obs); err != nil {
			e.log.Warnf("record charge metrics: %v", err)
		}
	}
}

func (e *Engine) recordRetire(r model.Record, charge int, now time.Time) {
	if rec, ok := e.sink.(metrics.RetireRecorder); ok {
		if err := rec.RecordRetire(metrics.RetireEvent{Plate: r.Plate, FinalCharge: charge, Time: now}); err != nil {
			e.log.Warnf("record retire metrics: %v", err)
		}
	}
	if rec, ok := e.sink.(metrics.ChargeRecorder); ok {
		obs := metrics.ChargeObservation{
			Plate:         r.Plate,
			CurrentCharge: charge,
			TotalCharge:   r.TotalCharge,
			Ready:         100*charge >= r.DesiredPercentage*r.TotalCharge,
			Context:       "retire",
			Time:          now,
		}
		if err := rec.RecordCharge([]metrics.ChargeObservation{obs}); err != nil {
			e.log.Warnf("record charge metrics: %v", err)
		}
	}
}

func isBlank(line string) bool {
	for _, c := range line {
		if c != ' ' && c != '\t' && c != '\r' && c != '\n' {
			return false
		}
	}
	return true
}

func trimLine(line string) string {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
