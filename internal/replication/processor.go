package replication

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrQueueFull is reported when a job is dropped because the queue is at capacity
var ErrQueueFull = errors.New("replication queue is full")

// Kind selects the target sheet
type Kind string

const (
	KindOrder    Kind = "order"
	KindPlatform Kind = "platform"
)

type op string

const (
	opFullSync  op = "full_sync"
	opAppend    op = "append"
	opUpdateRow op = "update_row"
	opDeleteRow op = "delete_row"
	opBarrier   op = "barrier"
)

type job struct {
	id       string
	op       op
	kind     Kind
	entityID uint
	row      []interface{}
	rows     [][]interface{}
	done     chan struct{}
}

// Config tunes the replication worker
type Config struct {
	QueueSize      int
	CallTimeout    time.Duration // per spreadsheet job
	DrainTimeout   time.Duration // how long shutdown keeps draining queued jobs; zero drains everything
	OrdersSheet    string
	PlatformsSheet string
}

// Stats is a snapshot of the worker counters
type Stats struct {
	Queued       int        `json:"queued"`
	Capacity     int        `json:"capacity"`
	Enqueued     int64      `json:"enqueued"`
	Dropped      int64      `json:"dropped"`
	Succeeded    int64      `json:"succeeded"`
	Failed       int64      `json:"failed"`
	LastError    string     `json:"last_error,omitempty"`
	LastErrorAt  *time.Time `json:"last_error_at,omitempty"`
	LastFullSync *time.Time `json:"last_full_sync,omitempty"`
}

// Processor drains the bounded replication queue into a Spreadsheet on one goroutine,
// so writes to a sheet are applied in commit order.
type Processor struct {
	sheet        Spreadsheet
	sheets       map[Kind]string
	jobs         chan job
	callTimeout  time.Duration
	drainTimeout time.Duration
	stopped      chan struct{}

	enqueued  atomic.Int64
	dropped   atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64

	mu           sync.Mutex
	lastErr      string
	lastErrAt    time.Time
	lastFullSync time.Time
}

func NewProcessor(sheet Spreadsheet, cfg Config) *Processor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	if cfg.OrdersSheet == "" {
		cfg.OrdersSheet = "Orders"
	}
	if cfg.PlatformsSheet == "" {
		cfg.PlatformsSheet = "Platforms"
	}

	return &Processor{
		sheet: sheet,
		sheets: map[Kind]string{
			KindOrder:    cfg.OrdersSheet,
			KindPlatform: cfg.PlatformsSheet,
		},
		jobs:         make(chan job, cfg.QueueSize),
		callTimeout:  cfg.CallTimeout,
		drainTimeout: cfg.DrainTimeout,
		stopped:      make(chan struct{}),
	}
}

// Start runs the worker until ctx is cancelled, then keeps draining queued jobs for at
// most the configured drain timeout. Whatever is still queued afterwards is lost.
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "replication_processor").Logger()
	logger.Info().Int("capacity", cap(p.jobs)).Msg("starting replication processor")
	defer close(p.stopped)

	for {
		select {
		case <-ctx.Done():
			p.drain()
			logger.Info().Msg("shutting down replication processor")
			return
		case j := <-p.jobs:
			p.run(context.Background(), j)
		}
	}
}

// Stopped is closed once Start has returned
func (p *Processor) Stopped() <-chan struct{} {
	return p.stopped
}

func (p *Processor) drain() {
	logger := log.With().Str("component", "replication_processor").Logger()

	ctx := context.Background()
	if p.drainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.drainTimeout)
		defer cancel()
	}

	for ctx.Err() == nil {
		select {
		case j := <-p.jobs:
			p.run(ctx, j)
		default:
			return
		}
	}

	remaining := 0
	for {
		select {
		case j := <-p.jobs:
			remaining++
			p.dropped.Add(1)
			if j.done != nil {
				close(j.done)
			}
		default:
			if remaining > 0 {
				logger.Warn().Int("remaining", remaining).Msg("drain timeout reached, dropped queued replication jobs")
			}
			return
		}
	}
}

// submit queues j without blocking. A full queue drops the job.
func (p *Processor) submit(j job) bool {
	if j.id == "" {
		j.id = uuid.New().String()
	}

	select {
	case p.jobs <- j:
		p.enqueued.Add(1)
		return true
	default:
		p.dropped.Add(1)
		p.recordError(ErrQueueFull)
		log.Warn().
			Str("component", "replication_processor").
			Str("job_id", j.id).
			Str("op", string(j.op)).
			Str("kind", string(j.kind)).
			Uint("entity_id", j.entityID).
			Msg("replication queue full, dropping job")
		return false
	}
}

// submitWait queues j, waiting for room, and blocks until the worker has processed it.
func (p *Processor) submitWait(ctx context.Context, j job) error {
	if j.id == "" {
		j.id = uuid.New().String()
	}
	j.done = make(chan struct{})

	select {
	case p.jobs <- j:
		p.enqueued.Add(1)
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopped:
		return errors.New("replication processor stopped")
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush waits until every job queued before the call has been processed
func (p *Processor) Flush(ctx context.Context) error {
	return p.submitWait(ctx, job{op: opBarrier})
}

func (p *Processor) run(parent context.Context, j job) {
	if j.done != nil {
		defer close(j.done)
	}
	if j.op == opBarrier {
		return
	}

	ctx, cancel := context.WithTimeout(parent, p.callTimeout)
	defer cancel()

	logger := log.With().
		Str("component", "replication_processor").
		Str("job_id", j.id).
		Str("op", string(j.op)).
		Str("kind", string(j.kind)).
		Uint("entity_id", j.entityID).
		Logger()

	if err := p.execute(ctx, j); err != nil {
		p.failed.Add(1)
		p.recordError(err)
		logger.Error().Err(err).Msg("replication failed")
		return
	}

	p.succeeded.Add(1)
	logger.Debug().Msg("replication applied")
}

func (p *Processor) execute(ctx context.Context, j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("replication panic: %v", r)
		}
	}()

	sheet, ok := p.sheets[j.kind]
	if !ok {
		return fmt.Errorf("unknown replication kind %q", j.kind)
	}

	switch j.op {
	case opFullSync:
		return p.fullSync(ctx, sheet, j)
	case opAppend:
		return p.sheet.AppendRows(ctx, sheet, [][]interface{}{j.row})
	case opUpdateRow:
		return p.updateRow(ctx, sheet, j)
	case opDeleteRow:
		return p.deleteRow(ctx, sheet, j)
	}
	return fmt.Errorf("unknown replication op %q", j.op)
}

func (p *Processor) fullSync(ctx context.Context, sheet string, j job) error {
	header := OrderHeaders
	if j.kind == KindPlatform {
		header = PlatformHeaders
	}

	if err := p.sheet.Clear(ctx, sheet); err != nil {
		return fmt.Errorf("clear %s: %w", sheet, err)
	}
	if err := p.sheet.AppendRows(ctx, sheet, [][]interface{}{header}); err != nil {
		return fmt.Errorf("write header %s: %w", sheet, err)
	}
	if len(j.rows) > 0 {
		if err := p.sheet.AppendRows(ctx, sheet, j.rows); err != nil {
			return fmt.Errorf("append rows %s: %w", sheet, err)
		}
	}

	p.mu.Lock()
	p.lastFullSync = time.Now()
	p.mu.Unlock()

	log.Info().
		Str("component", "replication_processor").
		Str("kind", string(j.kind)).
		Int("rows", len(j.rows)).
		Msg("full synchronization completed")
	return nil
}

func (p *Processor) updateRow(ctx context.Context, sheet string, j job) error {
	row, found, err := p.sheet.FindRow(ctx, sheet, rowKey(j.entityID))
	if err != nil {
		return fmt.Errorf("find row: %w", err)
	}

	if !found {
		log.Warn().
			Str("component", "replication_processor").
			Str("kind", string(j.kind)).
			Uint("entity_id", j.entityID).
			Msg("row not found for update, appending instead")
		return p.sheet.AppendRows(ctx, sheet, [][]interface{}{j.row})
	}

	return p.sheet.UpdateRow(ctx, sheet, row, j.row)
}

func (p *Processor) deleteRow(ctx context.Context, sheet string, j job) error {
	row, found, err := p.sheet.FindRow(ctx, sheet, rowKey(j.entityID))
	if err != nil {
		return fmt.Errorf("find row: %w", err)
	}
	if !found {
		return nil
	}
	return p.sheet.DeleteRow(ctx, sheet, row)
}

func (p *Processor) recordError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err.Error()
	p.lastErrAt = time.Now()
}

// Stats returns the current counters
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Queued:       len(p.jobs),
		Capacity:     cap(p.jobs),
		Enqueued:     p.enqueued.Load(),
		Dropped:      p.dropped.Load(),
		Succeeded:    p.succeeded.Load(),
		Failed:       p.failed.Load(),
		LastError:    p.lastErr,
		LastErrorAt:  timeOrNil(p.lastErrAt),
		LastFullSync: timeOrNil(p.lastFullSync),
	}
}

func timeOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
