package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/breaker/logger"
)

// Snapshot is the published envelope: a breaker's identity and open/closed
// state alongside its current Stats aggregate. The dashboard package builds
// its envelope from this; the metrics package reads Stats().Totals() and
// IsOpen() directly instead.
type Snapshot struct {
	Name            string
	Group           string
	Time            time.Time
	Open            bool
	CircuitDuration time.Duration
	Threshold       float64
	WaitThreshold   int
	Stats           TotalStats
}

// Breaker owns one Stats instance, a closed/open state machine with
// generation tagging, a health-check or cooldown timer while open, and the
// master Circuit built from an optional primary callable.
type Breaker struct {
	id  string
	cfg Config

	stats *Stats
	log   logger.Logger

	mu         sync.Mutex
	open       bool
	generation uint64

	healthStop chan struct{}
	cooldown   *time.Timer

	master *Circuit

	snapMu       sync.Mutex
	lastSnapshot Snapshot

	execListeners            listeners[struct{}]
	circuitOpenListeners     listeners[struct{}]
	circuitClosedListeners   listeners[struct{}]
	healthCheckFailListeners listeners[error]
	snapshotListeners        listeners[Snapshot]

	destroyed bool
}

// New constructs a Breaker from the given options and registers it with
// GlobalRegistry unless Config.RegisterGlobal is false. If primary is
// non-nil, a master Circuit is built from it and is reachable via Exec.
func New(primary Callable, opts ...Option) *Breaker {
	cfg := newConfig(opts...)

	b := &Breaker{
		id:         uuid.NewString(),
		cfg:        cfg,
		generation: 1,
		log:        logger.Global().Named("breaker").With(logger.String("name", cfg.Name)),
	}
	b.stats = newStats(cfg, b.log)

	if primary != nil {
		b.master = newCircuit(b, primary, nil)
	}

	b.wireStatsEvents()

	if cfg.RegisterGlobal {
		GlobalRegistry.register(b)
	}

	return b
}

// wireStatsEvents subscribes the breaker to its Stats' update (threshold
// checking) and snapshot (republishing with breaker metadata) streams.
func (b *Breaker) wireStatsEvents() {
	b.stats.OnUpdate(func(totals TotalStats) {
		b.checkThreshold(totals)
	})
	b.stats.OnSnapshot(func(totals TotalStats) {
		b.publishSnapshot(totals)
	})
}

// checkThreshold is the open-trip rule: total must strictly exceed
// waitThreshold before a ratio is ever evaluated.
func (b *Breaker) checkThreshold(totals TotalStats) {
	b.mu.Lock()
	alreadyOpen := b.open
	waitThreshold := b.cfg.WaitThreshold
	threshold := b.cfg.Threshold
	b.mu.Unlock()

	if alreadyOpen || totals.Total <= waitThreshold {
		return
	}

	ratio := 0.0
	if totals.Total > 0 {
		ratio = float64(totals.Successful) / float64(totals.Total)
	}
	if ratio < threshold {
		b.openCircuit()
	}
}

// isOpen reports whether the breaker currently rejects calls.
func (b *Breaker) isOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// generationID returns the current circuitGeneration.
func (b *Breaker) generationID() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

// openCircuit is a no-op if already open. Emits circuitOpen, flips open,
// bumps the generation, then starts either a health-check loop or a
// single-shot cooldown timer.
func (b *Breaker) openCircuit() {
	b.mu.Lock()
	if b.open {
		b.mu.Unlock()
		return
	}
	b.open = true
	b.generation++
	hasHealthCheck := b.cfg.HealthCheck != nil
	b.mu.Unlock()

	b.log.Warn("circuit open", logger.String("name", b.cfg.Name))
	b.circuitOpenListeners.emit(struct{}{})

	if hasHealthCheck {
		b.startHealthLoop()
	} else {
		b.startCooldown()
	}
}

// closeCircuit sets open = false and emits circuitClosed. The caller is
// responsible for resetting Stats beforehand.
func (b *Breaker) closeCircuit() {
	b.mu.Lock()
	b.open = false
	b.mu.Unlock()

	b.log.Info("circuit closed", logger.String("name", b.cfg.Name))
	b.circuitClosedListeners.emit(struct{}{})
}

// startCooldown arms a single fixed-duration timer; on fire, Stats is reset
// and the breaker closes.
func (b *Breaker) startCooldown() {
	b.mu.Lock()
	if b.cooldown != nil {
		b.cooldown.Stop()
	}
	b.cooldown = time.AfterFunc(b.cfg.CircuitDuration, func() {
		b.mu.Lock()
		stillOpen := b.open
		b.mu.Unlock()
		if !stillOpen {
			return
		}
		b.stats.Reset()
		b.closeCircuit()
	})
	b.mu.Unlock()
}

// startHealthLoop launches the recurring health probe. A running probe is
// cancelled the moment the breaker resolves (closes) or is destroyed;
// each tick reschedules itself rather than using a ticker, so a slow or
// hanging probe can't pile up overlapping calls.
func (b *Breaker) startHealthLoop() {
	b.mu.Lock()
	if b.healthStop != nil {
		close(b.healthStop)
	}
	stop := make(chan struct{})
	b.healthStop = stop
	interval := b.cfg.HealthCheckInterval
	check := b.cfg.HealthCheck
	b.mu.Unlock()

	var tick func()
	tick = func() {
		timer := time.NewTimer(interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		b.mu.Lock()
		stillOpen := b.open
		b.mu.Unlock()
		if !stillOpen {
			return
		}

		if err := check(); err != nil {
			b.log.Warn("health check failed",
				logger.String("name", b.cfg.Name),
				logger.Error(err))
			b.healthCheckFailListeners.emit(err)
			tick()
			return
		}

		b.mu.Lock()
		stillOpen = b.open
		b.mu.Unlock()
		if stillOpen {
			b.stats.Reset()
			b.closeCircuit()
		}
	}

	go tick()
}

// stopTimers cancels whatever timer is currently armed, if any.
func (b *Breaker) stopTimers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cooldown != nil {
		b.cooldown.Stop()
		b.cooldown = nil
	}
	if b.healthStop != nil {
		close(b.healthStop)
		b.healthStop = nil
	}
}

// emitExec notifies exec listeners; called once per Circuit.Exec invocation.
func (b *Breaker) emitExec() {
	b.execListeners.emit(struct{}{})
}

// emitSuccess forwards a success outcome to Stats if gen matches the
// current generation.
func (b *Breaker) emitSuccess(elapsedMs int64, gen uint64) {
	if gen != b.generationID() {
		return
	}
	b.stats.record(outcomeSuccess, elapsedMs)
}

// emitFailure forwards a failure outcome to Stats if gen matches.
func (b *Breaker) emitFailure(elapsedMs int64, err error, gen uint64) {
	if gen != b.generationID() {
		return
	}
	b.stats.record(outcomeFailure, elapsedMs)
}

// emitTimeout forwards a timeout outcome to Stats if gen matches.
func (b *Breaker) emitTimeout(elapsedMs int64, err error, gen uint64) {
	if gen != b.generationID() {
		return
	}
	b.stats.record(outcomeTimeout, elapsedMs)
}

// publishSnapshot republishes a Stats snapshot with breaker metadata
// attached and forwards it to the GlobalRegistry's feed.
func (b *Breaker) publishSnapshot(totals TotalStats) {
	b.mu.Lock()
	snap := Snapshot{
		Name:            b.cfg.Name,
		Group:           b.cfg.Group,
		Time:            time.Now(),
		Open:            b.open,
		CircuitDuration: b.cfg.CircuitDuration,
		Threshold:       b.cfg.Threshold,
		WaitThreshold:   b.cfg.WaitThreshold,
		Stats:           totals,
	}
	b.mu.Unlock()

	b.snapMu.Lock()
	b.lastSnapshot = snap
	b.snapMu.Unlock()

	b.snapshotListeners.emit(snap)
}

// LatestSnapshot returns the most recently published Snapshot, the zero
// value if none has been published yet.
func (b *Breaker) LatestSnapshot() Snapshot {
	b.snapMu.Lock()
	defer b.snapMu.Unlock()
	return b.lastSnapshot
}

// NewCircuit builds a non-master Circuit sharing this breaker's state
// machine and Stats, with no fallback of its own.
func (b *Breaker) NewCircuit(primary Callable, opts ...CircuitOption) *Circuit {
	return newCircuit(b, primary, nil, opts...)
}

// NewCircuitWithFallback builds a Circuit with its own fallback, invoked
// ahead of the breaker-level fallback when the circuit short-circuits or
// the primary fails.
func (b *Breaker) NewCircuitWithFallback(primary, fallback Callable, opts ...CircuitOption) *Circuit {
	return newCircuit(b, primary, fallback, opts...)
}

// Exec runs the master circuit built from the primary callable passed to
// New. It panics if no primary was supplied — callers that only need
// secondary circuits should use NewCircuit/NewCircuitWithFallback instead.
func (b *Breaker) Exec(ctx context.Context, args ...any) (any, error) {
	return b.master.Exec(ctx, args...)
}

// Stats exposes the breaker's Stats engine.
func (b *Breaker) Stats() *Stats { return b.stats }

// Name returns the breaker's configured name.
func (b *Breaker) Name() string { return b.cfg.Name }

// Group returns the breaker's configured dashboard grouping key.
func (b *Breaker) Group() string { return b.cfg.Group }

// ID returns the breaker's process-unique instance identifier.
func (b *Breaker) ID() string { return b.id }

// IsOpen reports whether the breaker is currently rejecting calls.
func (b *Breaker) IsOpen() bool { return b.isOpen() }

// OnExec registers fn to run on every exec attempt.
func (b *Breaker) OnExec(fn func()) func() {
	return b.execListeners.add(func(struct{}) { fn() })
}

// OnCircuitOpen registers fn to run when the breaker opens.
func (b *Breaker) OnCircuitOpen(fn func()) func() {
	return b.circuitOpenListeners.add(func(struct{}) { fn() })
}

// OnCircuitClosed registers fn to run when the breaker closes.
func (b *Breaker) OnCircuitClosed(fn func()) func() {
	return b.circuitClosedListeners.add(func(struct{}) { fn() })
}

// OnHealthCheckFailed registers fn to run on every failed health probe.
// Health-check failures are observational only; they never surface to
// Exec callers.
func (b *Breaker) OnHealthCheckFailed(fn func(error)) func() {
	return b.healthCheckFailListeners.add(fn)
}

// OnSnapshot registers fn to run on every republished snapshot.
func (b *Breaker) OnSnapshot(fn func(Snapshot)) func() {
	return b.snapshotListeners.add(fn)
}

// Destroy deregisters the breaker from GlobalRegistry, clears all
// listeners, and stops the open-state timer (health loop or cooldown).
// It is idempotent.
//
// It does not stop the Stats rotation/snapshot timers: a destroyed
// breaker's Stats engine keeps running in the background. This mirrors
// the original runtime's behavior, where destroy() never called
// stopSnapshots/stopBucketSpinning, and is preserved rather than fixed
// silently.
func (b *Breaker) Destroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	b.mu.Unlock()

	b.stopTimers()

	b.execListeners.clear()
	b.circuitOpenListeners.clear()
	b.circuitClosedListeners.clear()
	b.healthCheckFailListeners.clear()
	b.snapshotListeners.clear()

	GlobalRegistry.deregister(b)
}
