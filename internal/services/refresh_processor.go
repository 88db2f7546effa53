package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// RefreshProcessorConfig holds configuration for the refresh processor
type RefreshProcessorConfig struct {
	// PollInterval is how often dirty owners are refreshed (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of owners refreshed per poll (default: 10)
	BatchSize int

	// MaxRetries is how many failed refreshes an owner gets before it is
	// dropped until its next change (default: 3)
	MaxRetries int
}

func DefaultRefreshProcessorConfig() RefreshProcessorConfig {
	return RefreshProcessorConfig{
		PollInterval: 10 * time.Second,
		BatchSize:    10,
		MaxRetries:   3,
	}
}

// RefreshFunc recomputes one owner.
type RefreshFunc func(ctx context.Context, owner string) error

// RefreshProcessor batches projection refreshes in process. It stands in
// for the projection worker when no broker is configured: writes mark the
// owner dirty and the loop refreshes each dirty owner once per poll.
type RefreshProcessor struct {
	refresh RefreshFunc
	config  RefreshProcessorConfig

	qmu      sync.Mutex
	attempts map[string]int    // dirty owner -> failed attempts
	marks    map[string]uint64 // bumped on every Mark

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRefreshProcessor(refresh RefreshFunc, config RefreshProcessorConfig) *RefreshProcessor {
	d := DefaultRefreshProcessorConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = d.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = d.BatchSize
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = d.MaxRetries
	}
	return &RefreshProcessor{
		refresh:  refresh,
		config:   config,
		attempts: make(map[string]int),
		marks:    make(map[string]uint64),
	}
}

// Mark queues owner for the next poll. A re-marked owner starts over with
// no failed attempts.
func (p *RefreshProcessor) Mark(owner string) {
	p.qmu.Lock()
	p.attempts[owner] = 0
	p.marks[owner]++
	p.qmu.Unlock()
}

// Pending returns the number of queued owners.
func (p *RefreshProcessor) Pending() int {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	return len(p.attempts)
}

// Start begins the processing loop. Returns an error if already running.
func (p *RefreshProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("refresh processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Refresh processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *RefreshProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Refresh processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Refresh processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *RefreshProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *RefreshProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch refreshes up to BatchSize dirty owners, in owner order, and
// returns how many succeeded.
func (p *RefreshProcessor) ProcessBatch(ctx context.Context) int {
	p.qmu.Lock()
	owners := make([]string, 0, len(p.attempts))
	seen := make(map[string]uint64, len(p.attempts))
	for o := range p.attempts {
		owners = append(owners, o)
		seen[o] = p.marks[o]
	}
	p.qmu.Unlock()
	if len(owners) == 0 {
		return 0
	}
	sort.Strings(owners)
	if len(owners) > p.config.BatchSize {
		owners = owners[:p.config.BatchSize]
	}

	done := 0
	for _, owner := range owners {
		if ctx.Err() != nil {
			return done
		}
		if err := p.refresh(ctx, owner); err != nil {
			p.handleFailure(ctx, owner, err)
			continue
		}
		p.qmu.Lock()
		// A Mark during the refresh keeps the owner queued.
		if p.marks[owner] == seen[owner] {
			delete(p.attempts, owner)
			delete(p.marks, owner)
		}
		p.qmu.Unlock()
		done++
	}
	return done
}

func (p *RefreshProcessor) handleFailure(ctx context.Context, owner string, err error) {
	p.qmu.Lock()
	defer p.qmu.Unlock()

	n := p.attempts[owner] + 1
	slog.WarnContext(ctx, "Projection refresh failed",
		"owner_id", owner,
		"attempt", n,
		"error", err)

	if n >= p.config.MaxRetries {
		delete(p.attempts, owner)
		delete(p.marks, owner)
		slog.ErrorContext(ctx, "Projection refresh dropped after max retries",
			"owner_id", owner,
			"attempts", n)
		return
	}
	p.attempts[owner] = n
}
