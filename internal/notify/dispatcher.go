package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/hmuroya/taskward/internal/task"
)

// Dispatcher fans one logical notification out to every delivery target
// concurrently and waits for all sinks, so callers can observe delivery
// failures. Targets without a registered sink are skipped.
type Dispatcher struct {
	sinks map[Target]Sink
}

func NewDispatcher(sinks map[Target]Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks}
}

func (d *Dispatcher) Notify(ctx context.Context, kind Kind, t *task.Task, actor task.Actor, message string) error {
	now := time.Now()

	var (
		mu   sync.Mutex
		errs error
	)
	var wg conc.WaitGroup
	for _, target := range AllTargets {
		sink, ok := d.sinks[target]
		if !ok {
			continue
		}
		event := &Event{
			Kind:      kind,
			Task:      t.Clone(),
			Actor:     actor,
			Message:   message,
			Target:    target,
			CreatedAt: now,
		}
		wg.Go(func() {
			if err := sink.Deliver(ctx, event); err != nil {
				mu.Lock()
				errs = errors.Join(errs, err)
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	return errs
}
