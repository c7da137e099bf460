package ecs

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// systemMetadata contains the metadata for a system.
type systemMetadata struct {
	name     string          // The name of the system
	fn       System          // The system function
	commands *Commands       // The system's private command buffer
	logger   *zerolog.Logger // Logger scoped to the system
}

// systemScheduler runs the systems of a single hook. Systems run concurrently, and once all of
// them succeed their command buffers are applied in registration order.
type systemScheduler struct {
	hook    SystemHook
	systems []systemMetadata
	pending []Command // Reused buffer for the commands drained from the systems
}

// newSystemScheduler creates a new system scheduler.
func newSystemScheduler(hook SystemHook) systemScheduler {
	return systemScheduler{
		hook:    hook,
		systems: make([]systemMetadata, 0),
		pending: make([]Command, 0, initialCommandsCapacity),
	}
}

// register registers a system with the scheduler.
func (s *systemScheduler) register(system systemMetadata) {
	s.systems = append(s.systems, system)
}

// run executes the systems of the hook and then applies their commands. If any system fails, the
// commands recorded by every system of the hook are discarded and the error is returned. If
// multiple systems fail, the first error is returned.
func (s *systemScheduler) run(ctx context.Context, w *World, tick uint64) error {
	// Fast path: no systems in hook.
	if len(s.systems) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range s.systems {
		system := &s.systems[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return eris.Wrapf(err, "system %s not started", system.name)
			}
			sctx := &SystemContext{
				World:    w,
				Commands: system.commands,
				Logger:   system.logger,
				Tick:     tick,
			}
			if err := system.fn(sctx); err != nil {
				return eris.Wrapf(err, "system %s failed", system.name)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for i := range s.systems {
			s.systems[i].commands.discard()
		}
		return eris.Wrapf(err, "%s systems returned an error", s.hook)
	}

	// Drain in registration order so commands apply deterministically.
	s.pending = s.pending[:0]
	for i := range s.systems {
		s.systems[i].commands.drain(&s.pending)
	}
	defer func() {
		clear(s.pending)
		s.pending = s.pending[:0]
	}()

	return w.applyAll(s.pending)
}
