// Package export drives runs across backends.
//
// A run goes through Init, then on the first run LoadProcedures,
// EmitSchema and PopulateManifest, then PopulateTables and Commit. Backends
// are independent: a failure in one never stops another.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ruslano69/symexport/pkg/adapters"
	"github.com/ruslano69/symexport/pkg/core/schema"
)

// Publisher receives every finished outcome.
type Publisher interface {
	Publish(ctx context.Context, o *Outcome) error
}

// Driver runs the export state machine over a fixed set of backends.
type Driver struct {
	backends  []adapters.Backend
	publisher Publisher
}

// NewDriver creates a driver. Backends are used in the given order.
func NewDriver(backends ...adapters.Backend) *Driver {
	return &Driver{backends: backends}
}

// WithPublisher sets the publisher notified after every run.
func (d *Driver) WithPublisher(p Publisher) *Driver {
	d.publisher = p
	return d
}

// Run performs one run. The returned outcome is never nil.
func (d *Driver) Run(ctx context.Context, run adapters.Run) *Outcome {
	out := &Outcome{SourceID: run.SourceID, State: StateInit, Started: time.Now()}
	logger := log.With().Uint32("source_id", run.SourceID).Logger()

	if err := validate(run); err != nil {
		out.Fatal = err
		out.State = StateFailed
		out.Duration = time.Since(out.Started)
		logger.Error().Err(err).Msg("run rejected")
		d.publish(ctx, out)
		return out
	}

	logger.Info().Int("tables", run.Schema.Len()).Bool("first", run.First()).Msg("run started")

	out.State = StateSuccess
	for _, b := range d.backends {
		bo := runBackend(ctx, b, run)
		if bo.Failed() {
			out.State = StateFailed
			logger.Error().Err(bo.Err()).Str("backend", bo.Backend).Stringer("failed_at", bo.FailedAt).Msg("backend failed")
		}
		out.Backends = append(out.Backends, bo)
	}
	out.Duration = time.Since(out.Started)

	logger.Info().Stringer("state", out.State).Dur("elapsed", out.Duration).Msg("run finished")
	d.publish(ctx, out)
	return out
}

// RunAll performs runs in order and stops after the first failed one, since
// later runs would append to incomplete outputs.
func (d *Driver) RunAll(ctx context.Context, runs []adapters.Run) []*Outcome {
	outcomes := make([]*Outcome, 0, len(runs))
	for _, run := range runs {
		o := d.Run(ctx, run)
		outcomes = append(outcomes, o)
		if o.Failed() {
			break
		}
	}
	return outcomes
}

// validate is the Init step: every row of every table must match its
// declared fields before anything is written.
func validate(run adapters.Run) error {
	if run.Schema == nil {
		return errors.New("run has no schema")
	}
	return run.Schema.ForEachTable(schema.ValidateTable)
}

func runBackend(ctx context.Context, b adapters.Backend, run adapters.Run) BackendOutcome {
	bo := BackendOutcome{Backend: b.Name(), State: StateInit}

	if err := b.Begin(ctx, run); err != nil {
		bo.fail(StateInit, err)
		return bo
	}

	if run.First() {
		if pl, ok := b.(adapters.ProcedureLoader); ok {
			bo.State = StateLoadProcedures
			if err := pl.LoadProcedures(ctx); err != nil {
				bo.fail(StateLoadProcedures, err)
				return bo
			}
		}
		if se, ok := b.(adapters.SchemaEmitter); ok {
			bo.State = StateEmitSchema
			if err := se.EmitSchema(ctx, run.Schema); err != nil {
				bo.fail(StateEmitSchema, err)
				return bo
			}
		}

		bo.State = StatePopulateManifest
		stat, err := b.WriteManifest(ctx, run.Sources)
		if err != nil {
			bo.fail(StatePopulateManifest, err)
		} else {
			bo.Files = append(bo.Files, stat)
		}
	}

	if !bo.Failed() {
		bo.State = StatePopulateTables
	}
	_ = run.Schema.ForEachTable(func(t schema.Table) error {
		if err := ctx.Err(); err != nil {
			bo.fail(StatePopulateTables, err)
			return err
		}
		stat, err := b.WriteTable(ctx, t, run)
		if err != nil {
			bo.fail(StatePopulateTables, fmt.Errorf("table %s: %w", t.Name, err))
			return nil
		}
		bo.Files = append(bo.Files, stat)
		return nil
	})
	if bo.Failed() {
		return bo
	}

	if c, ok := b.(adapters.Committer); ok {
		bo.State = StateCommit
		if err := c.Commit(ctx); err != nil {
			bo.fail(StateCommit, err)
			return bo
		}
	}

	bo.State = StateSuccess
	return bo
}

func (d *Driver) publish(ctx context.Context, o *Outcome) {
	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(ctx, o); err != nil {
		log.Warn().Err(err).Uint32("source_id", o.SourceID).Msg("failed to publish outcome")
	}
}
