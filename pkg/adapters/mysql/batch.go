package mysql

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ruslano69/symexport/pkg/core/failure"
)

// Batch returns a copy of the statements queued so far.
func (b *Backend) Batch() []string {
	return slices.Clone(b.batch)
}

// Commit executes the batch strictly in order and stops at the first
// failure with a *failure.StatementError. Statements already executed are
// not rolled back. The batch is discarded either way.
func (b *Backend) Commit(ctx context.Context) error {
	stmts := b.batch
	b.batch = nil

	if b.settings.DryRun {
		return b.print(stmts)
	}
	if len(stmts) == 0 {
		return nil
	}

	db, err := b.connect(ctx)
	if err != nil {
		return err
	}

	start := time.Now()
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Error().Err(err).Int("index", i).Int("statements", len(stmts)).Msg("batch halted")
			return &failure.StatementError{Index: i, Statement: stmt, Err: err}
		}
	}

	log.Info().
		Int("statements", len(stmts)).
		Dur("elapsed", time.Since(start)).
		Str("database", b.settings.Database).
		Msg("batch committed")
	return nil
}

func (b *Backend) print(stmts []string) error {
	log.Info().Int("statements", len(stmts)).Msg("dry run, batch not executed")
	if b.out == nil {
		for i, stmt := range stmts {
			log.Debug().Int("index", i).Msg(stmt)
		}
		return nil
	}
	for _, stmt := range stmts {
		if _, err := fmt.Fprintf(b.out, "%s;\n\n", strings.TrimSuffix(stmt, ";")); err != nil {
			return fmt.Errorf("failed to print batch: %w", err)
		}
	}
	return nil
}
