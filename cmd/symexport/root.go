package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ruslano69/symexport/pkg/adapters"
	"github.com/ruslano69/symexport/pkg/core/schema"
	"github.com/ruslano69/symexport/pkg/export"
	"github.com/ruslano69/symexport/pkg/resultlog"
)

// rootOptions carries the persistent flags.
type rootOptions struct {
	configFile string
	schemaFile string
	backends   []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "symexport",
		Short: "Export symbol tables to text, MySQL and XLSX",
		Long: `symexport writes a fixed set of typed tables, one source at a time, into
every configured backend. The first run (source id 0) creates the outputs and
the source manifest; later runs append rows tagged with their source id.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file path (defaults apply when empty)")
	cmd.PersistentFlags().StringVarP(&opts.schemaFile, "schema", "s", "schema.yaml", "schema definition file")
	cmd.PersistentFlags().StringSliceVarP(&opts.backends, "backends", "b", nil, "override output.backends (csv, mysql, xlsx)")

	cmd.AddCommand(
		newRunCmd(opts),
		newExportCmd(opts),
		newDDLCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// session is the state shared by the commands once flags are parsed.
type session struct {
	cfg    *Config
	schema *schema.Schema
}

func (o *rootOptions) open() (*session, error) {
	cfg, err := LoadConfig(o.configFile)
	if err != nil {
		return nil, err
	}
	if len(o.backends) > 0 {
		cfg.Output.Backends = o.backends
	}
	setupLogging(cfg.Log)

	s, err := schema.LoadDefinition(o.schemaFile)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("schema", o.schemaFile).Int("tables", s.Len()).Msg("schema loaded")
	return &session{cfg: cfg, schema: s}, nil
}

// driver builds every configured backend. The returned func closes them.
func (s *session) driver() (*export.Driver, func(), error) {
	backends, err := adapters.NewAll(s.cfg.Output.Backends, s.cfg.Adapters())
	if err != nil {
		return nil, nil, err
	}

	d := export.NewDriver(backends...)
	var pub *resultlog.RedisPublisher
	if s.cfg.ResultLog.Enabled {
		pub = resultlog.NewRedisPublisher(s.cfg.ResultLog)
		d.WithPublisher(pub)
	}

	closeAll := func() {
		for _, b := range backends {
			if err := b.Close(); err != nil {
				log.Warn().Err(err).Str("backend", b.Name()).Msg("close failed")
			}
		}
		if pub != nil {
			_ = pub.Close()
		}
	}
	return d, closeAll, nil
}

// loadDatasets reads every dataset file against the session schema.
func (s *session) loadDatasets(paths []string) ([]*schema.Dataset, error) {
	out := make([]*schema.Dataset, 0, len(paths))
	for _, p := range paths {
		ds, err := schema.LoadDataset(s.schema, p)
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, nil
}

// report logs each outcome and returns an error when any run failed or was
// never attempted.
func report(outcomes []*export.Outcome, planned int) error {
	for _, o := range outcomes {
		for _, bo := range o.Backends {
			ev := log.Info()
			if bo.Failed() {
				ev = log.Error().Err(bo.Err())
			}
			rows := 0
			for _, f := range bo.Files {
				rows += f.Rows
			}
			ev.Uint32("source_id", o.SourceID).
				Str("backend", bo.Backend).
				Stringer("state", bo.State).
				Int("files", len(bo.Files)).
				Int("rows", rows).
				Msg("backend outcome")
		}
	}

	if n := len(outcomes); n > 0 && outcomes[n-1].Failed() {
		last := outcomes[n-1]
		return fmt.Errorf("run %d failed: %w", last.SourceID, last.Err())
	}
	if len(outcomes) < planned {
		return fmt.Errorf("%d of %d runs were not attempted", planned-len(outcomes), planned)
	}
	return nil
}

func runAll(ctx context.Context, s *session, runs []adapters.Run) error {
	d, closeAll, err := s.driver()
	if err != nil {
		return err
	}
	defer closeAll()

	return report(d.RunAll(ctx, runs), len(runs))
}
