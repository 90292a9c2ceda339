package main

import (
	"github.com/spf13/cobra"

	"github.com/ruslano69/symexport/pkg/adapters"
	"github.com/ruslano69/symexport/pkg/adapters/mysql"
	"github.com/ruslano69/symexport/pkg/export"
)

func newDDLCmd(opts *rootOptions) *cobra.Command {
	var sources []string
	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print the first-run MySQL batch without executing it",
		Long: `Print the statements the MySQL backend would execute on the first run:
procedure scripts, DROP and CREATE for every table and the manifest, then the
bulk loads. Nothing is staged and no connection is made.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}

			settings := s.cfg.MySQL
			settings.DryRun = true
			b, err := mysql.New(settings, mysql.WithOutput(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			defer b.Close()

			out := export.NewDriver(b).Run(cmd.Context(), adapters.Run{Schema: s.schema, Sources: sources})
			return report([]*export.Outcome{out}, 1)
		},
	}
	cmd.Flags().StringSliceVar(&sources, "sources", nil, "manifest entries to include")
	return cmd
}
