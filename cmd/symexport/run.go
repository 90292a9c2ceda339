package main

import (
	"github.com/spf13/cobra"

	"github.com/ruslano69/symexport/pkg/adapters"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		sourceID uint32
		sources  []string
	)
	cmd := &cobra.Command{
		Use:   "run DATASET",
		Short: "Export one source as a single run",
		Long: `Export the rows of one dataset with the given source id.

Source id 0 creates every output and writes the manifest. Its sources default
to the dataset's own source name; pass --sources to list all of them.

Examples:
  symexport run --source-id 0 --sources a.pdb,b.pdb a.yaml
  symexport run --source-id 1 b.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			datasets, err := s.loadDatasets(args)
			if err != nil {
				return err
			}

			run := adapters.Run{SourceID: sourceID, Schema: datasets[0].Schema, Sources: sources}
			if run.First() && len(run.Sources) == 0 {
				run.Sources = []string{datasets[0].Source}
			}
			return runAll(cmd.Context(), s, []adapters.Run{run})
		},
	}
	cmd.Flags().Uint32Var(&sourceID, "source-id", 0, "source id of this run (0 creates the outputs)")
	cmd.Flags().StringSliceVar(&sources, "sources", nil, "manifest entries, first run only")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export DATASET...",
		Short: "Export every dataset, one run per file",
		Long: `Export the datasets in argument order. The first file is source id 0 and
the manifest lists the source name of every file. Runs stop at the first
failure, since later runs would extend incomplete outputs.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open()
			if err != nil {
				return err
			}
			datasets, err := s.loadDatasets(args)
			if err != nil {
				return err
			}

			sources := make([]string, len(datasets))
			for i, ds := range datasets {
				sources[i] = ds.Source
			}
			runs := make([]adapters.Run, len(datasets))
			for i, ds := range datasets {
				runs[i] = adapters.Run{SourceID: uint32(i), Schema: ds.Schema, Sources: sources}
			}
			return runAll(cmd.Context(), s, runs)
		},
	}
}
