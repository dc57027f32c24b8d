package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vdb"
	"github.com/hupe1980/vdb/core"
)

var (
	createDim    uint32
	createMetric string
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		metric, err := core.ParseMetric(createMetric)
		if err != nil {
			return err
		}

		col, err := vdb.Create(dataDir, name, createDim, metric, vdb.WithLogger(cliLogger()))
		if err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
		defer col.Close()

		fmt.Printf("Collection %q created (dimension=%d, metric=%s)\n", name, createDim, metric)
		return nil
	},
}

func init() {
	createCmd.Flags().Uint32Var(&createDim, "dim", 0, "vector dimension (required)")
	createCmd.Flags().StringVar(&createMetric, "metric", "cosine", "distance metric (cosine or euclidean)")
	_ = createCmd.MarkFlagRequired("dim")
}
