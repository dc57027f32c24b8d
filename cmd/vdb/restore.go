package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vdb/backup"
	"github.com/hupe1980/vdb/resource"
)

var (
	restoreTarget  string
	restoreWorkers int64
	restoreRate    int64
)

var restoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Restore a collection from a blob store backup",
	Long: `Restore downloads a collection backup into the data directory. It fails
if the collection already exists locally. The codec is taken from the
backup manifest.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := args[0]

		store, err := storeFromTarget(ctx, restoreTarget)
		if err != nil {
			return err
		}

		ctrl := resource.NewController(resource.Config{
			MaxWorkers:         restoreWorkers,
			IOLimitBytesPerSec: restoreRate,
		})

		err = backup.Restore(ctx, store, name, dataDir, func(o *backup.Options) {
			o.Controller = ctrl
			o.Logger = cliLogger().Logger
		})
		if err != nil {
			return err
		}

		fmt.Printf("Restored %q into %s\n", name, dataDir)
		return nil
	},
}

func init() {
	restoreCmd.Flags().StringVar(&restoreTarget, "target", "", "backup target URL (required)")
	restoreCmd.Flags().Int64Var(&restoreWorkers, "workers", 4, "parallel downloads")
	restoreCmd.Flags().Int64Var(&restoreRate, "rate", 0, "I/O limit in bytes/sec (0 = unlimited)")
	_ = restoreCmd.MarkFlagRequired("target")
}
