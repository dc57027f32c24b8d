package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vdb/backup"
	"github.com/hupe1980/vdb/resource"
)

var (
	backupTarget  string
	backupCodec   string
	backupWorkers int64
	backupRate    int64
)

var backupCmd = &cobra.Command{
	Use:   "backup <name>",
	Short: "Snapshot a collection to a blob store",
	Long: `Backup uploads all files of a collection to the target blob store,
compressed per file, and writes a manifest last. The collection must not be
open for writing while the backup runs.

Targets:
  local:///path/to/backups
  s3://bucket/prefix
  minio://host:port/bucket/prefix`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := storeFromTarget(ctx, backupTarget)
		if err != nil {
			return err
		}

		codec, err := backup.ByName(backupCodec)
		if err != nil {
			return err
		}

		ctrl := resource.NewController(resource.Config{
			MaxWorkers:         backupWorkers,
			IOLimitBytesPerSec: backupRate,
		})

		m, err := backup.Snapshot(ctx, dataDir, args[0], store, func(o *backup.Options) {
			o.Codec = codec
			o.Controller = ctrl
			o.Logger = cliLogger().Logger
		})
		if err != nil {
			return err
		}

		fmt.Printf("Backed up %q: %d item(s), %d file(s), codec %s\n",
			m.Collection, m.Count, len(m.Files), m.Codec)
		return nil
	},
}

func init() {
	backupCmd.Flags().StringVar(&backupTarget, "target", "", "backup target URL (required)")
	backupCmd.Flags().StringVar(&backupCodec, "codec", "zstd", "compression codec (zstd, lz4, none)")
	backupCmd.Flags().Int64Var(&backupWorkers, "workers", 4, "parallel uploads")
	backupCmd.Flags().Int64Var(&backupRate, "rate", 0, "I/O limit in bytes/sec (0 = unlimited)")
	_ = backupCmd.MarkFlagRequired("target")
}
