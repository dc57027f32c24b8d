// Command vdb manages append-only vector collections: create, ingest, scan,
// and back them up to local or S3-compatible object storage.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vdb"
)

const version = "0.1.0"

var (
	dataDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vdb",
	Short: "Append-only vector collection store",
	Long: `vdb manages durable, append-only vector collections on local disk.

Every append is crash-safe: it is written to a write-ahead log and fsynced
before it is acknowledged, and opening a collection replays or discards any
interrupted write.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the vdb version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vdb %s\n", version)
	},
}

// cliLogger returns the logger for collection operations, honoring -v.
func cliLogger() *vdb.Logger {
	if verbose {
		return vdb.NewTextLogger(slog.LevelDebug)
	}
	return vdb.NewTextLogger(slog.LevelWarn)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "./data", "base directory for collections")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(
		createCmd,
		infoCmd,
		ingestCmd,
		scanCmd,
		backupCmd,
		restoreCmd,
		versionCmd,
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
