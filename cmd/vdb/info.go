package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vdb"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show collection parameters and size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		col, err := vdb.Open(dataDir, args[0], vdb.WithLogger(cliLogger()))
		if err != nil {
			return err
		}
		defer col.Close()

		info := col.Info()
		stats := col.Stats()

		if infoJSON {
			out := map[string]any{
				"name":         info.Name,
				"dimension":    info.Dimension,
				"metric":       info.Metric.String(),
				"count":        info.Count,
				"wal_replays":  stats.Replays,
				"wal_truncate": stats.WALTruncates,
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		fmt.Printf("Name:      %s\n", info.Name)
		fmt.Printf("Dimension: %d\n", info.Dimension)
		fmt.Printf("Metric:    %s\n", info.Metric)
		fmt.Printf("Count:     %d\n", info.Count)
		if stats.Replays > 0 {
			fmt.Printf("Recovered: %d WAL record(s) replayed on open\n", stats.Replays)
		}
		return nil
	},
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "output as JSON")
}
