package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/vdb"
	"github.com/hupe1980/vdb/core"
)

var (
	scanLimit   uint64
	scanVectors bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <name>",
	Short: "Stream stored items as JSONL in insertion order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		col, err := vdb.Open(dataDir, args[0], vdb.WithLogger(cliLogger()))
		if err != nil {
			return err
		}
		defer col.Close()

		enc := json.NewEncoder(os.Stdout)

		var n uint64
		var encErr error
		err = col.Iterate(func(item core.Item) bool {
			out := map[string]any{"id": item.ID}
			if scanVectors {
				out["vector"] = item.Vector.Data
			}
			if len(item.Metadata) > 0 {
				out["metadata"] = json.RawMessage(item.Metadata)
			}
			if encErr = enc.Encode(out); encErr != nil {
				return false
			}
			n++
			return scanLimit == 0 || n < scanLimit
		})
		if err != nil {
			return err
		}
		if encErr != nil {
			return encErr
		}

		fmt.Fprintf(os.Stderr, "Scanned %d item(s)\n", n)
		return nil
	},
}

func init() {
	scanCmd.Flags().Uint64Var(&scanLimit, "limit", 0, "stop after this many items (0 = all)")
	scanCmd.Flags().BoolVar(&scanVectors, "vectors", false, "include vector data in output")
}
