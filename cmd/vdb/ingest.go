package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hupe1980/vdb"
)

// ingestRecord is one JSONL line: {"id": "...", "vector": [...], "metadata": {...}}.
// A missing id gets a generated UUID; metadata is stored verbatim.
type ingestRecord struct {
	ID       string          `json:"id"`
	Vector   []float32       `json:"vector"`
	Metadata json.RawMessage `json:"metadata"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <name> [file]",
	Short: "Append vectors from a JSONL file (or stdin)",
	Long: `Ingest reads one JSON object per line and appends it to the collection.

Each line has the form {"id": "...", "vector": [0.1, ...], "metadata": {...}}.
Lines without an id get a generated UUID. Metadata is optional and stored
as-is. Ingestion stops at the first failing line; everything before it is
durably stored.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		in := io.Reader(os.Stdin)
		if len(args) == 2 {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		col, err := vdb.Open(dataDir, name, vdb.WithLogger(cliLogger()))
		if err != nil {
			return err
		}
		defer col.Close()

		var appended uint64
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 1<<20), 64<<20)

		for lineNo := 1; scanner.Scan(); lineNo++ {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var rec ingestRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
			if rec.ID == "" {
				rec.ID = uuid.NewString()
			}

			if err := col.Append(rec.ID, rec.Vector, rec.Metadata); err != nil {
				return fmt.Errorf("line %d (id %q): %w", lineNo, rec.ID, err)
			}
			appended++
		}
		if err := scanner.Err(); err != nil {
			return err
		}

		fmt.Printf("Appended %d item(s), collection now holds %d\n", appended, col.Count())
		return nil
	},
}
