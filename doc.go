// Package vdb is an embedded, append-only vector collection store with
// write-ahead-log durability.
//
// A collection is a directory of five files: a small metadata record, three
// append-only segments (embeddings, ids, metadata blobs), and a WAL holding
// at most one pending append. Every Append is made durable before it is
// acknowledged, and Open reconciles the segments with the WAL so a crash at
// any point loses at most the unacknowledged append.
//
//	col, err := vdb.Create("./data", "articles", 384, core.MetricCosine)
//	if err != nil { ... }
//	defer col.Close()
//
//	err = col.Append("doc-1", embedding, []byte(`{"title":"..."}`))
//
// The store is single-writer: one open handle per collection. Iteration
// streams items in insertion order.
package vdb
