// Package reader provides functionality for reading ballot files.
//
// A ballot file is an Apache Parquet file of records
//
//	id   int64
//	atl  list<int32>   group numbers in preference order
//	btl  list<int32>   candidate numbers in preference order
//
// # Basic Usage
//
// Laying out one file for below-the-line counting:
//
//	r, err := reader.Open("ballots.parquet")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	ballots, err := r.ReadBallots(nil, reader.Options{
//	    Mode:   contest.BelowTheLine,
//	    Layout: expr.Layout{Entities: cat.NumCandidates()},
//	})
//
// Each row of the result has the shape described by expr.Layout and is
// evaluated directly by the expression engines.
//
// # Store Filters
//
// Options.Filter takes a query.Expression over the layout's column names
// (pfor_0, num_prefs, pref_1 and so on). Ballots it rejects are dropped
// while reading and never reach an engine.
//
// # Multi-file Operations
//
// Reading multiple files using glob patterns:
//
//	ballots, err := reader.ReadMultipleFiles("ballots/*.parquet", opts)
//
// Files are appended in name order into a single Ballots value.
//
// # Resource Management
//
// Always call Close() when done reading to release file handles.
//
// The package uses github.com/parquet-go/parquet-go for the underlying
// parquet file operations.
package reader
