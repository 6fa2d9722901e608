// Package query implements the store's filter language: a SQL-like WHERE
// predicate over the integer columns of a ballot row.
//
// The language supports:
//   - boolean logic with AND, OR and NOT, plus the TRUE and FALSE literals
//   - comparisons =, != (or <>), <, >, <=, >=
//   - range tests with BETWEEN lo AND hi and NOT BETWEEN
//   - integer arithmetic with + and -, and unary minus
//   - ABS, LEAST and GREATEST
//   - CASE WHEN cond THEN a [WHEN ...] ELSE b END
//
// Keywords and function names are case-insensitive. Column names are the
// names a ballot store gives its layout columns, such as pfor_0 or num_prefs.
//
// # Basic Usage
//
//	filter, err := query.Parse("pfor_0 BETWEEN 1 AND 3 AND num_prefs > 2")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ok, err := filter.Evaluate(query.MapRow{"pfor_0": 2, "num_prefs": 5})
//
// # Filter Operations
//
// Apply a filter to a batch of rows:
//
//	filtered, err := query.ApplyFilter(rows, filter)
//
// Columns lists every column a filter reads, so callers can check a filter
// against a store schema before scanning:
//
//	for _, c := range query.Columns(filter) {
//	    ...
//	}
//
// # Limits
//
// Parse rejects filters longer than MaxQueryLength bytes, with more than
// MaxTokens tokens, or nested deeper than MaxExpressionDepth.
package query
