// Package pivot counts ballots into a two-dimensional table.
//
// A Query names a filter, a per-cell predicate and two axes. Each axis is a
// list of buckets: a list of groups or candidates the cell predicate sees
// as row and col, the first preferred of a list of parties, or the value of
// an integer expression. Compile turns a Query into a Plan of up to four
// expression programs sharing one identifier context, and Plan.Run scans
// laid-out ballots with a pool of workers, each owning its own engines and
// count grid.
//
// Example query file:
//
//	title: Two-party flows
//	filter: num_prefs >= 2
//	cell: row = P1 and col = P2
//	rows:
//	  entities: [ALP, LNP, GRN]
//	cols:
//	  entities: [ALP, LNP, GRN]
//	  exhaust: true
package pivot
