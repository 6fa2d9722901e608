// Package expr compiles ballot expressions into flat bytecode and runs them.
//
// An expression is evaluated once per ballot. It reads the ballot's preference
// row (see Layout) and yields a boolean (a predicate) or an integer (a value).
// Names in the expression are resolved through a Context supplied by the
// caller, usually a contest catalogue of groups and candidates.
//
// The pipeline has five stages:
//
//	Tokenize -> Parse -> Validate -> Compile -> Engine
//
// Tokenize and Parse turn text into a tree of Nodes. Validate checks arity and
// operand types and decides where aggregated identifiers (a group name used
// while ranking individual candidates) may appear. Compile emits a Program, a
// flat slice of Operations addressing integer and boolean stack slots. An
// Engine executes a Program against one row at a time without allocating.
//
// # Language
//
// Operators, lowest precedence first:
//
//	or
//	and
//	not            (prefix)
//	= != < <= > >= (non-chaining), x in LOW..HIGH
//	+ -            (left associative)
//
// Built-in functions:
//
//	min(a, ...)  max(a, ...)  abs(a)  if(cond, a, b)
//	pi(e)        preference number given to entity e (999 if never reached)
//	any(cond)    cond holds for some member of the aggregated group in cond
//	all(cond)    cond holds for every member of the aggregated group in cond
//
// Identifiers:
//
//	ALP          preference number given to the named group or candidate
//	P3           entity ranked at preference 3
//	num_prefs    number of preferences expressed
//	exhaust      preference number at which the ballot exhausts
//	row, col     entity bound to the current pivot row / column
//	idx_ALP      entity number of ALP
//	count_ALP    number of candidates in group ALP (count_row, count_col)
//
// An empty expression is always true.
//
// # Store filters
//
// When an expression needs nothing the VM alone can do, ToSQL renders it in
// the store's filter language (package query) so rows can be dropped before
// they reach an Engine. Both paths select the same rows.
package expr
