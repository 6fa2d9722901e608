package query

import (
	"fmt"
	"sort"
)

// functionArity maps function names to their argument count, 0 for variadic
var functionArity = map[string]int{
	"ABS":      1,
	"LEAST":    0,
	"GREATEST": 0,
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

// callFunction applies a built-in function to evaluated arguments
func callFunction(name string, args []int64) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s requires at least 1 argument", name)
	}
	switch name {
	case "ABS":
		return abs(args[0]), nil
	case "LEAST":
		result := args[0]
		for _, v := range args[1:] {
			if v < result {
				result = v
			}
		}
		return result, nil
	case "GREATEST":
		result := args[0]
		for _, v := range args[1:] {
			if v > result {
				result = v
			}
		}
		return result, nil
	default:
		return 0, fmt.Errorf("unknown function: %s", name)
	}
}

// compare compares two values using the given operator
func compare(left int64, operator TokenType, right int64) (bool, error) {
	switch operator {
	case TokenEqual:
		return left == right, nil
	case TokenNotEqual:
		return left != right, nil
	case TokenLess:
		return left < right, nil
	case TokenGreater:
		return left > right, nil
	case TokenLessEqual:
		return left <= right, nil
	case TokenGreaterEqual:
		return left >= right, nil
	default:
		return false, fmt.Errorf("unsupported comparison operator %v", operator)
	}
}

// ApplyFilter applies a filter to rows
func ApplyFilter(rows []Row, filter Expression) ([]Row, error) {
	if filter == nil {
		return rows, nil
	}

	filtered := make([]Row, 0)
	for _, row := range rows {
		match, err := filter.Evaluate(row)
		if err != nil {
			return nil, err
		}
		if match {
			filtered = append(filtered, row)
		}
	}

	return filtered, nil
}

// Columns returns the sorted, distinct column names a filter reads
func Columns(filter Expression) []string {
	seen := make(map[string]bool)
	walkPredicate(filter, seen)

	columns := make([]string, 0, len(seen))
	for col := range seen {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

func walkPredicate(e Expression, seen map[string]bool) {
	switch e := e.(type) {
	case *BinaryExpr:
		walkPredicate(e.Left, seen)
		walkPredicate(e.Right, seen)
	case *NotExpr:
		walkPredicate(e.Expr, seen)
	case *ComparisonExpr:
		walkValue(e.Left, seen)
		walkValue(e.Right, seen)
	case *BetweenExpr:
		walkValue(e.Value, seen)
		walkValue(e.Low, seen)
		walkValue(e.High, seen)
	}
}

func walkValue(v ValueExpression, seen map[string]bool) {
	switch v := v.(type) {
	case *ColumnRef:
		seen[v.Name] = true
	case *ArithmeticExpr:
		walkValue(v.Left, seen)
		walkValue(v.Right, seen)
	case *FunctionCall:
		for _, a := range v.Args {
			walkValue(a, seen)
		}
	case *CaseExpr:
		for _, w := range v.Whens {
			walkPredicate(w.Condition, seen)
			walkValue(w.Result, seen)
		}
		walkValue(v.Else, seen)
	}
}
