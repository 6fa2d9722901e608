package pivot

// Table is the result of one scan
type Table struct {
	Title     string    `json:"title"`
	Mode      string    `json:"mode"`
	RowLabels []string  `json:"row_labels"`
	ColLabels []string  `json:"col_labels"`
	Counts    [][]int64 `json:"counts"` // [row][col]

	// Total counts ballots read from the store, Filtered those that passed
	// the filter. A ballot may count in several cells or in none.
	Total    int64 `json:"total"`
	Filtered int64 `json:"filtered"`
}

func newTable(rows, cols []string) *Table {
	t := &Table{
		RowLabels: rows,
		ColLabels: cols,
		Counts:    make([][]int64, len(rows)),
	}
	for r := range t.Counts {
		t.Counts[r] = make([]int64, len(cols))
	}
	return t
}

// RowTotals sums each row
func (t *Table) RowTotals() []int64 {
	totals := make([]int64, len(t.Counts))
	for r, row := range t.Counts {
		for _, n := range row {
			totals[r] += n
		}
	}
	return totals
}

// ColTotals sums each column
func (t *Table) ColTotals() []int64 {
	totals := make([]int64, len(t.ColLabels))
	for _, row := range t.Counts {
		for c, n := range row {
			totals[c] += n
		}
	}
	return totals
}

// Sum returns the total of every cell
func (t *Table) Sum() int64 {
	var sum int64
	for _, n := range t.RowTotals() {
		sum += n
	}
	return sum
}
