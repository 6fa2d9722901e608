package reader

import (
	"errors"
	"fmt"

	"github.com/vegasq/prefcat/expr"
)

var ErrInvalidLayout = errors.New("invalid row layout")

// Ballots holds laid-out rows contiguously: row i is
// Data[i*Stride : (i+1)*Stride].
type Ballots struct {
	Stride int
	Data   []int32

	// Read counts the records decoded, including those a store filter dropped
	Read int
}

// NewBallots returns an empty set with room for capacity rows
func NewBallots(layout expr.Layout, capacity int) *Ballots {
	if capacity < 0 {
		capacity = 0
	}
	return &Ballots{
		Stride: layout.Width(),
		Data:   make([]int32, 0, capacity*layout.Width()),
	}
}

// Len returns the number of rows
func (b *Ballots) Len() int {
	if b == nil || b.Stride == 0 {
		return 0
	}
	return len(b.Data) / b.Stride
}

// Row returns row i. The slice aliases Data.
func (b *Ballots) Row(i int) []int32 {
	return b.Data[i*b.Stride : (i+1)*b.Stride : (i+1)*b.Stride]
}

// Range returns rows [lo, hi) as a Ballots sharing Data
func (b *Ballots) Range(lo, hi int) *Ballots {
	return &Ballots{Stride: b.Stride, Data: b.Data[lo*b.Stride : hi*b.Stride : hi*b.Stride]}
}

// Append lays out one ranking as a new row and returns the row. The layout
// must match the stride.
func (b *Ballots) Append(layout expr.Layout, ranking []int32) []int32 {
	data := b.grow()
	layout.Fill(data, ranking)
	return data
}

// grow appends one zeroed row and returns it
func (b *Ballots) grow() []int32 {
	n := len(b.Data)
	for i := 0; i < b.Stride; i++ {
		b.Data = append(b.Data, 0)
	}
	return b.Data[n:]
}

// shrink drops the last row
func (b *Ballots) shrink() {
	b.Data = b.Data[:len(b.Data)-b.Stride]
}

// layoutRow exposes a laid-out row to a store filter by column name
type layoutRow struct {
	index map[string]int
	data  []int32
}

func newLayoutRow(layout expr.Layout) layoutRow {
	index := make(map[string]int, layout.Width())
	for i := 0; i < layout.Width(); i++ {
		index[layout.ColumnName(i)] = i
	}
	return layoutRow{index: index}
}

// Value implements query.Row
func (r layoutRow) Value(column string) (int64, bool) {
	i, ok := r.index[column]
	if !ok {
		return 0, false
	}
	return int64(r.data[i]), true
}

// CheckColumns reports the first column a store filter reads that the
// layout does not have
func CheckColumns(layout expr.Layout, columns []string) error {
	row := newLayoutRow(layout)
	for _, c := range columns {
		if _, ok := row.index[c]; !ok {
			return fmt.Errorf("%w: filter reads unknown column %q", ErrInvalidLayout, c)
		}
	}
	return nil
}
