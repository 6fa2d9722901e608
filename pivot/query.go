package pivot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidQuery  = errors.New("invalid pivot query")
	ErrAxisReference = errors.New("row and col may only be used in the cell expression")
	ErrTooManyCells  = errors.New("pivot table too large")
)

// MaxCells bounds the size of one table
const MaxCells = 1 << 20

// Query defines one pivot table
type Query struct {
	Title string `yaml:"title,omitempty" json:"title,omitempty"`

	// Filter selects the ballots counted. Empty counts every ballot.
	Filter string `yaml:"filter,omitempty" json:"filter,omitempty"`

	// Cell decides whether a ballot counts in the cell bound to the current
	// row and col. Empty counts the ballot in every cell of its buckets.
	Cell string `yaml:"cell,omitempty" json:"cell,omitempty"`

	Rows Axis `yaml:"rows,omitempty" json:"rows,omitempty"`
	Cols Axis `yaml:"cols,omitempty" json:"cols,omitempty"`
}

// Axis defines the buckets of one table dimension. At most one of
// Entities, PreferredFirst and Expr may be set; an empty axis has a single
// bucket.
type Axis struct {
	// Entities binds one bucket to each named group or candidate. Below the
	// line a list of group names binds the axis to groups, and row or col
	// stand for the members of the bucket's group.
	Entities []string `yaml:"entities,omitempty" json:"entities,omitempty"`

	// Exhaust adds a bucket bound to exhaust after the named entities
	Exhaust bool `yaml:"exhaust,omitempty" json:"exhaust,omitempty"`

	// PreferredFirst places each ballot in the bucket of whichever name it
	// ranks first, with a final bucket for ballots ranking none of them
	PreferredFirst []string `yaml:"preferred_first,omitempty" json:"preferred_first,omitempty"`

	// Expr places each ballot in the bucket of the expression's value.
	// Values outside [Low, High] are not counted.
	Expr string `yaml:"expr,omitempty" json:"expr,omitempty"`
	Low  int32  `yaml:"low,omitempty" json:"low,omitempty"`
	High int32  `yaml:"high,omitempty" json:"high,omitempty"`
}

// IsZero reports whether the axis has a single bucket
func (a Axis) IsZero() bool {
	return len(a.Entities) == 0 && len(a.PreferredFirst) == 0 && a.Expr == "" && !a.Exhaust
}

// Validate checks the axis fields are consistent
func (a Axis) Validate() error {
	set := 0
	if len(a.Entities) > 0 {
		set++
	}
	if len(a.PreferredFirst) > 0 {
		set++
	}
	if a.Expr != "" {
		set++
	}

	switch {
	case set > 1:
		return fmt.Errorf("%w: entities, preferred_first and expr are exclusive", ErrInvalidQuery)
	case a.Exhaust && len(a.Entities) == 0:
		return fmt.Errorf("%w: exhaust requires entities", ErrInvalidQuery)
	case a.Expr == "" && (a.Low != 0 || a.High != 0):
		return fmt.Errorf("%w: low and high require expr", ErrInvalidQuery)
	case a.Expr != "" && a.High < a.Low:
		return fmt.Errorf("%w: high %d is below low %d", ErrInvalidQuery, a.High, a.Low)
	}
	return nil
}

// LoadQuery reads a query from a YAML file
func LoadQuery(path string) (*Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query: %w", err)
	}
	q, err := ParseQuery(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return q, nil
}

// ParseQuery decodes a YAML query
func ParseQuery(data []byte) (*Query, error) {
	var q Query
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&q); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return &q, nil
}

// Validate checks both axes
func (q *Query) Validate() error {
	if err := q.Rows.Validate(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	if err := q.Cols.Validate(); err != nil {
		return fmt.Errorf("cols: %w", err)
	}
	return nil
}

// Marshal encodes the query as YAML
func (q *Query) Marshal() ([]byte, error) {
	return yaml.Marshal(q)
}
