package reader

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/prefcat/contest"
	"github.com/vegasq/prefcat/expr"
	"github.com/vegasq/prefcat/query"
)

var testBallots = []Ballot{
	{ID: 1, ATL: []int32{2, 0}, BTL: []int32{4, 5, 0}},
	{ID: 2, ATL: []int32{1}, BTL: nil},
	{ID: 3, ATL: nil, BTL: []int32{1, 0, 2, 3}},
	{ID: 4, ATL: []int32{0, 1, 2}, BTL: []int32{3, 3, 1}},
}

func writeFixture(t *testing.T, name string, ballots []Ballot) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := WriteBallots(path, ballots); err != nil {
		t.Fatalf("WriteBallots() error = %v", err)
	}
	return path
}

func openFixture(t *testing.T, ballots []Ballot) *Reader {
	t.Helper()
	r, err := Open(writeFixture(t, "ballots.parquet", ballots))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestOpen(t *testing.T) {
	r := openFixture(t, testBallots)

	if got := r.NumRows(); got != 4 {
		t.Errorf("NumRows() = %d, want 4", got)
	}
	if !strings.HasSuffix(r.Path(), "ballots.parquet") {
		t.Errorf("Path() = %s", r.Path())
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(dir, "missing.parquet"))
		if err == nil || !strings.Contains(err.Error(), "failed to open file") {
			t.Errorf("Open() error = %v", err)
		}
	})

	t.Run("not parquet", func(t *testing.T) {
		path := filepath.Join(dir, "text.parquet")
		if err := os.WriteFile(path, []byte("id,atl\n1,2\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Open(path)
		if err == nil || !strings.Contains(err.Error(), "failed to open parquet file") {
			t.Errorf("Open() error = %v", err)
		}
	})

	t.Run("missing ballot columns", func(t *testing.T) {
		type Row struct {
			ID   int64  `parquet:"id"`
			Name string `parquet:"name"`
		}
		path := filepath.Join(dir, "people.parquet")
		writeRows(t, path, []Row{{ID: 1, Name: "Alice"}})
		_, err := Open(path)
		if !errors.Is(err, ErrSchema) {
			t.Errorf("Open() error = %v, want ErrSchema", err)
		}
		if err != nil && !strings.Contains(err.Error(), "missing column atl") {
			t.Errorf("Open() error = %v", err)
		}
	})

	t.Run("wrong preference type", func(t *testing.T) {
		type Row struct {
			ID  int64   `parquet:"id"`
			ATL []int64 `parquet:"atl,list"`
			BTL []int32 `parquet:"btl,list"`
		}
		path := filepath.Join(dir, "wide.parquet")
		writeRows(t, path, []Row{{ID: 1, ATL: []int64{1}}})
		_, err := Open(path)
		if !errors.Is(err, ErrSchema) {
			t.Errorf("Open() error = %v, want ErrSchema", err)
		}
	})
}

func writeRows[T any](t *testing.T, path string, rows []T) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	writer := parquet.NewGenericWriter[T](f)
	if _, err := writer.Write(rows); err != nil {
		t.Fatalf("failed to write test data: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close file: %v", err)
	}
}

func TestReadAll(t *testing.T) {
	r := openFixture(t, testBallots)

	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(got) != len(testBallots) {
		t.Fatalf("ReadAll() returned %d ballots, want %d", len(got), len(testBallots))
	}
	for i := range got {
		if got[i].ID != testBallots[i].ID {
			t.Errorf("ballot %d: ID = %d, want %d", i, got[i].ID, testBallots[i].ID)
		}
		if len(got[i].BTL) != len(testBallots[i].BTL) {
			t.Errorf("ballot %d: BTL = %v, want %v", i, got[i].BTL, testBallots[i].BTL)
		}
	}
	if !reflect.DeepEqual(got[3].ATL, []int32{0, 1, 2}) {
		t.Errorf("ballot 4: ATL = %v", got[3].ATL)
	}
}

func TestReadBallots_Layout(t *testing.T) {
	const u = expr.Unreached

	tests := []struct {
		name     string
		mode     contest.Mode
		entities int
		want     [][]int32
	}{
		{
			name:     "above the line",
			mode:     contest.AboveTheLine,
			entities: 3,
			want: [][]int32{
				//  pfor       exh  n  n   pref_1..3
				{2, u, 1, 3, 2, 2, 2, 0, u},
				{u, 1, u, 2, 1, 1, 1, u, u},
				{u, u, u, 1, 0, 0, u, u, u},
				{1, 2, 3, 4, 3, 3, 0, 1, 2},
			},
		},
		{
			name:     "below the line",
			mode:     contest.BelowTheLine,
			entities: 6,
			want: [][]int32{
				{3, u, u, u, 1, 2, 4, 3, 3, 4, 5, 0, u, u, u},
				{u, u, u, u, u, u, 1, 0, 0, u, u, u, u, u, u},
				{2, 1, 3, 4, u, u, 5, 4, 4, 1, 0, 2, 3, u, u},
				// a repeated candidate ends the ranking
				{u, u, u, 1, u, u, 2, 1, 1, 3, u, u, u, u, u},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := openFixture(t, testBallots)
			layout := expr.Layout{Entities: tt.entities}

			ballots, err := r.ReadBallots(nil, Options{Mode: tt.mode, Layout: layout})
			if err != nil {
				t.Fatalf("ReadBallots() error = %v", err)
			}
			if ballots.Stride != layout.Width() {
				t.Errorf("Stride = %d, want %d", ballots.Stride, layout.Width())
			}
			if ballots.Len() != len(tt.want) {
				t.Fatalf("Len() = %d, want %d", ballots.Len(), len(tt.want))
			}
			for i, want := range tt.want {
				if got := ballots.Row(i); !reflect.DeepEqual(got, want) {
					t.Errorf("row %d = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestReadBallots_AxisLiterals(t *testing.T) {
	r := openFixture(t, testBallots)
	layout := expr.Layout{Entities: 3, Literals: 2}

	ballots, err := r.ReadBallots(nil, Options{Layout: layout})
	if err != nil {
		t.Fatalf("ReadBallots() error = %v", err)
	}
	row := ballots.Row(0)
	if len(row) != 11 || row[9] != 0 || row[10] != 0 {
		t.Errorf("row 0 = %v, want two zero literals after the ballot columns", row)
	}
}

func TestReadBallots_Filter(t *testing.T) {
	tests := []struct {
		name    string
		filter  string
		wantIDs []int
	}{
		{"all", "TRUE", []int{0, 1, 2, 3}},
		{"two or more preferences", "num_prefs >= 2", []int{0, 3}},
		{"first preference", "pref_1 = 1", []int{1}},
		{"group ranked", "pfor_2 < 999", []int{0, 3}},
		{"none", "pfor_exhaust > 10", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := query.Parse(tt.filter)
			if err != nil {
				t.Fatalf("query.Parse() error = %v", err)
			}
			r := openFixture(t, testBallots)
			layout := expr.Layout{Entities: 3}

			all, err := r.ReadBallots(nil, Options{Layout: layout})
			if err != nil {
				t.Fatalf("ReadBallots() error = %v", err)
			}
			got, err := r.ReadBallots(nil, Options{Layout: layout, Filter: filter})
			if err != nil {
				t.Fatalf("ReadBallots() error = %v", err)
			}

			if got.Read != len(testBallots) {
				t.Errorf("Read = %d, want %d", got.Read, len(testBallots))
			}
			if got.Len() != len(tt.wantIDs) {
				t.Fatalf("Len() = %d, want %d", got.Len(), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if !reflect.DeepEqual(got.Row(i), all.Row(id)) {
					t.Errorf("row %d = %v, want ballot %d %v", i, got.Row(i), id, all.Row(id))
				}
			}
		})
	}
}

func TestReadBallots_FilterUnknownColumn(t *testing.T) {
	filter, err := query.Parse("pfor_9 = 1")
	if err != nil {
		t.Fatalf("query.Parse() error = %v", err)
	}
	r := openFixture(t, testBallots)

	_, err = r.ReadBallots(nil, Options{Layout: expr.Layout{Entities: 3}, Filter: filter})
	if !errors.Is(err, query.ErrUnknownColumn) {
		t.Errorf("ReadBallots() error = %v, want ErrUnknownColumn", err)
	}
	if err := CheckColumns(expr.Layout{Entities: 3}, query.Columns(filter)); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("CheckColumns() error = %v, want ErrInvalidLayout", err)
	}
	if err := CheckColumns(expr.Layout{Entities: 10}, query.Columns(filter)); err != nil {
		t.Errorf("CheckColumns() error = %v", err)
	}
}

func TestReadBallots_InvalidLayout(t *testing.T) {
	r := openFixture(t, testBallots)

	if _, err := r.ReadBallots(nil, Options{}); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("zero entities: error = %v, want ErrInvalidLayout", err)
	}

	dst := NewBallots(expr.Layout{Entities: 4}, 0)
	if _, err := r.ReadBallots(dst, Options{Layout: expr.Layout{Entities: 3}}); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("stride mismatch: error = %v, want ErrInvalidLayout", err)
	}
}

func TestBallots_Range(t *testing.T) {
	r := openFixture(t, testBallots)
	ballots, err := r.ReadBallots(nil, Options{Layout: expr.Layout{Entities: 3}})
	if err != nil {
		t.Fatalf("ReadBallots() error = %v", err)
	}

	part := ballots.Range(1, 3)
	if part.Len() != 2 {
		t.Fatalf("Range(1, 3).Len() = %d, want 2", part.Len())
	}
	if !reflect.DeepEqual(part.Row(0), ballots.Row(1)) || !reflect.DeepEqual(part.Row(1), ballots.Row(2)) {
		t.Errorf("Range(1, 3) rows do not match source rows")
	}
	if got := ballots.Range(2, 2).Len(); got != 0 {
		t.Errorf("Range(2, 2).Len() = %d, want 0", got)
	}

	var empty *Ballots
	if empty.Len() != 0 {
		t.Errorf("nil Ballots Len() = %d", empty.Len())
	}
}

func TestReadMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	files := []struct {
		name    string
		ballots []Ballot
	}{
		{"nsw-1.parquet", []Ballot{{ID: 1, ATL: []int32{0}}}},
		{"nsw-2.parquet", []Ballot{{ID: 2, ATL: []int32{1}}, {ID: 3, ATL: []int32{2}}}},
		{"vic-1.parquet", []Ballot{{ID: 4, ATL: []int32{1, 0}}}},
	}
	for _, f := range files {
		if err := WriteBallots(filepath.Join(dir, f.name), f.ballots); err != nil {
			t.Fatalf("WriteBallots() error = %v", err)
		}
	}
	opts := Options{Layout: expr.Layout{Entities: 3}}

	tests := []struct {
		name      string
		pattern   string
		wantFirst []int32 // pref_1 of each row
		wantErr   string
	}{
		{"single file", filepath.Join(dir, "vic-1.parquet"), []int32{1}, ""},
		{"all files", filepath.Join(dir, "*.parquet"), []int32{0, 1, 2, 1}, ""},
		{"one state", filepath.Join(dir, "nsw-*.parquet"), []int32{0, 1, 2}, ""},
		{"no match", filepath.Join(dir, "qld-*.parquet"), nil, "no files match pattern"},
		{"bad pattern", filepath.Join(dir, "[.parquet"), nil, "invalid glob pattern"},
		{"missing file", filepath.Join(dir, "wa.parquet"), nil, "failed to read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ballots, err := ReadMultipleFiles(tt.pattern, opts)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("ReadMultipleFiles() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadMultipleFiles() error = %v", err)
			}
			if ballots.Len() != len(tt.wantFirst) {
				t.Fatalf("Len() = %d, want %d", ballots.Len(), len(tt.wantFirst))
			}
			col := opts.Layout.EntityAtColumn(1)
			for i, want := range tt.wantFirst {
				if got := ballots.Row(i)[col]; got != want {
					t.Errorf("row %d first preference = %d, want %d", i, got, want)
				}
			}
		})
	}
}
