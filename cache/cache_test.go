package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-quicktest/qt"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/vegasq/prefcat/contest"
	"github.com/vegasq/prefcat/pivot"
)

func testTable() *pivot.Table {
	return &pivot.Table{
		Title:     "Flows",
		Mode:      "atl",
		RowLabels: []string{"ALP", "LNP"},
		ColLabels: []string{"all"},
		Counts:    [][]int64{{3}, {4}},
		Total:     9,
		Filtered:  7,
	}
}

// testCatalogue builds a catalogue of single-candidate groups
func testCatalogue(t *testing.T, groups ...string) *contest.Catalogue {
	t.Helper()
	var gs []contest.Group
	for _, g := range groups {
		gs = append(gs, contest.Group{Name: g, Candidates: []string{g + "_cand"}})
	}
	cat, err := contest.New("test", gs...)
	qt.Assert(t, qt.IsNil(err))
	return cat
}

func openCache(t *testing.T, dir string) *Cache {
	t.Helper()
	c, err := Open(dir)
	qt.Assert(t, qt.IsNil(err))
	return c
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	qt.Assert(t, qt.IsNil(os.WriteFile(path, []byte(content), 0o644)))
}

func TestGetPut(t *testing.T) {
	c := openCache(t, "")
	defer c.Close()

	q := &pivot.Query{Title: "Flows", Filter: "num_prefs > 1"}

	_, ok, err := c.Get("missing")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsFalse(ok))

	put, err := c.Put("k1", q, contest.AboveTheLine, []string{"a.parquet"}, testTable())
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Not(qt.Equals(put.ID, uuid.Nil)))
	qt.Check(t, qt.Equals(put.Mode, "atl"))

	got, ok, err := c.Get("k1")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(ok))
	if diff := cmp.Diff(put, got, cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
		t.Errorf("Get() mismatch (-put +got):\n%s", diff)
	}

	// a second Put replaces the entry
	again, err := c.Put("k1", q, contest.AboveTheLine, nil, testTable())
	qt.Assert(t, qt.IsNil(err))
	got, _, err = c.Get("k1")
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(got.ID, again.ID))

	qt.Assert(t, qt.IsNil(c.Delete("k1")))
	_, ok, err = c.Get("k1")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsFalse(ok))
}

func TestList(t *testing.T) {
	c := openCache(t, "")
	defer c.Close()

	q := &pivot.Query{}
	for _, key := range []string{"b", "a", "c"} {
		_, err := c.Put(key, q, contest.BelowTheLine, nil, testTable())
		qt.Assert(t, qt.IsNil(err))
	}

	entries, err := c.List()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(entries, 3))
	for i := 1; i < len(entries); i++ {
		qt.Check(t, qt.IsFalse(entries[i].CreatedAt.Before(entries[i-1].CreatedAt)))
	}

	qt.Assert(t, qt.IsNil(c.Clear()))
	entries, err = c.List()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.HasLen(entries, 0))
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()

	c := openCache(t, dir)
	_, err := c.Put("k", &pivot.Query{Title: "kept"}, contest.AboveTheLine, nil, testTable())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(c.Close()))

	c = openCache(t, dir)
	defer c.Close()
	got, ok, err := c.Get("k")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(ok))
	qt.Check(t, qt.Equals(got.Query.Title, "kept"))
	qt.Check(t, qt.DeepEquals(got.Table.Counts, [][]int64{{3}, {4}}))
}

func TestKey(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.parquet")
	b := filepath.Join(dir, "b.parquet")
	writeFile(t, a, "one")
	writeFile(t, b, "two")

	cat := testCatalogue(t, "ALP", "LNP")
	q := &pivot.Query{Filter: "num_prefs > 1"}
	base, err := Key(q, cat, contest.AboveTheLine, []string{a, b})
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.HasLen(base, 64))

	same, err := Key(&pivot.Query{Filter: "num_prefs > 1"}, testCatalogue(t, "ALP", "LNP"), contest.AboveTheLine, []string{b, a})
	qt.Assert(t, qt.IsNil(err))
	qt.Check(t, qt.Equals(same, base), qt.Commentf("file order does not matter"))

	tests := []struct {
		name  string
		q     *pivot.Query
		cat   *contest.Catalogue
		mode  contest.Mode
		files []string
	}{
		{"query", &pivot.Query{Filter: "num_prefs > 2"}, cat, contest.AboveTheLine, []string{a, b}},
		{"catalogue order", q, testCatalogue(t, "LNP", "ALP"), contest.AboveTheLine, []string{a, b}},
		{"other catalogue", q, testCatalogue(t, "ALP", "GRN"), contest.AboveTheLine, []string{a, b}},
		{"mode", q, cat, contest.BelowTheLine, []string{a, b}},
		{"files", q, cat, contest.AboveTheLine, []string{a}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := Key(tt.q, tt.cat, tt.mode, tt.files)
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.Not(qt.Equals(k, base)))
		})
	}

	t.Run("rewritten file", func(t *testing.T) {
		writeFile(t, b, "three")
		k, err := Key(q, cat, contest.AboveTheLine, []string{a, b})
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Not(qt.Equals(k, base)))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Key(q, cat, contest.AboveTheLine, []string{filepath.Join(dir, "gone.parquet")})
		qt.Assert(t, qt.ErrorMatches(err, "stat .*gone.parquet: .*"))
	})
}
