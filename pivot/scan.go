package pivot

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/plan-systems/klog"
	"golang.org/x/sync/errgroup"

	"github.com/vegasq/prefcat/expr"
	"github.com/vegasq/prefcat/reader"
)

// checkEvery is how many rows a worker scans between context checks
const checkEvery = 4096

// Run counts ballots into a table. Rows are split into contiguous ranges,
// one per worker; each worker owns its engines and a dense count grid, and
// the grids are summed once every worker has finished.
func (p *Plan) Run(ctx context.Context, ballots *reader.Ballots, workers int) (*Table, error) {
	if ballots == nil {
		ballots = reader.NewBallots(p.Layout, 0)
	}
	if ballots.Len() > 0 && ballots.Stride != p.Layout.Width() {
		return nil, fmt.Errorf("%w: rows have %d columns, plan reads %d", reader.ErrInvalidLayout, ballots.Stride, p.Layout.Width())
	}

	n := ballots.Len()
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = max(n, 1)
	}
	chunk := (n + workers - 1) / workers

	// every scanner exists before any worker starts
	scanners := make([]*scanner, workers)
	for w := range scanners {
		s, err := p.newScanner()
		if err != nil {
			return nil, err
		}
		scanners[w] = s
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w, s := range scanners {
		lo, hi := min(w*chunk, n), min((w+1)*chunk, n)
		g.Go(func() error {
			return s.scan(gctx, ballots.Range(lo, hi))
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t := newTable(p.RowLabels(), p.ColLabels())
	t.Title = p.Query.Title
	t.Mode = p.Mode.String()
	t.Total = int64(max(ballots.Read, n))
	ncols := len(p.cols.labels)
	for _, s := range scanners {
		t.Filtered += s.filtered
		for i, count := range s.counts {
			t.Counts[i/ncols][i%ncols] += count
		}
	}

	klog.Infof("pivot: scanned %d ballots with %d workers in %v, %d passed the filter",
		n, workers, time.Since(start).Round(time.Millisecond), t.Filtered)
	return t, nil
}

// scanner is one worker's private state
type scanner struct {
	plan     *Plan
	filter   expr.Engine
	cell     expr.Engine
	rows     expr.Engine
	cols     expr.Engine
	ncols    int
	counts   []int64 // [row*ncols + col]
	filtered int64
}

func (p *Plan) newScanner() (*scanner, error) {
	s := &scanner{
		plan:   p,
		ncols:  len(p.cols.labels),
		counts: make([]int64, len(p.rows.labels)*len(p.cols.labels)),
	}

	engines := []struct {
		prog *expr.Program
		dst  *expr.Engine
	}{
		{p.filter, &s.filter},
		{p.cell, &s.cell},
		{p.rows.shortcut, &s.rows},
		{p.cols.shortcut, &s.cols},
	}
	for _, e := range engines {
		if e.prog == nil {
			continue
		}
		engine, err := expr.NewEngine(e.prog, p.ctx)
		if err != nil {
			return nil, err
		}
		*e.dst = engine
	}
	return s, nil
}

func (s *scanner) scan(ctx context.Context, ballots *reader.Ballots) error {
	n := ballots.Len()
	for i := 0; i < n; i++ {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		s.count(ballots.Row(i))
	}
	return nil
}

// count adds one ballot to the grid
func (s *scanner) count(data []int32) {
	if s.filter != nil && !s.filter.Bool(data) {
		return
	}
	s.filtered++

	rlo, rhi, ok := s.plan.rows.buckets(s.rows, data)
	if !ok {
		return
	}
	clo, chi, ok := s.plan.cols.buckets(s.cols, data)
	if !ok {
		return
	}

	rowBind, colBind := s.plan.rows.bind, s.plan.cols.bind
	for r := rlo; r < rhi; r++ {
		for c := clo; c < chi; c++ {
			if s.cell != nil {
				s.cell.Bind(rowBind[r], colBind[c])
				if !s.cell.Bool(data) {
					continue
				}
			}
			s.counts[r*s.ncols+c]++
		}
	}
}

// buckets returns the range of buckets a ballot falls in. Shortcut axes
// place it in at most one bucket; the others offer every bucket to the
// cell predicate.
func (a *axisPlan) buckets(shortcut expr.Engine, data []int32) (int, int, bool) {
	switch a.kind {
	case axisFirstPreferred:
		i := int(shortcut.Int(data))
		return i, i + 1, i >= 0 && i < len(a.labels)
	case axisValue:
		i := int(shortcut.Int(data)) - int(a.low)
		return i, i + 1, i >= 0 && i < len(a.labels)
	}
	return 0, len(a.labels), true
}
