package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vegasq/prefcat/cache"
	"github.com/vegasq/prefcat/contest"
	"github.com/vegasq/prefcat/expr"
	"github.com/vegasq/prefcat/output"
	"github.com/vegasq/prefcat/pivot"
	"github.com/vegasq/prefcat/reader"
)

// axisFlags are the inline flags describing one axis
type axisFlags struct {
	entities []string
	first    []string
	expr     string
	rng      string
}

func (a *axisFlags) register(f *pflag.FlagSet, name string) {
	f.StringSliceVar(&a.entities, name, nil, name+" entities; the name exhaust adds an exhausted bucket")
	f.StringSliceVar(&a.first, name+"-first", nil, name+" bucketed by whichever of these names is preferred first")
	f.StringVar(&a.expr, name+"-expr", "", name+" bucketed by the value of an integer expression")
	f.StringVar(&a.rng, name+"-range", "", "value range LOW..HIGH of --"+name+"-expr")
}

func (a *axisFlags) axis() (pivot.Axis, error) {
	var ax pivot.Axis
	for _, name := range a.entities {
		if name == expr.NameExhaust {
			ax.Exhaust = true
			continue
		}
		ax.Entities = append(ax.Entities, name)
	}
	ax.PreferredFirst = a.first
	ax.Expr = a.expr
	if a.rng != "" {
		lo, hi, ok := strings.Cut(a.rng, "..")
		if !ok {
			return pivot.Axis{}, fmt.Errorf("invalid range %q, want LOW..HIGH", a.rng)
		}
		low, err := strconv.ParseInt(lo, 10, 32)
		if err != nil {
			return pivot.Axis{}, fmt.Errorf("invalid range %q: %w", a.rng, err)
		}
		high, err := strconv.ParseInt(hi, 10, 32)
		if err != nil {
			return pivot.Axis{}, fmt.Errorf("invalid range %q: %w", a.rng, err)
		}
		ax.Low, ax.High = int32(low), int32(high)
	}
	return ax, nil
}

type countCmd struct {
	*globals

	queryPath string
	title     string
	filter    string
	cell      string
	rows      axisFlags
	cols      axisFlags
	workers   int
	format    string
	cacheDir  string
	explain   bool
}

func newCountCmd(g *globals) *cobra.Command {
	c := &countCmd{globals: g}
	cmd := &cobra.Command{
		Use:   "count [flags] <file.parquet|glob>",
		Short: "count ballots into a pivot table",
		Long: `count scans the ballots of every file matching the argument and counts
them into a table. The table is described either by a query file:

	title: Two-party flows
	filter: num_prefs > 1
	rows:
	  entities: [ALP, LNP]
	cols:
	  entities: [GRN, ONE]
	  exhaust: true
	cell: row < col

or by the inline --filter, --cell, --rows and --cols flags. Rows and
columns are each one of: a list of entities, the first preferred of a list
of names (--rows-first) or the values of an integer expression
(--rows-expr with --rows-range).`,
		Args: cobra.ExactArgs(1),
		RunE: c.run,
	}

	f := cmd.Flags()
	f.StringVarP(&c.queryPath, "query", "q", "", "query file (YAML); excludes the inline table flags")
	f.StringVar(&c.title, "title", "", "table title")
	f.StringVar(&c.filter, "filter", "", "boolean expression a ballot must satisfy to be counted")
	f.StringVar(&c.cell, "cell", "", "boolean expression a ballot must satisfy to count in a cell")
	c.rows.register(f, "rows")
	c.cols.register(f, "cols")
	f.IntVarP(&c.workers, "workers", "w", 0, "scan workers (0 = one per CPU)")
	f.StringVarP(&c.format, "format", "f", "table", "output format: "+strings.Join(output.Formats, ", "))
	f.StringVar(&c.cacheDir, "cache-dir", "", "reuse and keep tables in this directory")
	f.BoolVar(&c.explain, "explain", false, "print the compiled plan before the table")
	return cmd
}

var inlineFlags = []string{
	"title", "filter", "cell",
	"rows", "rows-first", "rows-expr", "rows-range",
	"cols", "cols-first", "cols-expr", "cols-range",
}

// query builds the pivot query from --query or the inline flags
func (c *countCmd) query(cmd *cobra.Command) (*pivot.Query, error) {
	if c.queryPath != "" {
		for _, name := range inlineFlags {
			if cmd.Flags().Changed(name) {
				return nil, fmt.Errorf("--query and --%s cannot be used together", name)
			}
		}
		return pivot.LoadQuery(c.queryPath)
	}

	q := &pivot.Query{Title: c.title, Filter: c.filter, Cell: c.cell}
	var err error
	if q.Rows, err = c.rows.axis(); err != nil {
		return nil, fmt.Errorf("--rows: %w", err)
	}
	if q.Cols, err = c.cols.axis(); err != nil {
		return nil, fmt.Errorf("--cols: %w", err)
	}
	return q, q.Validate()
}

func (c *countCmd) run(cmd *cobra.Command, args []string) error {
	formatter, err := output.New(c.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	cat, err := c.catalogue()
	if err != nil {
		return err
	}
	q, err := c.query(cmd)
	if err != nil {
		return err
	}
	files, err := reader.Glob(args[0])
	if err != nil {
		return err
	}

	var (
		store *cache.Cache
		key   string
	)
	if c.cacheDir != "" {
		if key, err = cache.Key(q, cat, c.mode, files); err != nil {
			return err
		}
		if store, err = cache.Open(c.cacheDir); err != nil {
			return err
		}
		defer store.Close()

		entry, ok, err := store.Get(key)
		if err != nil {
			return err
		}
		if ok {
			klog.Infof("using table cached %s", entry.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			return formatter.Format(entry.Table)
		}
	}

	table, err := c.count(cmd, q, cat, args[0])
	if err != nil {
		return err
	}
	if store != nil {
		if _, err := store.Put(key, q, c.mode, files, table); err != nil {
			klog.Warningf("could not cache table: %v", err)
		}
	}
	return formatter.Format(table)
}

func (c *countCmd) count(cmd *cobra.Command, q *pivot.Query, cat *contest.Catalogue, pattern string) (*pivot.Table, error) {
	plan, err := pivot.Compile(q, cat, c.mode)
	if err != nil {
		return nil, err
	}
	if c.explain {
		fmt.Fprint(cmd.ErrOrStderr(), plan.Describe())
	}

	ballots, err := reader.ReadMultipleFiles(pattern, reader.Options{
		Mode:   c.mode,
		Layout: plan.Layout,
		Filter: plan.Prefilter,
	})
	if err != nil {
		return nil, err
	}
	return plan.Run(cmd.Context(), ballots, c.workers)
}
