package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"

	"github.com/vegasq/prefcat/contest"
	"github.com/vegasq/prefcat/expr"
)

var errNoContest = errors.New("missing contest catalogue (use --contest)")

// globals holds the persistent flags shared by every subcommand
type globals struct {
	contestPath string
	mode        contest.Mode
}

func newRootCmd() *cobra.Command {
	g := &globals{mode: contest.AboveTheLine}

	cmd := &cobra.Command{
		Use:   "prefcat",
		Short: "prefcat counts preferential ballots into pivot tables.",
		Long: `prefcat reads ballots from Parquet files and counts them into a table
whose rows and columns are parties, candidates, values of an expression or
the first preferred of a list of names.

Expressions read a ballot through names: ALP is the preference given to
ALP (999 when unranked), idx_ALP its entity number, P1 the entity given
first preference and num_prefs the number of preferences expressed. The
cell expression may also read row and col, the entities of the bucket
being counted.

The contest catalogue names the groups and candidates:

	name: senate
	groups:
	  - name: ALP
	    candidates: [Smith, Jones]
	  - name: GRN
	    candidates: [Hill]`,

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&g.contestPath, "contest", "c", "", "contest catalogue file (YAML)")
	f.VarP(&g.mode, "mode", "m", "ballot section to count: atl or btl")

	// klog registers on a stdlib flag set; expose it through cobra
	fset := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fset)
	f.AddGoFlagSet(fset)

	cmd.AddCommand(
		newCountCmd(g),
		newCompileCmd(g),
		newSQLCmd(g),
		newNamesCmd(g),
		newSampleCmd(g),
		newCacheCmd(),
	)
	return cmd
}

// catalogue loads the contest named by --contest
func (g *globals) catalogue() (*contest.Catalogue, error) {
	if g.contestPath == "" {
		return nil, errNoContest
	}
	cat, err := contest.Load(g.contestPath)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("loaded contest %q: %d groups, %d candidates", cat.Name, len(cat.Groups), cat.NumCandidates())
	return cat, nil
}

// explain adds name suggestions to an unknown identifier error
func explain(err error, cat *contest.Catalogue) error {
	var e *expr.Error
	if errors.As(err, &e) && errors.Is(e, expr.ErrResolve) {
		if s := cat.Suggest(e.Msg); len(s) > 0 {
			return fmt.Errorf("%w (did you mean %s?)", err, strings.Join(s, ", "))
		}
	}
	return err
}
