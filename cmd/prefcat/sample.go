package main

import (
	"math/rand/v2"

	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"

	"github.com/vegasq/prefcat/contest"
	"github.com/vegasq/prefcat/reader"
)

func newSampleCmd(g *globals) *cobra.Command {
	var (
		count int
		seed  uint64
	)
	cmd := &cobra.Command{
		Use:   "sample [flags] <out.parquet>",
		Short: "write random ballots for the contest",
		Long: `sample writes a ballot file of random rankings for the contest, for trying
out queries. Every ballot ranks a random number of groups above the line
and of candidates below it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := g.catalogue()
			if err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seed, seed))
			ballots := sampleBallots(cat, rng, count)
			if err := reader.WriteBallots(args[0], ballots); err != nil {
				return err
			}
			klog.Infof("wrote %d ballots to %s", len(ballots), args[0])
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "ballots", "n", 1000, "number of ballots")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	return cmd
}

func sampleBallots(cat *contest.Catalogue, rng *rand.Rand, n int) []reader.Ballot {
	ranking := func(entities int) []int32 {
		perm := rng.Perm(entities)
		out := make([]int32, rng.IntN(entities+1))
		for i := range out {
			out[i] = int32(perm[i])
		}
		return out
	}

	ballots := make([]reader.Ballot, n)
	for i := range ballots {
		ballots[i] = reader.Ballot{
			ID:  int64(i + 1),
			ATL: ranking(cat.NumEntities(contest.AboveTheLine)),
			BTL: ranking(cat.NumEntities(contest.BelowTheLine)),
		}
	}
	return ballots
}
