// Command prefcat counts preferential ballots stored in Parquet files into
// pivot tables.
//
// Usage:
//
//	prefcat --contest senate.yaml count --rows ALP,LNP,GRN --cols exhaust ballots/*.parquet
//	prefcat --contest senate.yaml --mode btl count --query flows.yaml ballots.parquet
//	prefcat --contest senate.yaml compile 'ALP < LNP'
//	prefcat --contest senate.yaml sql 'num_prefs > 1 and P1 = idx_ALP'
//	prefcat --contest senate.yaml names
//	prefcat cache list --cache-dir ~/.cache/prefcat
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/plan-systems/klog"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	defer klog.Flush()

	klog.SetFormatter(&klog.FmtConstWidth{
		FileNameCharWidth: 16,
		UseColor:          false,
	})

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
