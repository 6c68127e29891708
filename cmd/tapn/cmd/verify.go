/*
Copyright © 2024 Jonathan Taylor <jonrtaylor12@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package cmd

import (
	"errors"
	"time"

	"github.com/jt05610/tapn/discrete"
	"github.com/jt05610/tapn/pwlist"
	"github.com/jt05610/tapn/sink"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	kBound    int
	strategy  string
	store     string
	storeDir  string
	withTrace bool
	noDarts   bool
	seed      uint64
	timeout   time.Duration
)

var verifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Answer the EF and AG queries of a petri file",
	Long: `Answer the EF and AG queries of a petri file by exploring the discretized state space.
Markings with more tokens than the k-bound are not explored, so a negative answer only holds for
k-bounded behaviour.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("k-bound") {
			options.KBound = kBound
		}
		if flags.Changed("strategy") {
			options.Strategy = pwlist.Strategy(strategy)
		}
		if flags.Changed("store") {
			options.Store = pwlist.Backend(store)
		}
		if flags.Changed("store-dir") {
			options.StoreDir = storeDir
		}
		if flags.Changed("trace") {
			options.Trace = withTrace
		}
		if flags.Changed("no-darts") {
			options.TimeDarts = !noDarts
		}
		if flags.Changed("seed") {
			options.Seed = seed
		}
		if flags.Changed("timeout") {
			options.Timeout = timeout
		}
		if err := options.Validate(); err != nil {
			return err
		}
		ctx, cancel := options.WithDeadline(cmd.Context())
		defer cancel()
		model, err := loadModel(ctx, args[0])
		if err != nil {
			return err
		}
		qs, err := selectQueries(model)
		if err != nil {
			return err
		}
		out, err := openSink()
		if err != nil {
			return err
		}
		defer func() {
			_ = out.Close()
		}()
		for _, q := range qs {
			if q.Quantifier.Probabilistic() {
				logger.Warn("skipping probabilistic query, use the smc command", zap.Stringer("query", q))
				continue
			}
			start := time.Now()
			res, err := discrete.Verify(ctx, model.Net, model.Initial, q, options.Discrete(logger)...)
			if err != nil && !errors.Is(err, discrete.ErrBudgetExhausted) {
				return err
			}
			printf(cmd, "%s: %s\n", q, verdict(res))
			for _, step := range res.Trace {
				printf(cmd, "  %s\n", step)
			}
			r := sink.NewReport(model.Net.Name, q.String()).WithResult(res, time.Since(start))
			if err := out.Publish(ctx, r); err != nil {
				logger.Error("publish report", zap.Error(err))
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
}

func verdict(res *discrete.Result) string {
	switch {
	case !res.Complete:
		return "unknown (budget exhausted)"
	case res.Satisfied:
		return "satisfied"
	}
	return "not satisfied"
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	addQueryFlag(verifyCmd)
	verifyCmd.Flags().IntVarP(&kBound, "k-bound", "k", 5, "largest number of tokens in an explored marking")
	verifyCmd.Flags().StringVarP(&strategy, "strategy", "s", string(pwlist.BFS), "search order: bfs, dfs or random")
	verifyCmd.Flags().StringVar(&store, "store", string(pwlist.Hash), "passed list: hash or badger")
	verifyCmd.Flags().StringVar(&storeDir, "store-dir", "", "badger directory, in memory when empty")
	verifyCmd.Flags().BoolVarP(&withTrace, "trace", "t", false, "print the trace settling each query")
	verifyCmd.Flags().BoolVar(&noDarts, "no-darts", false, "use the plain reachability search")
	verifyCmd.Flags().Uint64Var(&seed, "seed", 0, "seed of the random search order")
	verifyCmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long")
}
