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

	"github.com/jt05610/tapn/sink"
	"github.com/jt05610/tapn/smc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runs        int
	confidence  float64
	width       float64
	workers     int
	precision   uint32
	maxTraces   int
	smcKBound   int
	smcSeed     uint64
	smcTimeout  time.Duration
)

var smcCmd = &cobra.Command{
	Use:   "smc <file>",
	Short: "Estimate the probability of the PF and PG queries of a petri file",
	Long: `Estimate the probability of the PF and PG queries of a petri file by simulating random
runs. Unless --runs is given, the number of runs follows from the confidence and the width of the
interval.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("runs") {
			options.Runs = runs
		}
		if flags.Changed("confidence") {
			options.Confidence = confidence
		}
		if flags.Changed("width") {
			options.Width = width
		}
		if flags.Changed("workers") {
			options.Workers = workers
		}
		if flags.Changed("precision") {
			options.Precision = precision
		}
		if flags.Changed("traces") {
			options.Trace, options.MaxTraces = maxTraces > 0, maxTraces
		}
		if flags.Changed("seed") {
			options.Seed = smcSeed
		}
		if flags.Changed("timeout") {
			options.Timeout = smcTimeout
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
			if !q.Quantifier.Probabilistic() {
				logger.Warn("skipping query, use the verify command", zap.Stringer("query", q))
				continue
			}
			e, err := smc.NewEstimator(model.Net, model.Initial, q, options.SMC(logger, smcKBound)...)
			if err != nil {
				return err
			}
			s, err := e.Estimate(ctx)
			if err != nil && !errors.Is(err, smc.ErrBudgetExhausted) {
				return err
			}
			printf(cmd, "%s\n", s)
			for i, trace := range s.Traces {
				printf(cmd, "  trace %d\n", i+1)
				for _, m := range trace {
					printf(cmd, "    %s\n", m)
				}
			}
			if perr := out.Publish(ctx, sink.NewReport(model.Net.Name, q.String()).WithSummary(s)); perr != nil {
				logger.Error("publish report", zap.Error(perr))
			}
			if err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(smcCmd)
	addQueryFlag(smcCmd)
	smcCmd.Flags().IntVarP(&runs, "runs", "n", 0, "number of runs, derived from confidence and width when 0")
	smcCmd.Flags().Float64VarP(&confidence, "confidence", "c", 0.95, "confidence of the estimate")
	smcCmd.Flags().Float64VarP(&width, "width", "w", 0.05, "half width of the confidence interval")
	smcCmd.Flags().IntVarP(&workers, "workers", "j", 0, "parallel runs, the number of CPUs by default")
	smcCmd.Flags().Uint32Var(&precision, "precision", 5, "decimal digits of the clock")
	smcCmd.Flags().IntVar(&maxTraces, "traces", 0, "print up to this many runs reaching the goal")
	smcCmd.Flags().IntVarP(&smcKBound, "k-bound", "k", 0, "discard runs with more tokens, 0 for no bound")
	smcCmd.Flags().Uint64Var(&smcSeed, "seed", 0, "master seed, time based by default")
	smcCmd.Flags().DurationVar(&smcTimeout, "timeout", 0, "give up after this long, keeping the runs done")
}
