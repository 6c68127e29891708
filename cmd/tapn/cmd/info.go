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
	"github.com/jt05610/tapn/analysis"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Describe the net of a petri file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := loadModel(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		net := model.Net
		structure := analysis.New(net)
		printf(cmd, "net %s: %d places, %d transitions, %d arcs, max constant %d\n",
			net.Name, len(net.Places), len(net.Transitions), len(net.Arcs), net.MaxConstant())
		for _, p := range net.Places {
			printf(cmd, "  place %-12s invariant %-8s max constant %-3d initial %s\n",
				p.Name, p.Invariant, p.MaxConstant(), model.Initial.TokensIn(p))
		}
		for _, t := range net.Transitions {
			printf(cmd, "  transition %-12s weight %-4g urgent %-5t delta %+d distribution %s\n",
				t.Name, t.Weight, t.Urgent, structure.TokenDelta(t), t.Distribution)
		}
		for _, t := range net.OrphanTransitions() {
			printf(cmd, "  orphan transition %s\n", t.Name)
		}
		printf(cmd, "conservative: %t, largest growth per firing: %d\n", structure.Conservative(), structure.MaxGrowth())
		counts := analysis.CountsOf(net, model.Initial)
		for _, t := range model.Initial.Enabled(net) {
			printf(cmd, "initially enabled %s, token counts after firing %v\n", t.Name, structure.Next(counts, t))
		}
		for _, q := range model.Queries {
			printf(cmd, "query %s\n", q)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
