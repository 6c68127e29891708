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
	"os"
	"path/filepath"

	gv "github.com/goccy/go-graphviz"
	"github.com/jt05610/tapn/graphviz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	outputDir string
	format    string
	rankDir   string
)

var vizCmd = &cobra.Command{
	Use:   "viz <file>",
	Short: "Create a graphviz figure from a petri file",
	Long:  `Create a graphviz figure of the net and initial marking of a petri file.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, err := loadModel(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		cfg := &graphviz.Config{
			Name:    model.Net.Name,
			Font:    graphviz.Helvetica,
			RankDir: graphviz.RankDir(rankDir),
			Format:  gv.Format(format),
		}
		if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
			return err
		}
		outPath := filepath.Join(outputDir, model.Net.Name+"."+format)
		df, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer func() {
			_ = df.Close()
		}()
		if err := graphviz.New(cfg).Flush(df, model.Net, model.Initial); err != nil {
			return err
		}
		logger.Info("figure written", zap.String("net", model.Net.Name), zap.String("path", outPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vizCmd)
	vizCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "output directory")
	vizCmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: dot, svg, png or jpg")
	vizCmd.Flags().StringVar(&rankDir, "rankdir", string(graphviz.LeftToRight), "graph direction: LR, RL, TB or BT")
}
