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
	"context"
	"fmt"
	"os"

	"github.com/jt05610/tapn/config"
	pf "github.com/jt05610/tapn/petrifile"
	"github.com/jt05610/tapn/petrifile/v1/yaml"
	"github.com/jt05610/tapn/query"
	"github.com/jt05610/tapn/sink"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	envFile      string
	dev          bool
	amqpURI      string
	amqpExchange string
	queries      []string

	logger  *zap.Logger
	options *config.Options
)

var rootCmd = &cobra.Command{
	Use:   "tapn",
	Short: "Verify timed-arc Petri nets",
	Long: `Verify timed-arc Petri nets stored as petri files. EF and AG queries are answered by
exhaustive discrete exploration, PF and PG queries are estimated by statistical model checking.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if dev {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return err
		}
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		if options, err = config.Load(files...); err != nil {
			return err
		}
		if cmd.Flags().Changed("amqp-uri") {
			options.AMQPURI = amqpURI
		}
		if cmd.Flags().Changed("exchange") {
			options.AMQPExchange = amqpExchange
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", ".env file to read instead of ./.env")
	rootCmd.PersistentFlags().BoolVar(&dev, "dev", false, "human readable debug logging")
	rootCmd.PersistentFlags().StringVar(&amqpURI, "amqp-uri", "", "publish reports to this RabbitMQ server")
	rootCmd.PersistentFlags().StringVar(&amqpExchange, "exchange", "tapn", "exchange reports are published to")
}

func loadModel(ctx context.Context, path string) (*pf.Model, error) {
	df, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = df.Close()
	}()
	m, err := (&yaml.Service{}).Load(ctx, df)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return m, nil
}

// selectQueries gives the queries passed with --query, or those of the file.
func selectQueries(m *pf.Model) ([]*query.Query, error) {
	if len(queries) == 0 {
		return m.Queries, nil
	}
	ret := make([]*query.Query, 0, len(queries))
	for _, src := range queries {
		q, err := query.Parse(src, m.Net)
		if err != nil {
			return nil, err
		}
		ret = append(ret, q)
	}
	return ret, nil
}

func openSink() (sink.Sink, error) {
	s := sink.Multi{sink.Logger{Logger: logger}}
	if options.AMQPURI == "" {
		return s, nil
	}
	exchange := options.AMQPExchange
	if exchange == "" {
		exchange = amqpExchange
	}
	a, err := sink.Dial(options.AMQPURI, exchange, logger)
	if err != nil {
		return nil, err
	}
	return append(s, a), nil
}

func addQueryFlag(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "query to check instead of those of the file")
}

func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
