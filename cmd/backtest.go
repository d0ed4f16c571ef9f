// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/penny-vault/pvtrend/backtest"
	"github.com/penny-vault/pvtrend/data"
	"github.com/penny-vault/pvtrend/data/database"
	"github.com/penny-vault/pvtrend/indicators"
	"github.com/penny-vault/pvtrend/observability/opentelemetry"
	"github.com/penny-vault/pvtrend/strategies"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
)

var backtestOutputFile string

func init() {
	rootCmd.AddCommand(backtestCmd)

	flags := backtestCmd.Flags()
	bind := func(key, flag string) {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			log.Panic().Err(err).Str("Key", key).Msg("could not bind flag")
		}
	}

	flags.String("strategy", "trend", "Shortcode of the strategy to backtest")
	bind("backtest.strategy", "strategy")

	flags.Int("top-n", 10, "Maximum number of holdings")
	bind("strategy.top_n", "top-n")

	flags.Int("lookback", indicators.DefaultHorizon, "Months used to compute the trailing return")
	bind("strategy.lookback", "lookback")

	flags.String("begin", "", "First rebalance date to report (inclusive)")
	bind("backtest.begin", "begin")

	flags.String("end", "", "Last rebalance date to report (inclusive)")
	bind("backtest.end", "end")

	flags.String("suffix", data.DefaultSuffix, "Suffix appended to index tickers")
	bind("universe.suffix", "suffix")

	flags.Bool("fill-missing", true, "Treat missing prices as 0 when computing returns")
	bind("returns.fill_missing", "fill-missing")

	flags.String("source", "csv", "Price source: csv or pvdb")
	bind("data.source", "source")

	flags.String("prices", "", "CSV file with one column of prices per instrument")
	bind("data.prices", "prices")

	flags.String("benchmark", "", "CSV file with the benchmark prices")
	bind("data.benchmark", "benchmark")

	flags.String("benchmark-ticker", data.DefaultBenchmark, "Benchmark ticker when reading from pvdb")
	bind("data.benchmark_ticker", "benchmark-ticker")

	flags.String("membership", "", "CSV or XLSX file with the index composition of each month")
	bind("data.membership", "membership")

	flags.Bool("resample", false, "Resample daily CSV prices to month end")
	bind("data.resample", "resample")

	flags.String("format", backtest.FormatTable, "Output format: table, json or toml")
	bind("output.format", "format")

	flags.StringVarP(&backtestOutputFile, "output", "o", "", "Write the result to a file instead of stdout")
}

var backtestCmd = &cobra.Command{
	Use:        "backtest [flags] [StrategyArguments]",
	Short:      "Run a backtest of a strategy",
	Args:       cobra.MaximumNArgs(1),
	ArgAliases: []string{"StrategyArguments"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := otel.Tracer(opentelemetry.Name).Start(context.Background(), "cmd.backtest")
		defer span.End()

		info, err := strategies.Get(viper.GetString("backtest.strategy"))
		if err != nil {
			return err
		}

		// arguments not given here fall back to strategy.* config keys
		arguments := map[string]json.RawMessage{}
		if len(args) == 1 {
			if err := json.Unmarshal([]byte(args[0]), &arguments); err != nil {
				log.Error().Err(err).Msg("could not unmarshal strategy arguments")
				return err
			}
		}

		strat, err := info.Factory(arguments)
		if err != nil {
			log.Error().Err(err).Msg("could not create strategy")
			return err
		}

		inputs, err := loadInputs(ctx, strat.Lookback())
		if err != nil {
			return err
		}
		defer database.LogOpenTransactions()

		opts := backtest.DefaultOptions()
		opts.Returns.FillMissing = viper.GetBool("returns.fill_missing")
		if opts.Begin, opts.End, err = parseWindow(); err != nil {
			return err
		}

		res, err := backtest.RunCached(ctx, inputs, strat, opts)
		if err != nil {
			return err
		}

		span.SetAttributes(opentelemetry.RunAttributes(res.ID.String(), info.Shortcode, res.Begin, res.End)...)

		out, err := res.Encode(viper.GetString("output.format"))
		if err != nil {
			return err
		}

		if backtestOutputFile != "" {
			return os.WriteFile(backtestOutputFile, out, 0600)
		}

		fmt.Println(string(out))
		return nil
	},
}
