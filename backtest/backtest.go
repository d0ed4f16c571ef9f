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

// Package backtest folds a strategy over the monthly rebalance dates of a price panel
package backtest

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/penny-vault/pvtrend/data"
	"github.com/penny-vault/pvtrend/dataframe"
	"github.com/penny-vault/pvtrend/indicators"
	"github.com/penny-vault/pvtrend/observability/opentelemetry"
	"github.com/penny-vault/pvtrend/portfolio"
	"github.com/penny-vault/pvtrend/strategies/strategy"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrEmptyPriceData = errors.New("price panel is empty")
	ErrEmptyBenchmark = errors.New("benchmark series is empty")
	ErrNoUniverse     = errors.New("no index membership provided")
)

// Inputs are the data a backtest is computed from
type Inputs struct {
	// Prices is a monthly panel with one column per instrument; missing prices are NaN
	Prices *dataframe.DataFrame[time.Time]

	// Benchmark is a single column price series. Rows are matched to the panel by month
	Benchmark *dataframe.DataFrame[time.Time]

	Membership data.Universe
}

// Options bound and configure a run. A zero Begin or End falls back to the first or last
// month of the membership table
type Options struct {
	Begin   time.Time
	End     time.Time
	Returns indicators.ReturnOptions
}

// DefaultOptions runs over the whole panel with missing prices filled
func DefaultOptions() Options {
	return Options{
		Returns: indicators.DefaultReturnOptions(),
	}
}

// Result is the output of a backtest. Runs over the same inputs produce identical results,
// including ID which is derived from Fingerprint
type Result struct {
	ID             uuid.UUID                 `json:"id" toml:"id"`
	Fingerprint    string                    `json:"fingerprint" toml:"fingerprint"`
	Begin          time.Time                 `json:"begin" toml:"begin"`
	End            time.Time                 `json:"end" toml:"end"`
	MonthlyResults []portfolio.MonthlyResult `json:"monthlyResults" toml:"monthlyResults"`
	Portfolios     []*portfolio.Portfolio    `json:"portfolios" toml:"portfolios"`
	Skipped        []*portfolio.SkipError    `json:"skipped" toml:"skipped"`
	Performance    *portfolio.Performance    `json:"performance" toml:"performance"`
}

// alignBenchmark places the last benchmark price of each month on the panel date of the same
// month; months without a benchmark price are NaN
func alignBenchmark(index []time.Time, benchmark *dataframe.DataFrame[time.Time]) *dataframe.DataFrame[time.Time] {
	monthly := benchmark.Frequency(dataframe.MonthEnd)

	type month struct {
		year  int
		month time.Month
	}

	byMonth := make(map[month]float64, monthly.Len())
	for idx, dt := range monthly.Index {
		byMonth[month{dt.Year(), dt.Month()}] = monthly.Vals[0][idx]
	}

	aligned := &dataframe.DataFrame[time.Time]{
		Index:    make([]time.Time, len(index)),
		ColNames: []string{benchmark.ColNames[0]},
		Vals:     [][]float64{make([]float64, len(index))},
	}
	copy(aligned.Index, index)

	for idx, dt := range index {
		val, ok := byMonth[month{dt.Year(), dt.Month()}]
		if !ok {
			val = math.NaN()
		}
		aligned.Vals[0][idx] = val
	}

	return aligned
}

// rebalanceDates returns the panel dates between opts.Begin and opts.End. An open side of the
// window is bounded by the first or last month of the membership table, so panel history
// loaded for the lookback is never rebalanced on
func rebalanceDates(prices *dataframe.DataFrame[time.Time], universe data.Universe, opts Options) []time.Time {
	months := universe.Dates()

	begin := opts.Begin
	if begin.IsZero() {
		begin = prices.Start()
		if len(months) > 0 {
			first := months[0]
			begin = time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, first.Location())
		}
	}

	end := opts.End
	if end.IsZero() {
		end = prices.End()
		if len(months) > 0 {
			last := months[len(months)-1]
			end = time.Date(last.Year(), last.Month()+1, 1, 0, 0, 0, 0, last.Location()).Add(-time.Nanosecond)
		}
	}

	return prices.Trim(begin, end).Index
}

// nextDate returns the panel date following asOf
func nextDate(prices *dataframe.DataFrame[time.Time], asOf time.Time) (time.Time, bool) {
	rowIdx := prices.RowIndex(asOf)
	if rowIdx == -1 || rowIdx+1 >= prices.Len() {
		return time.Time{}, false
	}
	return prices.Index[rowIdx+1], true
}

// Run backtests strat over the monthly rebalance dates of inputs.Prices. Returns are computed
// over the whole panel so the first rebalance dates have history. At each date a portfolio is
// selected and its return attributed over the month ending at the next panel date, which may
// lie after the window.
//
// Selection errors (e.g. data.ErrMissingMembership) abort the run. Months that cannot be
// attributed are recorded in Result.Skipped and the run continues
func Run(ctx context.Context, inputs Inputs, strat strategy.Strategy, opts Options) (*Result, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "backtest.Run")
	defer span.End()

	if inputs.Prices == nil || inputs.Prices.Len() == 0 || inputs.Prices.ColCount() == 0 {
		span.SetStatus(codes.Error, ErrEmptyPriceData.Error())
		return nil, ErrEmptyPriceData
	}

	if inputs.Benchmark == nil || inputs.Benchmark.Len() == 0 || inputs.Benchmark.ColCount() == 0 {
		span.SetStatus(codes.Error, ErrEmptyBenchmark.Error())
		return nil, ErrEmptyBenchmark
	}

	if inputs.Membership == nil {
		span.SetStatus(codes.Error, ErrNoUniverse.Error())
		return nil, ErrNoUniverse
	}

	fingerprint := Fingerprint(inputs, strat, opts)
	result := &Result{
		ID:             uuid.NewSHA1(runNamespace, []byte(fingerprint)),
		Fingerprint:    fingerprint,
		MonthlyResults: make([]portfolio.MonthlyResult, 0, inputs.Prices.Len()),
		Portfolios:     make([]*portfolio.Portfolio, 0, inputs.Prices.Len()),
		Skipped:        make([]*portfolio.SkipError, 0),
	}

	subLog := log.With().Str("RunID", result.ID.String()).Logger()

	returns := indicators.NewReturns(inputs.Prices, strat.Lookback(), opts.Returns)
	attributor := portfolio.NewAttributor(inputs.Prices, returns, alignBenchmark(inputs.Prices.Index, inputs.Benchmark))

	dates := rebalanceDates(inputs.Prices, inputs.Membership, opts)
	if len(dates) > 0 {
		result.Begin = dates[0]
		result.End = dates[len(dates)-1]
	}

	span.SetAttributes(
		attribute.String("RunID", result.ID.String()),
		attribute.Int("RebalanceDates", len(dates)),
		attribute.Int("Instruments", inputs.Prices.ColCount()),
	)

	for _, asOf := range dates {
		if err := ctx.Err(); err != nil {
			subLog.Warn().Err(err).Time("AsOf", asOf).Msg("backtest cancelled")
			span.SetStatus(codes.Error, "cancelled")
			return nil, err
		}

		p, err := strat.Select(ctx, inputs.Membership, returns.Trailing, asOf)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "portfolio selection failed")
			subLog.Error().Err(err).Time("AsOf", asOf).Msg("portfolio selection failed")
			return nil, err
		}
		result.Portfolios = append(result.Portfolios, p)

		next, ok := nextDate(inputs.Prices, asOf)
		if !ok {
			break
		}

		res, err := attributor.Attribute(p, next)
		if err != nil {
			var skip *portfolio.SkipError
			if !errors.As(err, &skip) {
				span.RecordError(err)
				return nil, err
			}

			subLog.Info().Time("AsOf", asOf).Str("Instrument", skip.Instrument).Str("Reason", skip.Reason).Msg("skipping month")
			result.Skipped = append(result.Skipped, skip)
			continue
		}

		result.MonthlyResults = append(result.MonthlyResults, res)
	}

	result.Performance = portfolio.NewPerformance(result.MonthlyResults)

	subLog.Info().Int("Months", len(result.MonthlyResults)).Int("Skipped", len(result.Skipped)).Msg("backtest complete")
	return result, nil
}
