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

package backtest_test

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pvtrend/backtest"
	"github.com/penny-vault/pvtrend/common"
	"github.com/penny-vault/pvtrend/data"
	"github.com/penny-vault/pvtrend/dataframe"
	"github.com/penny-vault/pvtrend/portfolio"
	"github.com/penny-vault/pvtrend/strategies/strategy"
	"github.com/penny-vault/pvtrend/strategies/trend"
)

func monthEnd(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

func newTrend(topN, lookback int) strategy.Strategy {
	strat, err := trend.New(map[string]json.RawMessage{
		"topN":     json.RawMessage(strconv.Itoa(topN)),
		"lookback": json.RawMessage(strconv.Itoa(lookback)),
	})
	Expect(err).To(BeNil())
	return strat
}

func membership(dates []time.Time, tickers ...string) *data.MembershipTable {
	table := data.NewMembershipTable("")
	for _, dt := range dates {
		table.Add(dt, tickers...)
	}
	return table
}

var _ = Describe("Backtest", func() {
	var (
		ctx   context.Context
		dates []time.Time
		strat strategy.Strategy
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("with two instruments over three months", func() {
		var inputs backtest.Inputs

		BeforeEach(func() {
			dates = []time.Time{monthEnd(2016, time.January), monthEnd(2016, time.February), monthEnd(2016, time.March)}
			inputs = backtest.Inputs{
				Prices: &dataframe.DataFrame[time.Time]{
					Index:    dates,
					ColNames: []string{"A", "B"},
					Vals:     [][]float64{{100, 110, 121}, {50, 55, 49.5}},
				},
				Benchmark: &dataframe.DataFrame[time.Time]{
					Index:    dates,
					ColNames: []string{"^BVSP"},
					Vals:     [][]float64{{1000, 1000, 1050}},
				},
				Membership: membership(dates, "A", "B"),
			}
			strat = newTrend(2, 1)
		})

		It("selects both instruments and attributes the following month", func() {
			res, err := backtest.Run(ctx, inputs, strat, backtest.DefaultOptions())
			Expect(err).To(BeNil())

			Expect(res.Portfolios).To(HaveLen(3))
			Expect(res.Portfolios[1].Holdings).To(ConsistOf("A", "B"))

			Expect(res.MonthlyResults).To(HaveLen(1))
			month := res.MonthlyResults[0]
			Expect(month.AsOf).To(Equal(dates[1]))
			Expect(month.Label.String()).To(Equal("mar/2016"))
			Expect(month.PortfolioReturn).To(BeNumerically("~", 0.0, 1e-12))
			Expect(month.BenchmarkReturn).To(BeNumerically("~", 0.05, 1e-12))
			Expect(month.Excess()).To(BeNumerically("~", -0.05, 1e-12))
		})

		It("skips the first month where no trailing return is defined", func() {
			res, err := backtest.Run(ctx, inputs, strat, backtest.DefaultOptions())
			Expect(err).To(BeNil())
			Expect(res.Skipped).To(HaveLen(1))
			Expect(res.Skipped[0].Err).To(MatchError(portfolio.ErrEmptyPortfolio))
		})

		It("aligns a benchmark sampled on different days of the month", func() {
			inputs.Benchmark = &dataframe.DataFrame[time.Time]{
				Index: []time.Time{
					time.Date(2016, 1, 28, 0, 0, 0, 0, time.UTC),
					time.Date(2016, 2, 3, 0, 0, 0, 0, time.UTC),
					time.Date(2016, 2, 26, 0, 0, 0, 0, time.UTC),
					time.Date(2016, 3, 30, 0, 0, 0, 0, time.UTC),
				},
				ColNames: []string{"^BVSP"},
				Vals:     [][]float64{{1000, 900, 1000, 1100}},
			}

			res, err := backtest.Run(ctx, inputs, strat, backtest.DefaultOptions())
			Expect(err).To(BeNil())
			Expect(res.MonthlyResults[0].BenchmarkReturn).To(BeNumerically("~", 0.10, 1e-12))
		})

		It("is deterministic", func() {
			first, err := backtest.Run(ctx, inputs, strat, backtest.DefaultOptions())
			Expect(err).To(BeNil())
			second, err := backtest.Run(ctx, inputs, strat, backtest.DefaultOptions())
			Expect(err).To(BeNil())

			Expect(second).To(Equal(first))
			Expect(second.ID).To(Equal(first.ID))
			Expect(second.Fingerprint).To(Equal(first.Fingerprint))
		})

		It("fingerprints the inputs and parameters", func() {
			base := backtest.Fingerprint(inputs, strat, backtest.DefaultOptions())
			Expect(base).To(HaveLen(64))

			Expect(backtest.Fingerprint(inputs, newTrend(1, 1), backtest.DefaultOptions())).ToNot(Equal(base))

			opts := backtest.DefaultOptions()
			opts.Returns.FillMissing = false
			Expect(backtest.Fingerprint(inputs, strat, opts)).ToNot(Equal(base))

			changed := inputs
			changed.Prices = inputs.Prices.Copy()
			changed.Prices.Vals[0][2] = 122
			Expect(backtest.Fingerprint(changed, strat, backtest.DefaultOptions())).ToNot(Equal(base))
		})

		It("stops when the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := backtest.Run(cancelled, inputs, strat, backtest.DefaultOptions())
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Context("with gaps in the price panel", func() {
		var inputs backtest.Inputs

		BeforeEach(func() {
			dates = make([]time.Time, 6)
			for idx := range dates {
				dates[idx] = monthEnd(2016, time.Month(idx+1))
			}

			inputs = backtest.Inputs{
				Prices: &dataframe.DataFrame[time.Time]{
					Index:    dates,
					ColNames: []string{"A", "B", "C"},
					Vals: [][]float64{
						{10, 11, 12, 13, 14, 15},
						{20, 19, 18, 17, 16, 15},
						{5, 6, math.NaN(), 8, 9, 10},
					},
				},
				Benchmark: &dataframe.DataFrame[time.Time]{
					Index:    dates,
					ColNames: []string{"^BVSP"},
					Vals:     [][]float64{{100, 101, 102, 103, 104, 105}},
				},
				Membership: membership(dates, "A", "B", "C"),
			}
			strat = newTrend(2, 1)
		})

		It("skips months that cannot be priced without affecting later months", func() {
			res, err := backtest.Run(ctx, inputs, strat, backtest.DefaultOptions())
			Expect(err).To(BeNil())

			Expect(res.Skipped).To(HaveLen(3))
			Expect(res.Skipped[1].Err).To(MatchError(portfolio.ErrIncompleteMonth))
			Expect(res.Skipped[1].Instrument).To(Equal("C"))
			Expect(res.Skipped[2].AsOf).To(Equal(dates[2]))

			Expect(res.MonthlyResults).To(HaveLen(2))
			Expect(res.MonthlyResults[0].AsOf).To(Equal(dates[3]))
			Expect(res.MonthlyResults[0].Label.String()).To(Equal("mai/2016"))
			Expect(res.MonthlyResults[0].Holdings).To(Equal([]string{"A", "C"}))
			Expect(res.MonthlyResults[0].PortfolioReturn).To(BeNumerically("~", ((14.0/13-1)+(9.0/8-1))/2, 1e-12))
			Expect(res.MonthlyResults[0].BenchmarkReturn).To(BeNumerically("~", 104.0/103-1, 1e-12))

			Expect(res.MonthlyResults[1].Holdings).To(Equal([]string{"C", "A"}))
			Expect(res.Performance.Annual).To(HaveLen(1))
			Expect(res.Performance.Annual[0].Months).To(Equal(2))
		})

		It("only holds members of the index", func() {
			res, err := backtest.Run(ctx, inputs, strat, backtest.DefaultOptions())
			Expect(err).To(BeNil())
			for _, p := range res.Portfolios {
				Expect(p.Len()).To(BeNumerically("<=", 2))
				members, err := inputs.Membership.Eligible(p.AsOf)
				Expect(err).To(BeNil())
				for _, holding := range p.Holdings {
					Expect(members).To(ContainElement(holding))
				}
			}
		})

		It("trims rebalance dates to the analysis window", func() {
			opts := backtest.DefaultOptions()
			opts.Begin = dates[3]
			opts.End = dates[5]

			res, err := backtest.Run(ctx, inputs, strat, opts)
			Expect(err).To(BeNil())
			Expect(res.Begin).To(Equal(dates[3]))
			Expect(res.End).To(Equal(dates[5]))
			Expect(res.Portfolios).To(HaveLen(3))
			Expect(res.Portfolios[0].Len()).To(Equal(2), "history before the window is used for ranking")
			Expect(res.Skipped).To(BeEmpty())
			Expect(res.MonthlyResults).To(HaveLen(2))
		})

		It("fails when a month has no membership", func() {
			table := membership(dates[:2], "A", "B", "C")
			for _, dt := range dates[3:] {
				table.Add(dt, "A", "B", "C")
			}
			inputs.Membership = table

			res, err := backtest.Run(ctx, inputs, strat, backtest.DefaultOptions())
			Expect(err).To(MatchError(data.ErrMissingMembership))
			Expect(res).To(BeNil())
		})

		It("renders the result", func() {
			res, err := backtest.Run(ctx, inputs, strat, backtest.DefaultOptions())
			Expect(err).To(BeNil())

			table, err := res.Encode(backtest.FormatTable)
			Expect(err).To(BeNil())
			Expect(string(table)).To(ContainSubstring("mai/2016"))
			Expect(string(table)).To(ContainSubstring("retorno_carteira"))
			Expect(string(table)).To(ContainSubstring("retorno_ibovespa"))
			Expect(string(table)).To(ContainSubstring("Skipped 3 months"))

			encoded, err := res.Encode(backtest.FormatJSON)
			Expect(err).To(BeNil())
			decoded, err := backtest.DecodeJSON(encoded)
			Expect(err).To(BeNil())
			Expect(decoded.ID).To(Equal(res.ID))
			Expect(decoded.MonthlyResults).To(HaveLen(2))
			Expect(decoded.MonthlyResults[1].Label).To(Equal(res.MonthlyResults[1].Label))
			Expect(decoded.MonthlyResults[1].PortfolioReturn).To(Equal(res.MonthlyResults[1].PortfolioReturn))
			Expect(decoded.Skipped[0].Reason).To(Equal(portfolio.ErrEmptyPortfolio.Error()))

			encoded, err = res.Encode(backtest.FormatTOML)
			Expect(err).To(BeNil())
			Expect(string(encoded)).To(ContainSubstring(res.Fingerprint))

			_, err = res.Encode("xml")
			Expect(err).To(MatchError(backtest.ErrUnknownFormat))
		})

		It("caches results by fingerprint", func() {
			Expect(common.SetupCache()).To(Succeed())

			first, err := backtest.RunCached(ctx, inputs, strat, backtest.DefaultOptions())
			Expect(err).To(BeNil())

			_, err = common.CacheGet(ctx, "backtest:"+first.Fingerprint)
			Expect(err).To(BeNil())

			second, err := backtest.RunCached(ctx, inputs, strat, backtest.DefaultOptions())
			Expect(err).To(BeNil())
			Expect(second.ID).To(Equal(first.ID))
			Expect(second.Performance.Annual).To(HaveLen(1))
			Expect(second.Skipped).To(HaveLen(3))
			Expect(second.Skipped[0]).To(MatchError(portfolio.ErrEmptyPortfolio))
			Expect(second.Skipped[1]).To(MatchError(portfolio.ErrIncompleteMonth))
		})
	})

	Context("with price history outside the membership table", func() {
		var inputs backtest.Inputs

		BeforeEach(func() {
			dates = make([]time.Time, 5)
			for idx := range dates {
				dates[idx] = monthEnd(2015, time.Month(idx+8))
			}

			inputs = backtest.Inputs{
				Prices: &dataframe.DataFrame[time.Time]{
					Index:    dates,
					ColNames: []string{"A", "B"},
					Vals: [][]float64{
						{10, 11, 12, 13, 14},
						{20, 19, 18, 17, 16},
					},
				},
				Benchmark: &dataframe.DataFrame[time.Time]{
					Index:    dates,
					ColNames: []string{"^BVSP"},
					Vals:     [][]float64{{100, 101, 102, 103, 104}},
				},
				Membership: membership(dates[1:4], "A", "B"),
			}
			strat = newTrend(1, 1)
		})

		It("rebalances only in months with a membership entry", func() {
			res, err := backtest.Run(ctx, inputs, strat, backtest.DefaultOptions())
			Expect(err).To(BeNil())

			Expect(res.Begin).To(Equal(dates[1]))
			Expect(res.End).To(Equal(dates[3]))
			Expect(res.Portfolios).To(HaveLen(3))
			Expect(res.Portfolios[0].Holdings).To(Equal([]string{"A"}), "history before the table is used for ranking")
			Expect(res.Skipped).To(BeEmpty())
		})

		It("attributes the last member month with the following price", func() {
			res, err := backtest.Run(ctx, inputs, strat, backtest.DefaultOptions())
			Expect(err).To(BeNil())

			Expect(res.MonthlyResults).To(HaveLen(3))
			last := res.MonthlyResults[2]
			Expect(last.AsOf).To(Equal(dates[3]))
			Expect(last.Date).To(Equal(dates[4]))
			Expect(last.Label.String()).To(Equal("dez/2015"))
			Expect(last.PortfolioReturn).To(BeNumerically("~", 14.0/13-1, 1e-12))
			Expect(last.BenchmarkReturn).To(BeNumerically("~", 104.0/103-1, 1e-12))
		})
	})

	Context("with invalid inputs", func() {
		BeforeEach(func() {
			strat = newTrend(2, 1)
		})

		It("requires a price panel", func() {
			_, err := backtest.Run(ctx, backtest.Inputs{
				Prices:     &dataframe.DataFrame[time.Time]{},
				Membership: data.NewMembershipTable(""),
			}, strat, backtest.DefaultOptions())
			Expect(err).To(MatchError(backtest.ErrEmptyPriceData))
		})

		It("requires a benchmark", func() {
			dates = []time.Time{monthEnd(2016, time.January)}
			_, err := backtest.Run(ctx, backtest.Inputs{
				Prices: &dataframe.DataFrame[time.Time]{
					Index:    dates,
					ColNames: []string{"A"},
					Vals:     [][]float64{{1}},
				},
				Membership: membership(dates, "A"),
			}, strat, backtest.DefaultOptions())
			Expect(err).To(MatchError(backtest.ErrEmptyBenchmark))
		})
	})
})
