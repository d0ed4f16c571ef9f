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

package portfolio_test

import (
	"errors"
	"math"
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pvtrend/dataframe"
	"github.com/penny-vault/pvtrend/indicators"
	"github.com/penny-vault/pvtrend/portfolio"
)

var _ = Describe("Attributor", func() {
	var (
		m0, m1, m2 time.Time
		prices     *dataframe.DataFrame[time.Time]
		benchmark  *dataframe.DataFrame[time.Time]
		attributor *portfolio.Attributor
	)

	build := func() {
		returns := indicators.NewReturns(prices, 1, indicators.DefaultReturnOptions())
		attributor = portfolio.NewAttributor(prices, returns, benchmark)
	}

	BeforeEach(func() {
		m0 = time.Date(2016, 1, 29, 0, 0, 0, 0, time.UTC)
		m1 = time.Date(2016, 2, 29, 0, 0, 0, 0, time.UTC)
		m2 = time.Date(2016, 3, 31, 0, 0, 0, 0, time.UTC)

		prices = &dataframe.DataFrame[time.Time]{
			Index:    []time.Time{m0, m1, m2},
			ColNames: []string{"A", "B", "C"},
			Vals: [][]float64{
				{100, 110, 121},
				{50, 55, 49.5},
				{10, math.NaN(), 12},
			},
		}

		benchmark = &dataframe.DataFrame[time.Time]{
			Index:    []time.Time{m0, m1, m2},
			ColNames: []string{"^BVSP"},
			Vals:     [][]float64{{1000, 1000, 1050}},
		}

		build()
	})

	It("computes the equal weight return against the benchmark", func() {
		res, err := attributor.Attribute(&portfolio.Portfolio{AsOf: m1, Holdings: []string{"A", "B"}}, m2)
		Expect(err).To(BeNil())
		Expect(res.PortfolioReturn).To(BeNumerically("~", 0.0, 1e-12))
		Expect(res.BenchmarkReturn).To(BeNumerically("~", 0.05, 1e-12))
		Expect(res.Excess()).To(BeNumerically("~", -0.05, 1e-12))
		Expect(res.Won()).To(BeFalse())
		Expect(res.AsOf).To(Equal(m1))
		Expect(res.Date).To(Equal(m2))
		Expect(res.Label.String()).To(Equal("mar/2016"))
		Expect(res.Holdings).To(Equal([]string{"A", "B"}))
	})

	It("skips a month when a holding has no price at the rebalance date", func() {
		_, err := attributor.Attribute(&portfolio.Portfolio{AsOf: m1, Holdings: []string{"A", "C"}}, m2)
		Expect(err).To(MatchError(portfolio.ErrIncompleteMonth))

		var skip *portfolio.SkipError
		Expect(errors.As(err, &skip)).To(BeTrue())
		Expect(skip.Instrument).To(Equal("C"))
		Expect(skip.AsOf).To(Equal(m1))
		Expect(skip.Date).To(Equal(m2))
	})

	It("skips a month when a holding has no price at the next date", func() {
		_, err := attributor.Attribute(&portfolio.Portfolio{AsOf: m0, Holdings: []string{"C"}}, m1)
		Expect(err).To(MatchError(portfolio.ErrIncompleteMonth))
	})

	It("skips a month when the next date is not in the panel", func() {
		_, err := attributor.Attribute(&portfolio.Portfolio{AsOf: m2, Holdings: []string{"A"}}, m2.AddDate(0, 1, 0))
		Expect(err).To(MatchError(portfolio.ErrIncompleteMonth))
	})

	It("skips a month when the return is undefined", func() {
		prices.Vals[2] = []float64{10, 0, 0}
		build()

		// prices of 0 are defined but 0/0 is not
		_, err := attributor.Attribute(&portfolio.Portfolio{AsOf: m1, Holdings: []string{"C"}}, m2)
		Expect(err).To(MatchError(portfolio.ErrIncompleteMonth))
	})

	It("skips a month when the benchmark return is undefined", func() {
		benchmark.Vals[0][2] = math.NaN()
		build()

		_, err := attributor.Attribute(&portfolio.Portfolio{AsOf: m1, Holdings: []string{"A"}}, m2)
		Expect(err).To(MatchError(portfolio.ErrUndefinedBenchmark))
	})

	It("keeps the cause of a skip through JSON", func() {
		build()
		_, err := attributor.Attribute(&portfolio.Portfolio{AsOf: m0, Holdings: []string{"C"}}, m1)

		buf, marshalErr := json.Marshal(err)
		Expect(marshalErr).To(BeNil())

		decoded := &portfolio.SkipError{}
		Expect(json.Unmarshal(buf, decoded)).To(Succeed())
		Expect(decoded.Instrument).To(Equal("C"))
		Expect(errors.Is(decoded, portfolio.ErrIncompleteMonth)).To(BeTrue())
		Expect(errors.Is(decoded, portfolio.ErrUndefinedBenchmark)).To(BeFalse())
	})

	It("keeps an unknown skip reason as the error text", func() {
		decoded := &portfolio.SkipError{}
		Expect(json.Unmarshal([]byte(`{"reason":"stale price"}`), decoded)).To(Succeed())
		Expect(decoded.Err).To(MatchError("stale price"))
	})

	It("skips an empty portfolio", func() {
		_, err := attributor.Attribute(&portfolio.Portfolio{AsOf: m1}, m2)
		Expect(err).To(MatchError(portfolio.ErrEmptyPortfolio))
	})
})

var _ = Describe("Portfolio", func() {
	It("weights holdings equally", func() {
		p := &portfolio.Portfolio{Holdings: []string{"A", "B", "C", "D"}}
		Expect(p.Len()).To(Equal(4))
		Expect(p.Weight()).To(Equal(0.25))
		Expect(p.Target()).To(Equal(map[string]float64{"A": 0.25, "B": 0.25, "C": 0.25, "D": 0.25}))
		Expect(p.Contains("C")).To(BeTrue())
		Expect(p.Contains("E")).To(BeFalse())
	})

	It("has no weight when empty", func() {
		p := &portfolio.Portfolio{}
		Expect(p.Weight()).To(Equal(0.0))
		Expect(p.Target()).To(BeEmpty())
	})
})
