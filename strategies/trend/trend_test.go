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

package trend_test

import (
	"context"
	"math"
	"time"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pvtrend/data"
	"github.com/penny-vault/pvtrend/dataframe"
	"github.com/penny-vault/pvtrend/strategies/strategy"
	"github.com/penny-vault/pvtrend/strategies/trend"
)

func newTrend(args string) strategy.Strategy {
	params := map[string]json.RawMessage{}
	Expect(json.Unmarshal([]byte(args), &params)).To(Succeed())

	strat, err := trend.New(params)
	Expect(err).To(BeNil())
	return strat
}

var _ = Describe("TrendFollowing", func() {
	var (
		ctx      context.Context
		asOf     time.Time
		trailing *dataframe.DataFrame[time.Time]
		universe *data.MembershipTable
	)

	BeforeEach(func() {
		ctx = context.Background()
		asOf = time.Date(2016, 6, 30, 0, 0, 0, 0, time.UTC)

		trailing = &dataframe.DataFrame[time.Time]{
			Index:    []time.Time{time.Date(2016, 5, 31, 0, 0, 0, 0, time.UTC), asOf},
			ColNames: []string{"A.SA", "B.SA", "C.SA", "D.SA", "E.SA", "F.SA"},
			Vals: [][]float64{
				{0.9, 0.10},
				{0.9, 0.30},
				{0.9, math.NaN()},
				{0.9, 0.30},
				{0.9, 0.50},
				{0.9, 0.99},
			},
		}

		universe = data.NewMembershipTable(data.DefaultSuffix)
		universe.Add(asOf, "A", "B", "C", "D", "E")
	})

	It("ranks eligible instruments by trailing return", func() {
		p, err := newTrend(`{"topN": 10}`).Select(ctx, universe, trailing, asOf)
		Expect(err).To(BeNil())
		Expect(p.AsOf).To(Equal(asOf))
		Expect(p.Holdings).To(Equal([]string{"E.SA", "B.SA", "D.SA", "A.SA"}))
		Expect(p.Scores).To(Equal([]float64{0.50, 0.30, 0.30, 0.10}))
	})

	It("keeps panel order for equal returns", func() {
		trailing.ColNames = []string{"A.SA", "D.SA", "C.SA", "B.SA", "E.SA", "F.SA"}
		p, err := newTrend(`{}`).Select(ctx, universe, trailing, asOf)
		Expect(err).To(BeNil())
		Expect(p.Holdings[1:3]).To(Equal([]string{"D.SA", "B.SA"}))
	})

	It("holds at most topN instruments", func() {
		p, err := newTrend(`{"topN": 2}`).Select(ctx, universe, trailing, asOf)
		Expect(err).To(BeNil())
		Expect(p.Holdings).To(Equal([]string{"E.SA", "B.SA"}))
	})

	It("only holds eligible instruments with a defined return", func() {
		p, err := newTrend(`{"topN": 10}`).Select(ctx, universe, trailing, asOf)
		Expect(err).To(BeNil())

		eligible, err := universe.Eligible(asOf)
		Expect(err).To(BeNil())
		for _, holding := range p.Holdings {
			Expect(eligible).To(ContainElement(holding))
		}
		Expect(p.Contains("F.SA")).To(BeFalse(), "not a member")
		Expect(p.Contains("C.SA")).To(BeFalse(), "undefined return")
	})

	It("returns an empty portfolio when the date has no returns", func() {
		other := time.Date(2016, 7, 29, 0, 0, 0, 0, time.UTC)
		universe.Add(other, "A")
		p, err := newTrend(`{}`).Select(ctx, universe, trailing, other)
		Expect(err).To(BeNil())
		Expect(p.Len()).To(Equal(0))
	})

	It("fails when membership is missing", func() {
		_, err := newTrend(`{}`).Select(ctx, universe, trailing, time.Date(2016, 8, 31, 0, 0, 0, 0, time.UTC))
		Expect(err).To(MatchError(data.ErrMissingMembership))
	})

	Context("arguments", func() {
		It("uses defaults", func() {
			strat := newTrend(`{}`)
			Expect(strat.Lookback()).To(Equal(6))
			Expect(strat.(*trend.TrendFollowing).TopN()).To(Equal(trend.DefaultTopN))
		})

		It("reads topN and lookback", func() {
			strat := newTrend(`{"topN": 3, "lookback": 12}`)
			Expect(strat.Lookback()).To(Equal(12))
			Expect(strat.(*trend.TrendFollowing).TopN()).To(Equal(3))
		})

		DescribeTable("rejects invalid values",
			func(args string) {
				params := map[string]json.RawMessage{}
				Expect(json.Unmarshal([]byte(args), &params)).To(Succeed())
				_, err := trend.New(params)
				Expect(err).To(MatchError(strategy.ErrInvalidArgument))
			},
			Entry("zero holdings", `{"topN": 0}`),
			Entry("negative lookback", `{"lookback": -1}`),
			Entry("not a number", `{"topN": "ten"}`),
		)
	})
})
