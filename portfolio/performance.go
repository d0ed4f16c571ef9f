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

package portfolio

import (
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
)

// Performance aggregates the monthly results of a backtest
type Performance struct {
	Monthly    []MonthlyResult    `json:"monthly" toml:"monthly"`
	Annual     []AnnualResult     `json:"annual" toml:"annual"`
	Cumulative []CumulativeResult `json:"cumulative" toml:"cumulative"`
	YearEnd    []CumulativeResult `json:"yearEnd" toml:"yearEnd"`
	WinLoss    WinLoss            `json:"winLoss" toml:"winLoss"`
	BestYear   *AnnualResult      `json:"bestYear,omitempty" toml:"bestYear,omitempty"`
	WorstYear  *AnnualResult      `json:"worstYear,omitempty" toml:"worstYear,omitempty"`
}

// NewPerformance aggregates results, which must be in chronological order. Values are not
// rounded
func NewPerformance(results []MonthlyResult) *Performance {
	perf := &Performance{
		Monthly: results,
	}

	perf.calculateAnnual()
	perf.calculateCumulative()
	perf.calculateWinLoss()

	log.Debug().Int("Months", len(perf.Monthly)).Int("Years", len(perf.Annual)).Msg("aggregated performance")
	return perf
}

// compound returns prod(1 + r) - 1
func compound(rets []float64) float64 {
	growth := make([]float64, len(rets))
	for idx, r := range rets {
		growth[idx] = 1 + r
	}
	return floats.Prod(growth) - 1
}

func (perf *Performance) calculateAnnual() {
	perf.Annual = make([]AnnualResult, 0, len(perf.Monthly)/12+1)

	start := 0
	for idx := range perf.Monthly {
		last := idx+1 == len(perf.Monthly)
		if !last && perf.Monthly[idx+1].Label.Year == perf.Monthly[idx].Label.Year {
			continue
		}

		year := perf.Monthly[start : idx+1]
		portfolioRets := make([]float64, len(year))
		benchmarkRets := make([]float64, len(year))
		for ii, res := range year {
			portfolioRets[ii] = res.PortfolioReturn
			benchmarkRets[ii] = res.BenchmarkReturn
		}

		perf.Annual = append(perf.Annual, AnnualResult{
			Year:            year[0].Label.Year,
			Months:          len(year),
			PortfolioReturn: compound(portfolioRets),
			BenchmarkReturn: compound(benchmarkRets),
		})

		start = idx + 1
	}

	for idx := range perf.Annual {
		annual := perf.Annual[idx]
		if perf.BestYear == nil || annual.PortfolioReturn > perf.BestYear.PortfolioReturn {
			perf.BestYear = &annual
		}
		if perf.WorstYear == nil || annual.PortfolioReturn < perf.WorstYear.PortfolioReturn {
			perf.WorstYear = &annual
		}
	}
}

// calculateCumulative compounds the monthly returns: cum[0] = r[0] and
// cum[n] = (1 + cum[n-1]) * (1 + r[n]) - 1
func (perf *Performance) calculateCumulative() {
	perf.Cumulative = make([]CumulativeResult, len(perf.Monthly))
	perf.YearEnd = make([]CumulativeResult, 0, len(perf.Monthly)/12+1)

	for idx, res := range perf.Monthly {
		cum := CumulativeResult{
			Label:           res.Label,
			Date:            res.Date,
			PortfolioReturn: res.PortfolioReturn,
			BenchmarkReturn: res.BenchmarkReturn,
		}

		if idx > 0 {
			prev := perf.Cumulative[idx-1]
			cum.PortfolioReturn = (1+prev.PortfolioReturn)*(1+res.PortfolioReturn) - 1
			cum.BenchmarkReturn = (1+prev.BenchmarkReturn)*(1+res.BenchmarkReturn) - 1
		}

		perf.Cumulative[idx] = cum
	}

	for idx, cum := range perf.Cumulative {
		if idx+1 == len(perf.Cumulative) || perf.Cumulative[idx+1].Label.Year != cum.Label.Year {
			perf.YearEnd = append(perf.YearEnd, cum)
		}
	}
}

func (perf *Performance) calculateWinLoss() {
	byMonth := make([]Tally, 12)
	for idx, name := range monthNames {
		byMonth[idx].Key = name
	}

	byYear := make(map[int]*Tally)
	years := make([]int, 0, len(perf.Monthly)/12+1)
	overall := Tally{Key: "total"}

	for _, res := range perf.Monthly {
		yearTally, ok := byYear[res.Label.Year]
		if !ok {
			yearTally = &Tally{Key: strconv.Itoa(res.Label.Year)}
			byYear[res.Label.Year] = yearTally
			years = append(years, res.Label.Year)
		}

		monthTally := &byMonth[res.Label.Month-1]
		if res.Won() {
			monthTally.Wins++
			yearTally.Wins++
			overall.Wins++
		} else {
			monthTally.Losses++
			yearTally.Losses++
			overall.Losses++
		}
	}

	sort.Ints(years)
	perf.WinLoss = WinLoss{
		ByMonth: byMonth,
		ByYear:  make([]Tally, len(years)),
		Overall: overall,
	}
	for idx, year := range years {
		perf.WinLoss.ByYear[idx] = *byYear[year]
	}
}
