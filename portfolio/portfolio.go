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

// Package portfolio attributes monthly returns to equal weight portfolios and aggregates
// them into annual and cumulative performance
package portfolio

import (
	"time"
)

// Portfolio is the equal weight set of instruments selected at the end of month AsOf. Scores
// holds the ranking score of each holding in the same order
type Portfolio struct {
	AsOf     time.Time `json:"asOf" toml:"asOf"`
	Holdings []string  `json:"holdings" toml:"holdings"`
	Scores   []float64 `json:"scores" toml:"scores"`
}

// Len returns the number of holdings
func (p *Portfolio) Len() int {
	return len(p.Holdings)
}

// Weight returns the allocation of each holding
func (p *Portfolio) Weight() float64 {
	if len(p.Holdings) == 0 {
		return 0
	}
	return 1.0 / float64(len(p.Holdings))
}

// Contains reports whether instrument is held
func (p *Portfolio) Contains(instrument string) bool {
	for _, holding := range p.Holdings {
		if holding == instrument {
			return true
		}
	}
	return false
}

// Target returns the target allocation keyed by instrument
func (p *Portfolio) Target() map[string]float64 {
	weight := p.Weight()
	target := make(map[string]float64, len(p.Holdings))
	for _, holding := range p.Holdings {
		target[holding] = weight
	}
	return target
}

// MonthlyResult is the return earned by a portfolio formed at AsOf and held until Date
type MonthlyResult struct {
	AsOf            time.Time  `json:"asOf" toml:"asOf"`
	Date            time.Time  `json:"date" toml:"date"`
	Label           MonthLabel `json:"label" toml:"label"`
	PortfolioReturn float64    `json:"portfolioReturn" toml:"portfolioReturn"`
	BenchmarkReturn float64    `json:"benchmarkReturn" toml:"benchmarkReturn"`
	Holdings        []string   `json:"holdings" toml:"holdings"`
}

// Excess returns the portfolio return minus the benchmark return
func (r MonthlyResult) Excess() float64 {
	return r.PortfolioReturn - r.BenchmarkReturn
}

// Won reports whether the portfolio beat the benchmark; a tie is a loss
func (r MonthlyResult) Won() bool {
	return r.PortfolioReturn > r.BenchmarkReturn
}

// AnnualResult holds the compounded returns of the months labeled with Year
type AnnualResult struct {
	Year            int     `json:"year" toml:"year"`
	Months          int     `json:"months" toml:"months"`
	PortfolioReturn float64 `json:"portfolioReturn" toml:"portfolioReturn"`
	BenchmarkReturn float64 `json:"benchmarkReturn" toml:"benchmarkReturn"`
}

// Excess returns the portfolio return minus the benchmark return
func (r AnnualResult) Excess() float64 {
	return r.PortfolioReturn - r.BenchmarkReturn
}

// CumulativeResult is the compounded return from the first reported month through Label
type CumulativeResult struct {
	Label           MonthLabel `json:"label" toml:"label"`
	Date            time.Time  `json:"date" toml:"date"`
	PortfolioReturn float64    `json:"portfolioReturn" toml:"portfolioReturn"`
	BenchmarkReturn float64    `json:"benchmarkReturn" toml:"benchmarkReturn"`
}

// Excess returns the portfolio return minus the benchmark return
func (r CumulativeResult) Excess() float64 {
	return r.PortfolioReturn - r.BenchmarkReturn
}

// Tally counts the months the portfolio beat (Wins) or did not beat (Losses) the benchmark
type Tally struct {
	Key    string `json:"key" toml:"key"`
	Wins   int    `json:"wins" toml:"wins"`
	Losses int    `json:"losses" toml:"losses"`
}

func (t Tally) Total() int {
	return t.Wins + t.Losses
}

// WinRate returns the fraction of months won, or 0 when there are none
func (t Tally) WinRate() float64 {
	if t.Total() == 0 {
		return 0
	}
	return float64(t.Wins) / float64(t.Total())
}

// WinLoss tallies wins and losses by calendar month (jan through dez) and by year
type WinLoss struct {
	ByMonth []Tally `json:"byMonth" toml:"byMonth"`
	ByYear  []Tally `json:"byYear" toml:"byYear"`
	Overall Tally   `json:"overall" toml:"overall"`
}
