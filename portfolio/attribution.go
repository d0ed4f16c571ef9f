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
	"math"
	"time"

	"github.com/penny-vault/pvtrend/dataframe"
	"github.com/penny-vault/pvtrend/indicators"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

// Attributor computes the return a portfolio earns over the month after it is formed
type Attributor struct {
	// Prices is the monthly price panel before any gap filling
	Prices *dataframe.DataFrame[time.Time]

	// Returns are the returns computed from Prices
	Returns *indicators.Returns

	// Benchmark holds the 1-month returns of the benchmark in its first column
	Benchmark *indicators.Returns
}

// NewAttributor builds an attributor; benchmark is a single column price series whose
// returns are computed without filling gaps
func NewAttributor(prices *dataframe.DataFrame[time.Time], returns *indicators.Returns, benchmark *dataframe.DataFrame[time.Time]) *Attributor {
	return &Attributor{
		Prices:    prices,
		Returns:   returns,
		Benchmark: indicators.NewReturns(benchmark, 1, indicators.ReturnOptions{FillMissing: false}),
	}
}

func (a *Attributor) defined(date time.Time, instrument string) bool {
	val, ok := a.Prices.Value(date, instrument)
	return ok && !math.IsNaN(val)
}

// Attribute computes the equal weight return of p over the period ending at next. Every
// holding must have a price at p.AsOf and next and a defined return at next, otherwise the
// month is skipped with a *SkipError wrapping ErrIncompleteMonth. A month where the
// benchmark return is undefined is skipped with ErrUndefinedBenchmark
func (a *Attributor) Attribute(p *Portfolio, next time.Time) (MonthlyResult, error) {
	if p.Len() == 0 {
		return MonthlyResult{}, newSkipError(p.AsOf, next, "", ErrEmptyPortfolio)
	}

	rets := make([]float64, 0, p.Len())
	for _, holding := range p.Holdings {
		if !a.defined(p.AsOf, holding) || !a.defined(next, holding) {
			log.Debug().Time("AsOf", p.AsOf).Time("Date", next).Str("Instrument", holding).Msg("price missing for holding")
			return MonthlyResult{}, newSkipError(p.AsOf, next, holding, ErrIncompleteMonth)
		}

		ret, ok := a.Returns.Lookup(next, holding)
		if !ok {
			log.Debug().Time("AsOf", p.AsOf).Time("Date", next).Str("Instrument", holding).Msg("return undefined for holding")
			return MonthlyResult{}, newSkipError(p.AsOf, next, holding, ErrIncompleteMonth)
		}

		rets = append(rets, ret)
	}

	benchmarkReturn := math.NaN()
	if len(a.Benchmark.Monthly.ColNames) > 0 {
		benchmarkReturn, _ = a.Benchmark.Lookup(next, a.Benchmark.Monthly.ColNames[0])
	}

	if math.IsNaN(benchmarkReturn) {
		return MonthlyResult{}, newSkipError(p.AsOf, next, "", ErrUndefinedBenchmark)
	}

	holdings := make([]string, p.Len())
	copy(holdings, p.Holdings)

	return MonthlyResult{
		AsOf:            p.AsOf,
		Date:            next,
		Label:           LabelFor(p.AsOf),
		PortfolioReturn: stat.Mean(rets, nil),
		BenchmarkReturn: benchmarkReturn,
		Holdings:        holdings,
	}, nil
}
