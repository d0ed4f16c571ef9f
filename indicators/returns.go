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

// Package indicators computes the period returns used to rank and attribute portfolios
package indicators

import (
	"math"
	"time"

	"github.com/penny-vault/pvtrend/dataframe"
	"github.com/rs/zerolog/log"
)

// DefaultHorizon is the trailing window, in months, used to rank instruments
const DefaultHorizon = 6

// ReturnOptions controls how gaps in the price panel are handled
type ReturnOptions struct {
	// FillMissing treats a missing price as 0 before computing returns. A return computed
	// from a zero-filled price collapses to 0, which keeps the instrument in the ranking
	FillMissing bool
}

// DefaultReturnOptions returns the options used by the reference backtests
func DefaultReturnOptions() ReturnOptions {
	return ReturnOptions{
		FillMissing: true,
	}
}

// Returns holds the 1-month and trailing returns of a monthly price panel. Both frames share
// the index and column order of the panel they were computed from
type Returns struct {
	Monthly  *dataframe.DataFrame[time.Time]
	Trailing *dataframe.DataFrame[time.Time]
	Horizon  int
}

// PeriodReturns computes price[t] / price[t-n] - 1 for every cell of prices.
//
// Results of +Inf, -Inf and exactly -1 are replaced with 0. These are produced when a price
// (or a zero-filled gap) is 0 on one side of the window. A 0/0 and the first n rows stay NaN
// and are treated as undefined by callers
func PeriodReturns(prices *dataframe.DataFrame[time.Time], n int, opts ReturnOptions) *dataframe.DataFrame[time.Time] {
	if opts.FillMissing {
		prices = prices.FillNA(0)
	}

	return prices.PctChange(n).Replace(0, math.Inf(1), math.Inf(-1), -1)
}

// NewReturns computes the 1-month and horizon-month returns of prices. A horizon less than 1
// falls back to DefaultHorizon
func NewReturns(prices *dataframe.DataFrame[time.Time], horizon int, opts ReturnOptions) *Returns {
	if horizon < 1 {
		log.Warn().Int("Horizon", horizon).Int("Default", DefaultHorizon).Msg("invalid return horizon, using default")
		horizon = DefaultHorizon
	}

	return &Returns{
		Monthly:  PeriodReturns(prices, 1, opts),
		Trailing: PeriodReturns(prices, horizon, opts),
		Horizon:  horizon,
	}
}

// Lookup returns the 1-month return of instrument at date. The second return value is false
// when the date or instrument is not in the panel or the return is undefined
func (r *Returns) Lookup(date time.Time, instrument string) (float64, bool) {
	val, ok := r.Monthly.Value(date, instrument)
	if !ok || math.IsNaN(val) {
		return math.NaN(), false
	}
	return val, true
}

// LookupTrailing returns the trailing return of instrument at date, with the same semantics
// as Lookup
func (r *Returns) LookupTrailing(date time.Time, instrument string) (float64, bool) {
	val, ok := r.Trailing.Value(date, instrument)
	if !ok || math.IsNaN(val) {
		return math.NaN(), false
	}
	return val, true
}
