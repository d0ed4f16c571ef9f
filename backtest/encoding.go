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

package backtest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pelletier/go-toml/v2"
	"github.com/penny-vault/pvtrend/common"
	"github.com/penny-vault/pvtrend/portfolio"
	"github.com/penny-vault/pvtrend/strategies/strategy"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")
)

// Output formats supported by Encode
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatTOML  = "toml"
)

// JSON encodes the full result
func (r *Result) JSON() ([]byte, error) {
	return json.Marshal(r)
}

// TOML encodes the full result
func (r *Result) TOML() ([]byte, error) {
	return toml.Marshal(r)
}

// DecodeJSON parses a result produced by JSON
func DecodeJSON(buf []byte) (*Result, error) {
	res := &Result{}
	if err := json.Unmarshal(buf, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Table renders the monthly, annual and cumulative tables plus the year x month grid and
// win/loss tally
func (r *Result) Table() string {
	s := &strings.Builder{}
	perf := r.Performance
	if perf == nil {
		perf = portfolio.NewPerformance(r.MonthlyResults)
	}

	fmt.Fprintf(s, "Run %s (%s - %s)\n\n", r.ID, r.Begin.Format("2006-01-02"), r.End.Format("2006-01-02"))

	s.WriteString("Monthly returns\n")
	s.WriteString(perf.MonthlyTable().Table())
	s.WriteString("\nAnnual returns\n")
	s.WriteString(perf.AnnualTable().Table())
	s.WriteString("\nCumulative returns\n")
	s.WriteString(perf.CumulativeTable().Table())
	s.WriteString("\nCumulative returns at year end\n")
	s.WriteString(perf.YearEndTable().Table())
	s.WriteString("\nPortfolio returns by month\n")
	s.WriteString(perf.Grid(func(res portfolio.MonthlyResult) float64 { return res.PortfolioReturn }).Table())
	s.WriteString("\nExcess returns by month\n")
	s.WriteString(perf.Grid(portfolio.MonthlyResult.Excess).Table())
	s.WriteString("\nWins and losses against the benchmark\n")
	s.WriteString(perf.WinLossTable())

	if len(r.Skipped) > 0 {
		fmt.Fprintf(s, "\nSkipped %d months\n", len(r.Skipped))
		for _, skip := range r.Skipped {
			s.WriteString(skip.Error())
			s.WriteString("\n")
		}
	}

	return s.String()
}

// Encode renders the result in one of the supported formats
func (r *Result) Encode(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatTable, "":
		return []byte(r.Table()), nil
	case FormatJSON:
		return json.MarshalIndent(r, "", "  ")
	case FormatTOML:
		return r.TOML()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

func cacheKey(fingerprint string) string {
	return "backtest:" + fingerprint
}

// RunCached returns the cached result for the fingerprint of the inputs when one is
// available, otherwise it runs the backtest and caches the result. Cache failures are
// logged and never fail the run
func RunCached(ctx context.Context, inputs Inputs, strat strategy.Strategy, opts Options) (*Result, error) {
	key := cacheKey(Fingerprint(inputs, strat, opts))
	subLog := log.With().Str("Key", key).Logger()

	buf, err := common.CacheGet(ctx, key)
	switch {
	case err == nil:
		res, decodeErr := DecodeJSON(buf)
		if decodeErr == nil {
			subLog.Info().Msg("using cached backtest result")
			return res, nil
		}
		subLog.Warn().Err(decodeErr).Msg("could not decode cached result")
	case errors.Is(err, common.ErrCacheMiss), errors.Is(err, common.ErrCacheNotCreated):
	default:
		subLog.Warn().Err(err).Msg("cache lookup failed")
	}

	res, err := Run(ctx, inputs, strat, opts)
	if err != nil {
		return nil, err
	}

	encoded, err := res.JSON()
	if err != nil {
		subLog.Warn().Err(err).Msg("could not encode result for cache")
		return res, nil
	}

	if err := common.CacheSet(ctx, key, encoded); err != nil && !errors.Is(err, common.ErrCacheNotCreated) {
		subLog.Warn().Err(err).Msg("could not cache result")
	}

	return res, nil
}
