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

/*
 * Trend Following
 *
 * Each month buy the instruments of the index with the highest trailing return,
 * equal weighted, and hold them until the next month end.
 */

package trend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/penny-vault/pvtrend/common"
	"github.com/penny-vault/pvtrend/data"
	"github.com/penny-vault/pvtrend/dataframe"
	"github.com/penny-vault/pvtrend/indicators"
	"github.com/penny-vault/pvtrend/observability/opentelemetry"
	"github.com/penny-vault/pvtrend/portfolio"
	"github.com/penny-vault/pvtrend/strategies/strategy"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultTopN is the number of holdings when topN is not configured
const DefaultTopN = 10

// TrendFollowing holds the topN eligible instruments with the highest trailing return
type TrendFollowing struct {
	topN     int
	lookback int
}

func intArg(args map[string]json.RawMessage, name string, def int) (int, error) {
	raw, ok := args[name]
	if !ok || len(raw) == 0 {
		return def, nil
	}

	var val int
	if err := json.Unmarshal(raw, &val); err != nil {
		return 0, fmt.Errorf("%w: %s: %s", strategy.ErrInvalidArgument, name, err.Error())
	}

	if val < 1 {
		return 0, fmt.Errorf("%w: %s must be at least 1, got %d", strategy.ErrInvalidArgument, name, val)
	}

	return val, nil
}

// New Construct a new Trend Following strategy. Arguments not supplied fall back to
// strategy.top_n and strategy.lookback from the config, then to 10 and 6
func New(args map[string]json.RawMessage) (strategy.Strategy, error) {
	defTopN := DefaultTopN
	if viper.IsSet("strategy.top_n") {
		defTopN = viper.GetInt("strategy.top_n")
	}

	defLookback := indicators.DefaultHorizon
	if viper.IsSet("strategy.lookback") {
		defLookback = viper.GetInt("strategy.lookback")
	}

	topN, err := intArg(args, "topN", defTopN)
	if err != nil {
		return nil, err
	}

	lookback, err := intArg(args, "lookback", defLookback)
	if err != nil {
		return nil, err
	}

	var trend strategy.Strategy = &TrendFollowing{
		topN:     topN,
		lookback: lookback,
	}

	return trend, nil
}

// TopN returns the maximum number of holdings
func (trend *TrendFollowing) TopN() int {
	return trend.topN
}

// Lookback returns the number of months used to compute the trailing return
func (trend *TrendFollowing) Lookback() int {
	return trend.lookback
}

// Select ranks the eligible instruments with a defined trailing return at asOf and holds the
// best topN. Instruments with equal returns keep the order of the panel columns. When fewer
// than topN instruments qualify all of them are held
func (trend *TrendFollowing) Select(ctx context.Context, universe data.Universe, trailing *dataframe.DataFrame[time.Time], asOf time.Time) (*portfolio.Portfolio, error) {
	_, span := otel.Tracer(opentelemetry.Name).Start(ctx, "trend.Select")
	defer span.End()

	subLog := log.With().Time("AsOf", asOf).Logger()

	eligible, err := universe.Eligible(asOf)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "membership unavailable")
		subLog.Error().Err(err).Msg("could not resolve universe")
		return nil, err
	}

	isEligible := make(map[string]bool, len(eligible))
	for _, instrument := range eligible {
		isEligible[instrument] = true
	}

	ranked := make(common.PairList, 0, len(eligible))
	if rowIdx := trailing.RowIndex(asOf); rowIdx != -1 {
		for colIdx, instrument := range trailing.ColNames {
			val := trailing.Vals[colIdx][rowIdx]
			if !isEligible[instrument] || math.IsNaN(val) {
				continue
			}
			ranked = append(ranked, common.Pair{Key: instrument, Value: val})
		}
	} else {
		subLog.Warn().Msg("rebalance date is not in the return panel")
	}

	sort.Stable(sort.Reverse(ranked))

	if len(ranked) > trend.topN {
		ranked = ranked[:trend.topN]
	}

	p := &portfolio.Portfolio{
		AsOf:     asOf,
		Holdings: ranked.Keys(),
		Scores:   make([]float64, len(ranked)),
	}
	for idx, pair := range ranked {
		p.Scores[idx] = pair.Value
	}

	span.SetAttributes(attribute.Int("Eligible", len(eligible)), attribute.Int("Holdings", p.Len()))
	subLog.Debug().Int("Eligible", len(eligible)).Strs("Holdings", p.Holdings).Msg("selected portfolio")

	return p, nil
}
