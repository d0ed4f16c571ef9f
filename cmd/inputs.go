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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/penny-vault/pvtrend/backtest"
	"github.com/penny-vault/pvtrend/data"
	"github.com/penny-vault/pvtrend/data/database"
	"github.com/penny-vault/pvtrend/dataframe"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	ErrMissingInput  = errors.New("required input file not configured")
	ErrUnknownSource = errors.New("unknown data source")
)

// loadMembership reads the index composition from a CSV or XLSX file
func loadMembership() (*data.MembershipTable, error) {
	fn := viper.GetString("data.membership")
	if fn == "" {
		return nil, fmt.Errorf("%w: data.membership", ErrMissingInput)
	}

	suffix := viper.GetString("universe.suffix")
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".xlsx":
		return data.LoadMembershipXLSX(fn, suffix)
	default:
		return data.LoadMembershipCSV(fn, suffix)
	}
}

func loadCSVPanel(key string) (*dataframe.DataFrame[time.Time], error) {
	fn := viper.GetString(key)
	if fn == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, key)
	}

	df, err := data.LoadPricesCSV(fn)
	if err != nil {
		return nil, err
	}

	if viper.GetBool("data.resample") {
		df = df.Frequency(dataframe.MonthEnd)
	}

	return df, nil
}

// loadDatabasePanels fetches month end closes for every instrument that was ever in the
// index, starting early enough to compute the trailing return of the first month
func loadDatabasePanels(ctx context.Context, membership *data.MembershipTable, lookback int) (*dataframe.DataFrame[time.Time], *dataframe.DataFrame[time.Time], error) {
	if err := database.Connect(ctx); err != nil {
		return nil, nil, err
	}

	dates := membership.Dates()
	begin := dates[0].AddDate(0, -(lookback + 1), 0)
	end := dates[len(dates)-1].AddDate(0, 1, 0)

	pvdb := data.NewPvDb()
	prices, err := pvdb.MonthlyCloses(ctx, membership.Instruments(), begin, end)
	if err != nil {
		return nil, nil, err
	}

	benchmark, err := pvdb.MonthlyCloses(ctx, []string{viper.GetString("data.benchmark_ticker")}, begin, end)
	if err != nil {
		return nil, nil, err
	}

	return prices, benchmark, nil
}

// loadInputs assembles the backtest inputs from the configured data source
func loadInputs(ctx context.Context, lookback int) (backtest.Inputs, error) {
	membership, err := loadMembership()
	if err != nil {
		return backtest.Inputs{}, err
	}

	inputs := backtest.Inputs{
		Membership: membership,
	}

	source := viper.GetString("data.source")
	switch source {
	case "csv", "":
		if inputs.Prices, err = loadCSVPanel("data.prices"); err != nil {
			return backtest.Inputs{}, err
		}
		if inputs.Benchmark, err = loadCSVPanel("data.benchmark"); err != nil {
			return backtest.Inputs{}, err
		}
	case "pvdb":
		if inputs.Prices, inputs.Benchmark, err = loadDatabasePanels(ctx, membership, lookback); err != nil {
			return backtest.Inputs{}, err
		}
	default:
		return backtest.Inputs{}, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	log.Info().Str("Source", source).Int("Months", inputs.Prices.Len()).Int("Instruments", inputs.Prices.ColCount()).Int("MembershipMonths", membership.Len()).Msg("loaded inputs")
	return inputs, nil
}

// parseWindow reads backtest.begin and backtest.end; blank values leave the window open
func parseWindow() (begin, end time.Time, err error) {
	if val := viper.GetString("backtest.begin"); val != "" {
		if begin, err = data.ParseDate(val); err != nil {
			return
		}
	}

	if val := viper.GetString("backtest.end"); val != "" {
		if end, err = data.ParseDate(val); err != nil {
			return
		}
	}

	if !begin.IsZero() && !end.IsZero() && end.Before(begin) {
		err = data.ErrInvalidTimeRange
	}

	return
}
