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

package data

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/penny-vault/pvtrend/common"
	"github.com/penny-vault/pvtrend/data/database"
	"github.com/penny-vault/pvtrend/dataframe"
	"github.com/penny-vault/pvtrend/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PvDb loads end-of-day prices from the penny vault eod table
type PvDb struct {
	Metric Metric
}

// NewPvDb creates a new PVDB data provider that reads adjusted closes
func NewPvDb() *PvDb {
	return &PvDb{
		Metric: MetricAdjustedClose,
	}
}

// MonthlyCloses returns a panel with one column per ticker (in the order requested) holding
// the last available price of each calendar month between begin and end. Prices that are
// not available are NaN
func (p *PvDb) MonthlyCloses(ctx context.Context, tickers []string, begin, end time.Time) (*dataframe.DataFrame[time.Time], error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "pvdb.MonthlyCloses")
	defer span.End()

	span.SetAttributes(attribute.Int("NumTickers", len(tickers)))

	subLog := log.With().Time("Begin", begin).Time("End", end).Int("NumTickers", len(tickers)).Logger()

	if end.Before(begin) {
		subLog.Warn().Msg("end before begin in call to MonthlyCloses")
		return nil, ErrInvalidTimeRange
	}

	column, err := p.Metric.column()
	if err != nil {
		return nil, err
	}

	trx, trxID, err := database.Trx(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not get a database transaction")
		subLog.Error().Err(err).Msg("could not get a database transaction")
		return nil, err
	}
	defer database.Done(trxID)

	sql := fmt.Sprintf("SELECT event_date, ticker, COALESCE(%s, 'NaN'::float8) FROM eod WHERE ticker = ANY($1) AND event_date BETWEEN $2 AND $3 ORDER BY event_date, ticker", column)
	rows, err := trx.Query(ctx, sql, tickers, begin, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "database query failed")
		subLog.Error().Err(err).Str("SQL", sql).Msg("could not query eod prices")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	colIdx := make(map[string]int, len(tickers))
	for idx, ticker := range tickers {
		colIdx[ticker] = idx
	}

	tz := common.GetTimezone()
	df := &dataframe.DataFrame[time.Time]{
		ColNames: tickers,
		Index:    make([]time.Time, 0, 256),
		Vals:     make([][]float64, len(tickers)),
	}

	for rows.Next() {
		var (
			eventDate time.Time
			ticker    string
			price     float64
		)

		if err := rows.Scan(&eventDate, &ticker, &price); err != nil {
			subLog.Error().Err(err).Msg("could not scan eod row")
			rows.Close()
			if err := trx.Rollback(ctx); err != nil {
				subLog.Error().Err(err).Msg("could not rollback transaction")
			}
			return nil, err
		}

		eventDate = time.Date(eventDate.Year(), eventDate.Month(), eventDate.Day(), 0, 0, 0, 0, tz)
		if df.Len() == 0 || !df.End().Equal(eventDate) {
			vals := make([]float64, len(tickers))
			for idx := range vals {
				vals[idx] = math.NaN()
			}
			df.InsertRow(eventDate, vals...)
		}

		if idx, ok := colIdx[ticker]; ok {
			df.Vals[idx][df.Len()-1] = price
		}
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		subLog.Error().Err(err).Msg("eod query read failed")
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Err(err).Msg("could not rollback transaction")
		}
		return nil, err
	}

	if err := trx.Commit(ctx); err != nil {
		subLog.Warn().Err(err).Msg("could not commit transaction")
	}

	if df.Len() == 0 {
		span.SetStatus(codes.Error, "no prices found")
		return nil, ErrNoData
	}

	monthly := df.Frequency(dataframe.MonthEnd)
	subLog.Debug().Int("Rows", monthly.Len()).Msg("loaded monthly closes")
	return monthly, nil
}
