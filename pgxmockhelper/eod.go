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

// Package pgxmockhelper loads eod fixtures from testdata into pgxmock expectations
package pgxmockhelper

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/pashagolub/pgxmock"
	"github.com/penny-vault/pvtrend/common"
	"github.com/rs/zerolog/log"
)

// EodRows reads a fixture with the columns event_date, ticker and a price and returns the
// rows dated between a and b (inclusive). Blank prices are returned as NaN, the same as the
// COALESCE in the eod query
func EodRows(csvFn string, a, b time.Time) *pgxmock.Rows {
	subLog := log.With().Str("CsvFn", csvFn).Logger()

	fh, err := os.Open(csvFn)
	if err != nil {
		subLog.Panic().Err(err).Msg("could not open fixture")
	}
	defer fh.Close()

	records, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		subLog.Panic().Err(err).Msg("could not parse fixture")
	}

	if len(records) < 1 || len(records[0]) != 3 {
		subLog.Panic().Msg("fixture must have a header with event_date, ticker and price columns")
	}

	rows := pgxmock.NewRows(records[0])
	for _, record := range records[1:] {
		eventDate, err := time.ParseInLocation("2006-01-02", record[0], common.GetTimezone())
		if err != nil {
			subLog.Panic().Err(err).Str("Val", record[0]).Msg("could not convert val to datetime of format 2006-01-02")
		}

		if eventDate.Before(a) || eventDate.After(b) {
			continue
		}

		price := math.NaN()
		if record[2] != "" {
			price, err = strconv.ParseFloat(record[2], 64)
			if err != nil {
				subLog.Panic().Err(err).Str("Val", record[2]).Msg("could not convert val to float64")
			}
		}

		rows.AddRow(eventDate, record[1], price)
	}

	return rows
}

// MockMonthlyCloses registers the transaction and query issued by PvDb.MonthlyCloses
func MockMonthlyCloses(db pgxmock.PgxConnIface, csvFn string, a, b time.Time) {
	db.ExpectBegin()
	db.ExpectQuery("SELECT event_date, ticker, COALESCE").WillReturnRows(EodRows(csvFn, a, b))
	db.ExpectCommit()
}
