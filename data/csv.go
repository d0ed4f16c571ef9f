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
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/penny-vault/pvtrend/dataframe"
	"github.com/rs/zerolog/log"
)

// ReadPricesCSV parses a wide price table: the first column holds the date and every other
// column the closing price of one instrument. Blank cells and `NaN` are stored as math.NaN()
func ReadPricesCSV(r io.Reader) (*dataframe.DataFrame[time.Time], error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedInput, err.Error())
	}

	if len(records) < 2 {
		return nil, ErrNoData
	}

	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: price table needs a date column and at least one instrument", ErrMalformedInput)
	}

	colNames := make([]string, len(header)-1)
	for idx, name := range header[1:] {
		colNames[idx] = strings.TrimSpace(name)
	}

	df := &dataframe.DataFrame[time.Time]{
		ColNames: colNames,
		Index:    make([]time.Time, 0, len(records)-1),
		Vals:     make([][]float64, len(colNames)),
	}

	for lineNo, record := range records[1:] {
		subLog := log.With().Int("Line", lineNo+2).Logger()

		dt, err := ParseDate(record[0])
		if err != nil {
			subLog.Error().Err(err).Msg("could not parse date in price table")
			return nil, err
		}

		if df.Len() > 0 && !df.End().Before(dt) {
			subLog.Error().Time("Date", dt).Time("Previous", df.End()).Msg("price table dates must be strictly increasing")
			return nil, fmt.Errorf("%w: dates must be strictly increasing (line %d)", ErrMalformedInput, lineNo+2)
		}

		vals := make([]float64, len(colNames))
		for colIdx := range colNames {
			vals[colIdx] = math.NaN()
			if colIdx+1 >= len(record) {
				continue
			}

			cell := strings.TrimSpace(record[colIdx+1])
			if cell == "" || strings.EqualFold(cell, "nan") {
				continue
			}

			price, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				subLog.Error().Err(err).Str("Instrument", colNames[colIdx]).Str("Val", cell).Msg("could not convert price to float64")
				return nil, fmt.Errorf("%w: %s", ErrMalformedInput, err.Error())
			}
			vals[colIdx] = price
		}

		df.InsertRow(dt, vals...)
	}

	return df, nil
}

// LoadPricesCSV reads a wide price table from disk
func LoadPricesCSV(fn string) (*dataframe.DataFrame[time.Time], error) {
	fh, err := os.Open(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not open price file")
		return nil, err
	}
	defer fh.Close()

	return ReadPricesCSV(fh)
}

// ReadMembershipCSV parses an index composition table laid out the same way as the
// composition spreadsheet: the header row holds one date per column and each column lists
// the tickers that were constituents that month, padded with blank cells
func ReadMembershipCSV(r io.Reader, suffix string) (*MembershipTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedInput, err.Error())
	}

	if len(records) == 0 {
		return nil, ErrNoData
	}

	columns := make([][]string, len(records[0]))
	for _, record := range records[1:] {
		for colIdx := range columns {
			if colIdx < len(record) {
				columns[colIdx] = append(columns[colIdx], record[colIdx])
			}
		}
	}

	return buildMembership(records[0], columns, suffix)
}

// LoadMembershipCSV reads an index composition table from disk
func LoadMembershipCSV(fn string, suffix string) (*MembershipTable, error) {
	fh, err := os.Open(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not open membership file")
		return nil, err
	}
	defer fh.Close()

	return ReadMembershipCSV(fh, suffix)
}

func buildMembership(header []string, columns [][]string, suffix string) (*MembershipTable, error) {
	table := NewMembershipTable(suffix)
	for colIdx, rawDate := range header {
		if strings.TrimSpace(rawDate) == "" {
			continue
		}

		dt, err := ParseDate(rawDate)
		if err != nil {
			log.Error().Err(err).Int("Column", colIdx).Msg("could not parse membership date")
			return nil, err
		}

		table.Add(dt, columns[colIdx]...)
	}

	if table.Len() == 0 {
		return nil, ErrNoData
	}

	log.Debug().Int("Months", table.Len()).Int("Instruments", len(table.Instruments())).Msg("loaded index membership")
	return table, nil
}
