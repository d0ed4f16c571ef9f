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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx/v3"
)

// LoadMembershipXLSX reads the index composition workbook. The first sheet must have one
// column per month: the header cell holds the month-end date and the cells below it the
// tickers that were constituents that month
func LoadMembershipXLSX(fn string, suffix string) (*MembershipTable, error) {
	wb, err := xlsx.OpenFile(fn)
	if err != nil {
		log.Error().Err(err).Str("FileName", fn).Msg("could not open membership workbook")
		return nil, err
	}

	return membershipFromWorkbook(wb, suffix)
}

// ReadMembershipXLSX parses an in-memory composition workbook
func ReadMembershipXLSX(content []byte, suffix string) (*MembershipTable, error) {
	wb, err := xlsx.OpenBinary(content)
	if err != nil {
		log.Error().Err(err).Msg("could not parse membership workbook")
		return nil, err
	}

	return membershipFromWorkbook(wb, suffix)
}

func membershipFromWorkbook(wb *xlsx.File, suffix string) (*MembershipTable, error) {
	if len(wb.Sheets) == 0 {
		return nil, ErrNoData
	}

	sheet := wb.Sheets[0]
	subLog := log.With().Str("Sheet", sheet.Name).Int("MaxRow", sheet.MaxRow).Int("MaxCol", sheet.MaxCol).Logger()
	if sheet.MaxRow == 0 {
		return nil, ErrNoData
	}

	header := make([]string, sheet.MaxCol)
	columns := make([][]string, sheet.MaxCol)
	for colIdx := 0; colIdx < sheet.MaxCol; colIdx++ {
		cell, err := sheet.Cell(0, colIdx)
		if err != nil {
			subLog.Error().Err(err).Int("Column", colIdx).Msg("could not read header cell")
			return nil, err
		}

		dt, err := headerDate(cell, wb.Date1904)
		if err != nil {
			subLog.Error().Err(err).Int("Column", colIdx).Msg("could not read header date")
			return nil, err
		}
		if !dt.IsZero() {
			header[colIdx] = dt.Format("2006-01-02")
		}

		for rowIdx := 1; rowIdx < sheet.MaxRow; rowIdx++ {
			cell, err := sheet.Cell(rowIdx, colIdx)
			if err != nil {
				subLog.Error().Err(err).Int("Row", rowIdx).Int("Column", colIdx).Msg("could not read ticker cell")
				return nil, err
			}
			columns[colIdx] = append(columns[colIdx], cell.String())
		}
	}

	return buildMembership(header, columns, suffix)
}

// headerDate handles both real date cells and dates typed as text or serial numbers;
// an empty cell returns the zero time
func headerDate(cell *xlsx.Cell, date1904 bool) (time.Time, error) {
	if cell.IsTime() {
		dt, err := cell.GetTime(date1904)
		if err != nil {
			return time.Time{}, err
		}
		return dt, nil
	}

	raw := strings.TrimSpace(cell.String())
	if raw == "" {
		return time.Time{}, nil
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		return xlsx.TimeFromExcelTime(serial, date1904), nil
	}

	dt, err := ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("header %q: %w", raw, err)
	}
	return dt, nil
}
