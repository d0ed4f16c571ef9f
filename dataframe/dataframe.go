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

package dataframe

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
)

// ColIndex returns the index of the specified column; returns -1 if column doesn't exist
func (df *DataFrame[T]) ColIndex(colName string) int {
	for idx, val := range df.ColNames {
		if colName == val {
			return idx
		}
	}

	return -1
}

// ColCount returns the number of columns in the dataframe
func (df *DataFrame[T]) ColCount() int {
	return len(df.ColNames)
}

// Copy creates a copy of the dataframe
func (df *DataFrame[T]) Copy() *DataFrame[T] {
	df2 := &DataFrame[T]{
		ColNames: make([]string, len(df.ColNames)),
		Index:    make([]T, len(df.Index)),
		Vals:     make([][]float64, len(df.Vals)),
	}

	copy(df2.ColNames, df.ColNames)
	copy(df2.Index, df.Index)

	for idx := range df2.Vals {
		df2.Vals[idx] = make([]float64, len(df.Vals[idx]))
		copy(df2.Vals[idx], df.Vals[idx])
	}

	return df2
}

// End returns the last time in the DataFrame
func (df *DataFrame[T]) End() time.Time {
	if len(df.Index) == 0 {
		return time.Time{}
	}

	if lastDate, ok := any(df.Index[len(df.Index)-1]).(time.Time); ok {
		return lastDate
	}

	return time.Time{}
}

// Frequency returns a data frame filtered to the requested frequency by keeping the last observation
// of each period; note this is not an in-place function but creates a copy of the data
//
// NOTE: If the dataframe's index is not time.Time then the function will panic
func (df *DataFrame[T]) Frequency(frequency Frequency) *DataFrame[T] {
	var samePeriod func(a, b time.Time) bool

	switch frequency {
	case MonthEnd:
		samePeriod = func(a, b time.Time) bool {
			return a.Year() == b.Year() && a.Month() == b.Month()
		}
	case YearEnd:
		samePeriod = func(a, b time.Time) bool {
			return a.Year() == b.Year()
		}
	default:
		log.Panic().Str("Frequency", string(frequency)).Msg("unknown frequency provided to dataframe frequency function")
	}

	newIndex := make([]T, 0, len(df.Index))
	newVals := make([][]float64, len(df.ColNames))
	for idx, rowIdx := range df.Index {
		dt := any(rowIdx).(time.Time)
		if idx+1 < len(df.Index) && samePeriod(dt, any(df.Index[idx+1]).(time.Time)) {
			continue
		}

		newIndex = append(newIndex, rowIdx)
		for colIdx := range newVals {
			newVals[colIdx] = append(newVals[colIdx], df.Vals[colIdx][idx])
		}
	}

	return &DataFrame[T]{
		Index:    newIndex,
		ColNames: df.ColNames,
		Vals:     newVals,
	}
}

// InsertRow adds a new row to the dataframe. Date must be after the last date in the dataframe and vals must equal the number
// of columns. If either of these conditions are not met then panic
func (df *DataFrame[T]) InsertRow(idx T, vals ...float64) *DataFrame[T] {
	// Check that the last date in the dataframe is prior to the new date
	if len(df.Index) != 0 {
		if last, ok := any(df.Index[len(df.Index)-1]).(time.Time); ok {
			newDate := any(idx).(time.Time)
			if !last.Before(newDate) {
				log.Panic().Time("lastDate", last).Time("newDate", newDate).Msg("newDate must be after lastDate")
			}
		}
	}

	// Check that the number of columns equals the number of vals passed
	if len(vals) != len(df.ColNames) {
		log.Panic().Int("NumValsPassed", len(vals)).Int("NumColumns", len(df.ColNames)).Msg("number of vals passed must equal number of columns")
	}

	if len(df.Vals) != len(df.ColNames) {
		df.Vals = make([][]float64, len(df.ColNames))
	}

	df.Index = append(df.Index, idx)
	for colIdx := range df.ColNames {
		df.Vals[colIdx] = append(df.Vals[colIdx], vals[colIdx])
	}

	return df
}

// Lag shifts the dataframe by the specified number of rows, replacing shifted values by math.NaN() and returns a new dataframe
func (df *DataFrame[T]) Lag(n int) *DataFrame[T] {
	df = df.Copy()
	if n <= 0 {
		return df
	}

	for idx := range df.Vals {
		l := len(df.Vals[idx])
		prepend := make([]float64, n, n+l)
		for ii := range prepend {
			prepend[ii] = math.NaN()
		}
		df.Vals[idx] = append(prepend, df.Vals[idx]...)[:l]
	}
	return df
}

// Len returns the number of rows in the dataframe
func (df *DataFrame[T]) Len() int {
	return len(df.Index)
}

// RowIndex returns the row number of the given date; returns -1 if the date is not in the index.
// NOTE: the index must be sorted in ascending order
func (df *DataFrame[T]) RowIndex(date time.Time) int {
	idx := sort.Search(len(df.Index), func(i int) bool {
		idxVal := any(df.Index[i]).(time.Time)
		return idxVal.After(date) || idxVal.Equal(date)
	})

	if idx < len(df.Index) && any(df.Index[idx]).(time.Time).Equal(date) {
		return idx
	}

	return -1
}

// Value returns the value stored in column colName on the given date. The second return value
// is false if either the row or the column does not exist
func (df *DataFrame[T]) Value(date time.Time, colName string) (float64, bool) {
	colIdx := df.ColIndex(colName)
	if colIdx == -1 {
		return math.NaN(), false
	}

	rowIdx := df.RowIndex(date)
	if rowIdx == -1 {
		return math.NaN(), false
	}

	return df.Vals[colIdx][rowIdx], true
}

// Start returns the first date of the dataframe
func (df *DataFrame[T]) Start() time.Time {
	if len(df.Index) == 0 {
		return time.Time{}
	}

	if firstDate, ok := any(df.Index[0]).(time.Time); ok {
		return firstDate
	}

	return time.Time{}
}

// Table renders the dataframe as an ASCII formatted table
func (df *DataFrame[T]) Table() string {
	if len(df.Index) == 0 {
		return "<NO DATA>" // nothing to do as there is no data available in the dataframe
	}

	// construct table header
	tableCols := append([]string{"Index"}, df.ColNames...)

	// initialize table
	s := &strings.Builder{}
	table := tablewriter.NewWriter(s)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(tableCols)
	footer := make([]string, len(tableCols))
	footer[0] = "Num Rows"
	if len(footer) > 1 {
		footer[1] = fmt.Sprintf("%d", df.Len())
	}
	table.SetFooter(footer)
	table.SetBorder(false)

	for idx, rowIdx := range df.Index {
		row := make([]string, 0, len(df.Vals)+1)

		switch v := any(rowIdx).(type) {
		case time.Time:
			row = append(row, v.Format("2006-01-02"))
		case string:
			row = append(row, v)
		default:
			row = append(row, fmt.Sprintf("%v", v))
		}

		for _, col := range df.Vals {
			row = append(row, fmt.Sprintf("%.4f", col[idx]))
		}

		table.Append(row)
	}

	table.Render()
	return s.String()
}

// Trim the dataframe to the specified date range (inclusive)
// NOTE: If T is not time.Time then the dataframe is returned unchanged
func (df *DataFrame[T]) Trim(begin, end time.Time) *DataFrame[T] {
	df2 := &DataFrame[T]{
		ColNames: df.ColNames,
		Index:    df.Index,
		Vals:     make([][]float64, len(df.Vals)),
	}
	copy(df2.Vals, df.Vals)

	empty := func() *DataFrame[T] {
		df2.Index = []T{}
		for colIdx := range df2.Vals {
			df2.Vals[colIdx] = []float64{}
		}
		return df2
	}

	// special case 0: requested range is invalid
	if end.Before(begin) {
		return empty()
	}

	// special case 1: data frame is empty
	if df.Len() == 0 {
		return df2
	}

	// ensure that index is a date index
	first, ok := any(df.Index[0]).(time.Time)
	if !ok {
		return df2
	}
	last := any(df.Index[len(df.Index)-1]).(time.Time)

	// special case 2: range is completely outside of the dataframe
	if end.Before(first) || begin.After(last) {
		return empty()
	}

	// Use binary search to find the index corresponding to the start and end times
	beginIdx := sort.Search(len(df.Index), func(i int) bool {
		idxVal := any(df.Index[i]).(time.Time)
		return idxVal.After(begin) || idxVal.Equal(begin)
	})

	endIdx := sort.Search(len(df.Index), func(i int) bool {
		idxVal := any(df.Index[i]).(time.Time)
		return idxVal.After(end)
	})

	df2.Index = df.Index[beginIdx:endIdx]
	for colIdx, col := range df.Vals {
		df2.Vals[colIdx] = col[beginIdx:endIdx]
	}

	return df2
}
