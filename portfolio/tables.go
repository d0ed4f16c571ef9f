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
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/penny-vault/pvtrend/dataframe"
)

// column names of the report tables
const (
	ColPortfolio = "retorno_carteira"
	ColBenchmark = "retorno_ibovespa"
)

func newReportFrame(size int) *dataframe.DataFrame[string] {
	return &dataframe.DataFrame[string]{
		Index:    make([]string, 0, size),
		ColNames: []string{ColPortfolio, ColBenchmark},
		Vals:     [][]float64{make([]float64, 0, size), make([]float64, 0, size)},
	}
}

// MonthlyTable returns the monthly results indexed by label (e.g. fev/2016)
func (perf *Performance) MonthlyTable() *dataframe.DataFrame[string] {
	df := newReportFrame(len(perf.Monthly))
	for _, res := range perf.Monthly {
		df.InsertRow(res.Label.String(), res.PortfolioReturn, res.BenchmarkReturn)
	}
	return df
}

// AnnualTable returns the compounded returns indexed by year
func (perf *Performance) AnnualTable() *dataframe.DataFrame[string] {
	df := newReportFrame(len(perf.Annual))
	for _, res := range perf.Annual {
		df.InsertRow(strconv.Itoa(res.Year), res.PortfolioReturn, res.BenchmarkReturn)
	}
	return df
}

// CumulativeTable returns the cumulative returns indexed by label
func (perf *Performance) CumulativeTable() *dataframe.DataFrame[string] {
	df := newReportFrame(len(perf.Cumulative))
	for _, res := range perf.Cumulative {
		df.InsertRow(res.Label.String(), res.PortfolioReturn, res.BenchmarkReturn)
	}
	return df
}

// YearEndTable returns the cumulative return at the last reported month of each year
func (perf *Performance) YearEndTable() *dataframe.DataFrame[string] {
	df := newReportFrame(len(perf.YearEnd))
	for _, res := range perf.YearEnd {
		df.InsertRow(strconv.Itoa(res.Label.Year), res.PortfolioReturn, res.BenchmarkReturn)
	}
	return df
}

// Grid lays out a value of each monthly result in a year x month table with columns jan
// through dez. Months without a result are NaN
func (perf *Performance) Grid(value func(MonthlyResult) float64) *dataframe.DataFrame[string] {
	df := &dataframe.DataFrame[string]{
		Index:    []string{},
		ColNames: monthNames[:],
		Vals:     make([][]float64, 12),
	}

	var row []float64
	year := 0
	flush := func() {
		if row != nil {
			df.InsertRow(strconv.Itoa(year), row...)
		}
	}

	for _, res := range perf.Monthly {
		if row == nil || res.Label.Year != year {
			flush()
			year = res.Label.Year
			row = make([]float64, 12)
			for idx := range row {
				row[idx] = math.NaN()
			}
		}
		row[res.Label.Month-1] = value(res)
	}
	flush()

	return df
}

// WinLossTable renders the win/loss tally by month and by year
func (perf *Performance) WinLossTable() string {
	s := &strings.Builder{}
	table := tablewriter.NewWriter(s)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"", "Ganhou", "Perdeu", "%"})
	table.SetBorder(false)

	appendTally := func(tally Tally) {
		table.Append([]string{
			tally.Key,
			strconv.Itoa(tally.Wins),
			strconv.Itoa(tally.Losses),
			fmt.Sprintf("%.1f", tally.WinRate()*100),
		})
	}

	for _, tally := range perf.WinLoss.ByMonth {
		appendTally(tally)
	}
	for _, tally := range perf.WinLoss.ByYear {
		appendTally(tally)
	}

	overall := perf.WinLoss.Overall
	table.SetFooter([]string{overall.Key, strconv.Itoa(overall.Wins), strconv.Itoa(overall.Losses), fmt.Sprintf("%.1f", overall.WinRate()*100)})
	table.Render()
	return s.String()
}
