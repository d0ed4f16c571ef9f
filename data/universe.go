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
	"sort"
	"strings"
	"time"

	"github.com/penny-vault/pvtrend/common"
)

// Universe defines a dynamic set of instruments that a strategy may consider for investment
// on a given rebalance date, e.g. the constituents of the Ibovespa index for that month
type Universe interface {
	Eligible(time.Time) ([]string, error)

	// Dates returns the months with a membership entry in chronological order
	Dates() []time.Time
}

type monthKey struct {
	year  int
	month time.Month
}

func keyFor(date time.Time) monthKey {
	return monthKey{year: date.Year(), month: date.Month()}
}

// MembershipTable stores the index constituents of each rebalance month. Dates are matched
// by calendar month so month-end timestamps coming from different sources line up
type MembershipTable struct {
	suffix      string
	dates       []time.Time
	members     map[monthKey][]string
	instruments []string
	seen        map[string]bool
}

// NewMembershipTable returns an empty table; every ticker added is normalized with suffix
func NewMembershipTable(suffix string) *MembershipTable {
	return &MembershipTable{
		suffix:      suffix,
		dates:       make([]time.Time, 0, 128),
		members:     make(map[monthKey][]string, 128),
		instruments: make([]string, 0, 256),
		seen:        make(map[string]bool, 256),
	}
}

// NormalizeTicker trims and upper-cases ticker and appends suffix when it is not already
// present. Blank entries (the padding of a spreadsheet column) normalize to ""
func NormalizeTicker(ticker, suffix string) string {
	arr := []string{strings.TrimSpace(ticker), suffix}
	common.ArrToUpper(arr)
	ticker, suffix = arr[0], arr[1]

	if ticker == "" || ticker == "NAN" {
		return ""
	}

	if suffix != "" && !strings.HasSuffix(ticker, suffix) {
		ticker += suffix
	}

	return ticker
}

// Add records the constituents for the month of date. Calling Add twice for the same month
// appends to the existing list; duplicates within a month are ignored
func (table *MembershipTable) Add(date time.Time, tickers ...string) {
	key := keyFor(date)
	current, ok := table.members[key]
	if !ok {
		table.dates = append(table.dates, date)
		sort.Slice(table.dates, func(i, j int) bool { return table.dates[i].Before(table.dates[j]) })
		current = make([]string, 0, len(tickers))
	}

	inMonth := make(map[string]bool, len(current)+len(tickers))
	for _, ticker := range current {
		inMonth[ticker] = true
	}

	for _, raw := range tickers {
		ticker := NormalizeTicker(raw, table.suffix)
		if ticker == "" || inMonth[ticker] {
			continue
		}

		inMonth[ticker] = true
		current = append(current, ticker)

		if !table.seen[ticker] {
			table.seen[ticker] = true
			table.instruments = append(table.instruments, ticker)
		}
	}

	table.members[key] = current
}

// Eligible returns the constituents for the month of date in the order they were listed.
// A date without an entry is an input alignment problem and returns ErrMissingMembership
func (table *MembershipTable) Eligible(date time.Time) ([]string, error) {
	members, ok := table.members[keyFor(date)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingMembership, date.Format("2006-01-02"))
	}

	res := make([]string, len(members))
	copy(res, members)
	return res, nil
}

// Dates returns the months covered by the table in chronological order
func (table *MembershipTable) Dates() []time.Time {
	res := make([]time.Time, len(table.dates))
	copy(res, table.dates)
	return res
}

// Instruments returns every instrument that was ever a constituent, de-duplicated in the
// order it was first seen
func (table *MembershipTable) Instruments() []string {
	res := make([]string, len(table.instruments))
	copy(res, table.instruments)
	return res
}

// Len returns the number of months in the table
func (table *MembershipTable) Len() int {
	return len(table.dates)
}
