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
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

var (
	ErrIncompleteMonth    = errors.New("holding is missing a price or return for the month")
	ErrUndefinedBenchmark = errors.New("benchmark return is undefined for the month")
	ErrEmptyPortfolio     = errors.New("portfolio has no holdings")
)

// skipCodes names the sentinel errors a skip can wrap so the cause survives serialization
var skipCodes = map[string]error{
	"emptyPortfolio":     ErrEmptyPortfolio,
	"incompleteMonth":    ErrIncompleteMonth,
	"undefinedBenchmark": ErrUndefinedBenchmark,
}

func skipCode(err error) string {
	for code, sentinel := range skipCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}

// SkipError reports a month that was excluded from the results. A skipped month never
// stops the backtest
type SkipError struct {
	AsOf       time.Time `json:"asOf" toml:"asOf"`
	Date       time.Time `json:"date" toml:"date"`
	Instrument string    `json:"instrument,omitempty" toml:"instrument,omitempty"`
	Code       string    `json:"code" toml:"code"`
	Reason     string    `json:"reason" toml:"reason"`
	Err        error     `json:"-" toml:"-"`
}

func newSkipError(asOf, date time.Time, instrument string, err error) *SkipError {
	return &SkipError{
		AsOf:       asOf,
		Date:       date,
		Instrument: instrument,
		Code:       skipCode(err),
		Reason:     err.Error(),
		Err:        err,
	}
}

func (e *SkipError) Error() string {
	if e.Instrument != "" {
		return fmt.Sprintf("skipping %s: %s: %s", e.Date.Format("2006-01-02"), e.Instrument, e.Reason)
	}
	return fmt.Sprintf("skipping %s: %s", e.Date.Format("2006-01-02"), e.Reason)
}

func (e *SkipError) Unwrap() error {
	return e.Err
}

// UnmarshalJSON restores Err from Code so errors.Is keeps working on decoded results
func (e *SkipError) UnmarshalJSON(buf []byte) error {
	type plain SkipError
	if err := json.Unmarshal(buf, (*plain)(e)); err != nil {
		return err
	}

	if sentinel, ok := skipCodes[e.Code]; ok {
		e.Err = sentinel
	} else {
		e.Err = errors.New(e.Reason)
	}
	return nil
}
