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
	"strings"
	"time"

	"github.com/penny-vault/pvtrend/common"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"01-02-06",
	"02/01/2006",
}

// ParseDate parses the date formats found in price exports and composition spreadsheets.
// Dates are placed at midnight in the exchange timezone
func ParseDate(val string) (time.Time, error) {
	val = strings.TrimSpace(val)
	tz := common.GetTimezone()
	for _, layout := range dateLayouts {
		if dt, err := time.ParseInLocation(layout, val, tz); err == nil {
			return time.Date(dt.Year(), dt.Month(), dt.Day(), 0, 0, 0, 0, tz), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, val)
}
