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
	"strconv"
	"strings"
	"time"
)

var ErrInvalidLabel = errors.New("invalid month label")

var monthNames = [12]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// MonthName returns the abbreviated Portuguese name of the month used in report labels
func MonthName(month time.Month) string {
	return monthNames[month-1]
}

// MonthLabel names the month a return was earned in
type MonthLabel struct {
	Year  int
	Month time.Month
}

// LabelFor returns the label of the month following asOf; a portfolio formed at the end of
// December is reported as January of the next year
func LabelFor(asOf time.Time) MonthLabel {
	if asOf.Month() == time.December {
		return MonthLabel{Year: asOf.Year() + 1, Month: time.January}
	}
	return MonthLabel{Year: asOf.Year(), Month: asOf.Month() + 1}
}

// ParseLabel parses labels in the form produced by String, e.g. fev/2016
func ParseLabel(val string) (MonthLabel, error) {
	parts := strings.Split(strings.TrimSpace(val), "/")
	if len(parts) != 2 {
		return MonthLabel{}, fmt.Errorf("%w: %q", ErrInvalidLabel, val)
	}

	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return MonthLabel{}, fmt.Errorf("%w: %q", ErrInvalidLabel, val)
	}

	name := strings.ToLower(parts[0])
	for idx, month := range monthNames {
		if month == name {
			return MonthLabel{Year: year, Month: time.Month(idx + 1)}, nil
		}
	}

	return MonthLabel{}, fmt.Errorf("%w: %q", ErrInvalidLabel, val)
}

func (label MonthLabel) String() string {
	return fmt.Sprintf("%s/%d", MonthName(label.Month), label.Year)
}

// Before reports whether label is earlier than other
func (label MonthLabel) Before(other MonthLabel) bool {
	if label.Year != other.Year {
		return label.Year < other.Year
	}
	return label.Month < other.Month
}

func (label MonthLabel) MarshalText() ([]byte, error) {
	return []byte(label.String()), nil
}

func (label *MonthLabel) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*label = parsed
	return nil
}
