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
	"errors"
)

// DataFrame stores a table of values organized by an index (typically time.Time).
// Vals is column major - e.g.,
//
//	Index       PETR4.SA  VALE3.SA
//	2016-01-31  1         4
//	2016-02-29  2         5
//	2016-03-31  3         6
//
// Vals[0] = [1 2 3] and Vals[1] = [4 5 6]. Missing values are stored as math.NaN()
type DataFrame[T any] struct {
	Index    []T
	ColNames []string
	Vals     [][]float64
}

// Frequency defines a time period - typically used to resample a dataframe
type Frequency string

const (
	MonthEnd Frequency = "MonthEnd"
	Monthly  Frequency = "MonthEnd"
	YearEnd  Frequency = "YearEnd"
	Annually Frequency = "YearEnd"
)

var (
	ErrDateIndexNotAligned = errors.New("date index does not align")
	ErrColumnNotFound      = errors.New("column not found")
)
