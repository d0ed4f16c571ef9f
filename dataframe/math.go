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
	"math"

	"gonum.org/v1/gonum/floats"
)

// AddScalar adds the scalar value to all columns in dataframe df and returns a new dataframe
func (df *DataFrame[T]) AddScalar(scalar float64) *DataFrame[T] {
	df = df.Copy()

	for colIdx := range df.ColNames {
		for rowIdx := range df.Vals[colIdx] {
			df.Vals[colIdx][rowIdx] += scalar
		}
	}
	return df
}

// Div divides all columns in `df` by the corresponding column in `other` and returns a new dataframe.
// Panics if rows are not equal.
func (df *DataFrame[T]) Div(other *DataFrame[T]) *DataFrame[T] {
	df = df.Copy()

	otherMap := make(map[string]int, len(other.ColNames))
	for idx, val := range other.ColNames {
		otherMap[val] = idx
	}

	for idx, colName := range df.ColNames {
		if otherIdx, ok := otherMap[colName]; ok {
			floats.Div(df.Vals[idx], other.Vals[otherIdx])
		}
	}
	return df
}

// FillNA replaces every NaN in the dataframe with val and returns a new dataframe
func (df *DataFrame[T]) FillNA(val float64) *DataFrame[T] {
	df = df.Copy()

	for colIdx := range df.Vals {
		for rowIdx, v := range df.Vals[colIdx] {
			if math.IsNaN(v) {
				df.Vals[colIdx][rowIdx] = val
			}
		}
	}
	return df
}

// PctChange computes the percent change between each row and the row n periods before it,
// e.g. df[t] / df[t-n] - 1. The first n rows of the result are NaN. Division by zero is
// not trapped: x/0 yields ±Inf and 0/0 yields NaN
func (df *DataFrame[T]) PctChange(n int) *DataFrame[T] {
	return df.Div(df.Lag(n)).AddScalar(-1)
}

// Replace substitutes every occurrence of any of `vals` with `repl` and returns a new dataframe.
// Infinite values may be passed in vals; NaN never matches and must be handled with FillNA
func (df *DataFrame[T]) Replace(repl float64, vals ...float64) *DataFrame[T] {
	df = df.Copy()

	for colIdx := range df.Vals {
		for rowIdx, v := range df.Vals[colIdx] {
			for _, target := range vals {
				if v == target {
					df.Vals[colIdx][rowIdx] = repl
					break
				}
			}
		}
	}
	return df
}
