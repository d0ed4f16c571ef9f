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

// DefaultSuffix is appended to exchange tickers to form the identifier expected by
// the pricing provider (e.g. PETR4 -> PETR4.SA)
const DefaultSuffix = ".SA"

// DefaultBenchmark is the identifier of the Ibovespa index
const DefaultBenchmark = "^BVSP"

type Metric string

const (
	MetricClose         Metric = "Close"
	MetricAdjustedClose Metric = "AdjustedClose"
)

// column returns the eod table column holding the metric
func (metric Metric) column() (string, error) {
	switch metric {
	case MetricClose:
		return "close", nil
	case MetricAdjustedClose:
		return "adj_close", nil
	default:
		return "", ErrUnsupportedMetric
	}
}
