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

package backtest

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/penny-vault/pvtrend/dataframe"
	"github.com/penny-vault/pvtrend/strategies/strategy"
	"github.com/zeebo/blake3"
)

// runNamespace is the uuid namespace of run IDs derived from fingerprints
var runNamespace = uuid.MustParse("6f1c2d8e-5a43-4b9e-9d3a-2f6c7e1b0a54")

func writeFrame(h hash.Hash, df *dataframe.DataFrame[time.Time]) {
	buf := make([]byte, 8)

	h.Write([]byte(strings.Join(df.ColNames, "\x00")))
	for _, dt := range df.Index {
		binary.LittleEndian.PutUint64(buf, uint64(dt.UTC().UnixNano()))
		h.Write(buf)
	}

	for _, col := range df.Vals {
		for _, val := range col {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(val))
			h.Write(buf)
		}
	}
}

// Fingerprint returns a hex encoded blake3 hash of everything that determines the outcome of
// a run: the price panel, the benchmark, the membership of each panel date, the strategy and
// its parameters, and opts. It is used as the cache key of backtest results
func Fingerprint(inputs Inputs, strat strategy.Strategy, opts Options) string {
	h := blake3.New()

	// writes to a hash.Hash never return an error
	if inputs.Prices != nil {
		writeFrame(h, inputs.Prices)

		if inputs.Membership != nil {
			for _, dt := range inputs.Prices.Index {
				members, err := inputs.Membership.Eligible(dt)
				if err != nil {
					h.Write([]byte("\x01missing"))
					continue
				}
				h.Write([]byte("\x01" + strings.Join(members, "\x00")))
			}
		}
	}

	h.Write([]byte{0x02})
	if inputs.Benchmark != nil {
		writeFrame(h, inputs.Benchmark)
	}

	fmt.Fprintf(h, "\x03%T:%+v", strat, strat)
	fmt.Fprintf(h, "\x04%s:%s:%t", opts.Begin.UTC().Format(time.RFC3339Nano), opts.End.UTC().Format(time.RFC3339Nano), opts.Returns.FillMissing)

	return hex.EncodeToString(h.Sum(nil))
}
