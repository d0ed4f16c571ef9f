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

package strategy

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/penny-vault/pvtrend/data"
	"github.com/penny-vault/pvtrend/dataframe"
	"github.com/penny-vault/pvtrend/portfolio"
)

var (
	ErrInvalidArgument = errors.New("invalid strategy argument")
)

// Argument an argument to a strategy
type Argument struct {
	Name        string   `json:"name" toml:"name"`
	Description string   `json:"description" toml:"description"`
	Typecode    string   `json:"typecode" toml:"typecode"`
	Default     string   `json:"default" toml:"default"`
	Advanced    bool     `json:"advanced" toml:"advanced"`
	Options     []string `json:"options" toml:"options"`
}

// StrategyInfo information about a strategy
type StrategyInfo struct {
	Name            string              `json:"name" toml:"name"`
	Shortcode       string              `json:"shortcode" toml:"shortcode"`
	Description     string              `json:"description" toml:"description"`
	LongDescription string              `json:"longDescription" toml:"-"`
	Source          string              `json:"source" toml:"source"`
	Version         string              `json:"version" toml:"version"`
	Benchmark       string              `json:"benchmark" toml:"benchmark"`
	Arguments       map[string]Argument `json:"arguments" toml:"arguments"`
	Factory         StrategyFactory     `json:"-" toml:"-"`
}

// DefaultArguments returns the default value of every argument as raw JSON suitable for
// passing to the strategy factory
func (info *StrategyInfo) DefaultArguments() map[string]json.RawMessage {
	args := make(map[string]json.RawMessage, len(info.Arguments))
	for k, v := range info.Arguments {
		if v.Typecode == "string" {
			encoded, err := json.Marshal(v.Default)
			if err != nil {
				continue
			}
			args[k] = encoded
		} else {
			args[k] = json.RawMessage(v.Default)
		}
	}
	return args
}

// StrategyFactory constructs a strategy from its JSON encoded arguments
type StrategyFactory func(map[string]json.RawMessage) (Strategy, error)

// Strategy selects the portfolio to hold over the month following a rebalance date
type Strategy interface {
	// Lookback is the number of months of history used to score instruments
	Lookback() int

	// Select returns the portfolio formed at asOf from the instruments eligible at that date,
	// scored with the trailing returns in trailing. Holdings are a subset of the eligible set
	Select(ctx context.Context, universe data.Universe, trailing *dataframe.DataFrame[time.Time], asOf time.Time) (*portfolio.Portfolio, error)
}
