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

package strategies

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/penny-vault/pvtrend/strategies/strategy"
	"github.com/penny-vault/pvtrend/strategies/trend"
	"github.com/rs/zerolog/log"
)

var (
	ErrStrategyNotFound = errors.New("strategy not found")
)

//go:embed **/*.md **/*.toml
var resources embed.FS

// StrategyList List of all strategies
var StrategyList = []*strategy.StrategyInfo{}

// StrategyMap Map of strategies
var StrategyMap = make(map[string]*strategy.StrategyInfo)

var initOnce sync.Once

// InitializeStrategyMap configure the strategy map
func InitializeStrategyMap() {
	initOnce.Do(func() {
		Register("trend", trend.New)
	})
}

func readResource(fn string) ([]byte, error) {
	file, err := resources.Open(fn)
	if err != nil {
		log.Error().Err(err).Str("File", fn).Msg("failed to open file")
		return nil, err
	}
	defer file.Close()

	doc, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Str("File", fn).Msg("failed to read file")
		return nil, err
	}

	return doc, nil
}

// Register loads the description and metadata embedded for strategyPkg and adds the
// strategy to StrategyList and StrategyMap
func Register(strategyPkg string, factory strategy.StrategyFactory) {
	doc, err := readResource(fmt.Sprintf("%s/description.md", strategyPkg))
	if err != nil {
		return
	}
	longDescription := string(doc)

	fn := fmt.Sprintf("%s/strategy.toml", strategyPkg)
	doc, err = readResource(fn)
	if err != nil {
		return
	}

	var strat strategy.StrategyInfo
	if err := toml.Unmarshal(doc, &strat); err != nil {
		log.Error().Err(err).Str("File", fn).Msg("failed to parse toml file")
		return
	}

	strat.LongDescription = longDescription
	strat.Factory = factory

	StrategyList = append(StrategyList, &strat)
	sort.SliceStable(StrategyList, func(i, j int) bool { return StrategyList[i].Shortcode < StrategyList[j].Shortcode })
	StrategyMap[strat.Shortcode] = &strat
}

// Get returns the registered strategy with the given shortcode
func Get(shortcode string) (*strategy.StrategyInfo, error) {
	InitializeStrategyMap()

	info, ok := StrategyMap[shortcode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotFound, shortcode)
	}
	return info, nil
}
