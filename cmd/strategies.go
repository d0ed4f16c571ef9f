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

package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/pelletier/go-toml/v2"
	"github.com/penny-vault/pvtrend/backtest"
	"github.com/penny-vault/pvtrend/strategies"
	"github.com/spf13/cobra"
)

var strategiesFormat string

func init() {
	rootCmd.AddCommand(strategiesCmd)
	strategiesCmd.Flags().StringVar(&strategiesFormat, "format", backtest.FormatTable, "Output format: table, json or toml")
}

var strategiesCmd = &cobra.Command{
	Use:   "strategies [shortcode]",
	Short: "List available strategies and their arguments",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategies.InitializeStrategyMap()

		list := strategies.StrategyList
		if len(args) == 1 {
			info, err := strategies.Get(args[0])
			if err != nil {
				return err
			}
			list = list[:0:0]
			list = append(list, info)
		}

		switch strings.ToLower(strategiesFormat) {
		case backtest.FormatJSON:
			out, err := json.MarshalIndent(list, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		case backtest.FormatTOML:
			out, err := toml.Marshal(map[string]interface{}{"strategies": list})
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		case backtest.FormatTable:
			for _, info := range list {
				fmt.Printf("%s (%s) v%s, benchmark %s\n%s\n\n", info.Name, info.Shortcode, info.Version, info.Benchmark, info.Description)

				keys := make([]string, 0, len(info.Arguments))
				for k := range info.Arguments {
					keys = append(keys, k)
				}
				sort.Strings(keys)

				table := tablewriter.NewWriter(os.Stdout)
				table.SetHeader([]string{"Argument", "Default", "Description"})
				table.SetBorder(false)
				for _, k := range keys {
					table.Append([]string{k, info.Arguments[k].Default, info.Arguments[k].Description})
				}
				table.Render()
				fmt.Println()
			}
		default:
			return fmt.Errorf("%w: %s", backtest.ErrUnknownFormat, strategiesFormat)
		}

		return nil
	},
}
