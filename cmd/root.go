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
	"context"
	"fmt"
	"os"

	"github.com/penny-vault/pvtrend/common"
	"github.com/penny-vault/pvtrend/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var shutdownTracing func(context.Context) error

// bindFlag binds a persistent flag and an environment variable to a viper key
func bindFlag(key, env, flag string) {
	if err := viper.BindEnv(key, env); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind environment variable")
	}
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind flag")
	}
}

func init() {
	// Logging configuration
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	bindFlag("log.level", "PVTREND_LOG_LEVEL", "log-level")

	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	bindFlag("log.report_caller", "PVTREND_LOG_REPORT_CALLER", "log-report-caller")

	rootCmd.PersistentFlags().String("log-output", "stderr", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	bindFlag("log.output", "PVTREND_LOG_OUTPUT", "log-output")

	rootCmd.PersistentFlags().Bool("log-pretty", true, "Format logs for humans instead of as JSON")
	bindFlag("log.pretty", "PVTREND_LOG_PRETTY", "log-pretty")

	// Database
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string of the price database")
	bindFlag("database.url", "DATABASE_URL", "database-url")

	// Cache
	rootCmd.PersistentFlags().Bool("cache-redis", false, "Share cached backtest results through redis")
	bindFlag("cache.redis", "PVTREND_CACHE_REDIS", "cache-redis")

	rootCmd.PersistentFlags().String("cache-redis-url", "redis://localhost:6379/0", "Redis connection URL")
	bindFlag("cache.redis_url", "REDIS_URL", "cache-redis-url")

	rootCmd.PersistentFlags().Int("cache-local-size", 32, "Number of backtest results kept in memory")
	bindFlag("cache.local_size", "PVTREND_CACHE_LOCAL_SIZE", "cache-local-size")

	rootCmd.PersistentFlags().Int("cache-ttl", 86400, "Seconds a cached result is kept in redis")
	bindFlag("cache.ttl", "PVTREND_CACHE_TTL", "cache-ttl")

	// Tracing
	rootCmd.PersistentFlags().String("otlp-endpoint", "", "OTLP collector endpoint, tracing is disabled when blank")
	bindFlag("otlp.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT", "otlp-endpoint")

	rootCmd.PersistentFlags().Bool("otlp-http", false, "Export traces over HTTP instead of gRPC")
	bindFlag("otlp.http", "PVTREND_OTLP_HTTP", "otlp-http")
}

var rootCmd = &cobra.Command{
	Use:     common.ProgramName,
	Version: common.CurrentVersion.String(),
	Short:   "Backtest a monthly trend following portfolio against the Ibovespa",
	Long: `pvtrend computes, month by month, the performance of an equal weight portfolio of the
index constituents with the highest trailing return and compares it to the benchmark.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		common.SetupLogging()

		if err := common.SetupCache(); err != nil {
			return err
		}

		var err error
		shutdownTracing, err = opentelemetry.Setup()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if shutdownTracing == nil {
			return
		}
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("could not flush traces")
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
