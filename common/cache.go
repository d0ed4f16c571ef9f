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

package common

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	ErrCacheMiss        = errors.New("key not found in cache")
	ErrCacheNotCreated  = errors.New("cache has not been setup")
	ErrUnexpectedObject = errors.New("unexpected object type in cache")
)

var rdb *redis.Client
var cache *lru.Cache

// SetupCache creates the local LRU cache and, when `cache.redis` is set, connects to redis.
// Backtest results are stored lz4 compressed keyed by their input fingerprint
func SetupCache() error {
	if viper.GetBool("cache.redis") {
		opt, err := redis.ParseURL(viper.GetString("cache.redis_url"))
		if err != nil {
			log.Error().Err(err).Msg("could not parse redis URL")
			return err
		}

		rdb = redis.NewClient(opt)
	}

	size := viper.GetInt("cache.local_size")
	if size <= 0 {
		size = 32
	}

	var err error
	cache, err = lru.New(size)
	if err != nil {
		log.Error().Err(err).Int("Size", size).Msg("could not create LRU cache")
		return err
	}

	return nil
}

func CacheSet(ctx context.Context, key string, data []byte) error {
	if cache == nil {
		return ErrCacheNotCreated
	}

	compressed, err := Compress(data)
	if err != nil {
		return err
	}
	cache.Add(key, compressed)

	if rdb != nil {
		expires := time.Duration(viper.GetInt("cache.ttl")) * time.Second
		return rdb.Set(ctx, key, compressed, expires).Err()
	}
	return nil
}

func CacheGet(ctx context.Context, key string) ([]byte, error) {
	if cache == nil {
		return nil, ErrCacheNotCreated
	}

	if val, ok := cache.Get(key); ok {
		compressed, ok := val.([]byte)
		if !ok {
			return nil, ErrUnexpectedObject
		}
		return Decompress(compressed)
	}

	if rdb != nil {
		compressed, err := rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		if err != nil {
			log.Warn().Err(err).Str("Key", key).Msg("could not read from redis")
			return nil, err
		}
		cache.Add(key, compressed)
		return Decompress(compressed)
	}

	return nil, ErrCacheMiss
}
