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

package common_test

import (
	"context"
	"sort"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/penny-vault/pvtrend/common"
	"github.com/spf13/viper"
)

var _ = Describe("Cache", func() {
	var (
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		viper.Set("cache.redis", false)
		viper.Set("cache.local_size", 4)
		Expect(common.SetupCache()).To(Succeed())
	})

	It("round trips a value through compression", func() {
		payload := []byte(`{"retorno_carteira": 0.05, "retorno_ibovespa": 0.01}`)
		Expect(common.CacheSet(ctx, "abc", payload)).To(Succeed())

		val, err := common.CacheGet(ctx, "abc")
		Expect(err).To(BeNil())
		Expect(val).To(Equal(payload))
	})

	It("reports a miss for unknown keys", func() {
		_, err := common.CacheGet(ctx, "unknown")
		Expect(err).To(MatchError(common.ErrCacheMiss))
	})

	It("evicts the least recently used entry", func() {
		for _, key := range []string{"a", "b", "c", "d", "e"} {
			Expect(common.CacheSet(ctx, key, []byte(key))).To(Succeed())
		}
		_, err := common.CacheGet(ctx, "a")
		Expect(err).To(MatchError(common.ErrCacheMiss))

		val, err := common.CacheGet(ctx, "e")
		Expect(err).To(BeNil())
		Expect(string(val)).To(Equal("e"))
	})
})

var _ = Describe("Compression", func() {
	It("decompresses what it compresses", func() {
		in := []byte("jan/2016,fev/2016,mar/2016,abr/2016,mai/2016,jun/2016")
		out, err := common.Compress(in)
		Expect(err).To(BeNil())

		res, err := common.Decompress(out)
		Expect(err).To(BeNil())
		Expect(res).To(Equal(in))
	})
})

var _ = Describe("PairList", func() {
	It("sorts descending while keeping the order of ties", func() {
		pairs := common.PairList{
			{Key: "A", Value: 0.1},
			{Key: "B", Value: 0.3},
			{Key: "C", Value: 0.1},
			{Key: "D", Value: 0.3},
		}
		sort.Stable(sort.Reverse(pairs))
		Expect(pairs.Keys()).To(Equal([]string{"B", "D", "A", "C"}))
	})

	It("uppercases strings in place", func() {
		arr := []string{"petr4", "Vale3"}
		common.ArrToUpper(arr)
		Expect(arr).To(Equal([]string{"PETR4", "VALE3"}))
	})
})
