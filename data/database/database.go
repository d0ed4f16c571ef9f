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

package database

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type PgxIface interface {
	Begin(context.Context) (pgx.Tx, error)
}

var (
	ErrNotConnected = errors.New("database pool has not been configured")
)

var pool PgxIface
var openTransactions map[string]string
var trxLocker sync.Mutex

func SetPool(myPool PgxIface) {
	trxLocker.Lock()
	defer trxLocker.Unlock()

	openTransactions = make(map[string]string)
	pool = myPool
}

// Connect opens a connection pool to the price database at `database.url`
func Connect(ctx context.Context) error {
	myPool, err := pgxpool.Connect(ctx, viper.GetString("database.url"))
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not connect to pool")
		return err
	}
	if err = myPool.Ping(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not ping database server")
		return err
	}
	SetPool(myPool)
	return nil
}

// Trx begins a read transaction. The caller is recorded so leaked transactions can be
// reported with LogOpenTransactions; call Done once the transaction is committed or rolled back
func Trx(ctx context.Context) (pgx.Tx, string, error) {
	if pool == nil {
		return nil, "", ErrNotConnected
	}

	trx, err := pool.Begin(ctx)
	if err != nil {
		return nil, "", err
	}

	_, file, lineno, ok := runtime.Caller(1)
	trxID := uuid.New().String()

	trxLocker.Lock()
	openTransactions[trxID] = fmt.Sprintf("[%v] %s:%d", ok, file, lineno)
	trxLocker.Unlock()

	return trx, trxID, nil
}

// Done removes the transaction from the open transaction log
func Done(trxID string) {
	trxLocker.Lock()
	defer trxLocker.Unlock()
	delete(openTransactions, trxID)
}

// LogOpenTransactions writes an INFO log for each open transaction
func LogOpenTransactions() {
	trxLocker.Lock()
	defer trxLocker.Unlock()
	for k, v := range openTransactions {
		log.Info().Str("TrxId", k).Str("Caller", v).Msg("open transaction")
	}
}

// OpenTransactions returns the number of transactions that have not been marked done
func OpenTransactions() int {
	trxLocker.Lock()
	defer trxLocker.Unlock()
	return len(openTransactions)
}
