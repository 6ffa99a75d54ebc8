/*
Copyright 2022

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/viper"

	"github.com/quotedb/import-yahoo/store"
	"github.com/quotedb/import-yahoo/yahoo"
)

// importTickers runs the fetch-and-merge pipeline for each ticker
// against one shared database connection: metadata first, then price
// history, then the optional parquet and PostgreSQL sinks. A metadata
// failure aborts the run before anything is written for that ticker.
func importTickers(ctx context.Context, tickers []string) error {
	dbPath := viper.GetString("db.path")
	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return err
	}

	client := yahoo.NewClient()
	period := viper.GetString("period")

	var bar *progressbar.ProgressBar
	if len(tickers) > 1 {
		bar = progressbar.Default(int64(len(tickers)))
	}

	parquetRows := []*store.PriceRow{}
	for _, ticker := range tickers {
		if bar != nil {
			bar.Add(1)
		}

		info, err := client.Info(ctx, ticker)
		if err != nil {
			return err
		}
		if err := db.UpsertTickerInfo(ctx, ticker, info); err != nil {
			return err
		}

		bars, err := client.History(ctx, ticker, period)
		if err != nil {
			return err
		}
		count, err := db.UpsertPriceBars(ctx, ticker, bars)
		if err != nil {
			return err
		}

		if viper.GetString("parquet_file") != "" {
			parquetRows = append(parquetRows, store.PriceRows(ticker, bars)...)
		}
		if dsn := viper.GetString("database.url"); dsn != "" {
			if err := store.MirrorToPostgres(ctx, dsn, ticker, bars); err != nil {
				log.Error().Err(err).Str("Ticker", ticker).Msg("postgres mirror failed")
			}
		}

		fmt.Printf("Saved ticker info and %d price rows for %s into %s\n", count, ticker, dbPath)
	}

	if fn := viper.GetString("parquet_file"); fn != "" {
		if err := store.SaveToParquet(parquetRows, fn); err != nil {
			log.Error().Err(err).Str("FileName", fn).Msg("parquet export failed")
		}
	}

	return nil
}
