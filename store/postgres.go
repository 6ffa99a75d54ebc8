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
package store

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog/log"

	"github.com/quotedb/import-yahoo/yahoo"
)

const pgCreateTickerPrices = `CREATE TABLE IF NOT EXISTS ticker_prices (
	ticker TEXT NOT NULL,
	date TEXT NOT NULL,
	open DOUBLE PRECISION,
	high DOUBLE PRECISION,
	low DOUBLE PRECISION,
	close DOUBLE PRECISION,
	adj_close DOUBLE PRECISION,
	volume DOUBLE PRECISION,
	dividends DOUBLE PRECISION,
	stock_splits DOUBLE PRECISION,
	PRIMARY KEY (ticker, date)
)`

const pgUpsertPriceBar = `INSERT INTO ticker_prices (
	"ticker",
	"date",
	"open",
	"high",
	"low",
	"close",
	"adj_close",
	"volume",
	"dividends",
	"stock_splits"
) VALUES (
	$1,
	$2,
	$3,
	$4,
	$5,
	$6,
	$7,
	$8,
	$9,
	$10
) ON CONFLICT (ticker, date)
DO UPDATE SET
	open = EXCLUDED.open,
	high = EXCLUDED.high,
	low = EXCLUDED.low,
	close = EXCLUDED.close,
	adj_close = EXCLUDED.adj_close,
	volume = EXCLUDED.volume,
	dividends = EXCLUDED.dividends,
	stock_splits = EXCLUDED.stock_splits`

// MirrorToPostgres upserts the fetched bars into a PostgreSQL mirror.
// Row-level failures are logged and skipped; the SQLite store is the
// source of truth and the mirror is best effort.
func MirrorToPostgres(ctx context.Context, databaseURL string, ticker string, bars []*yahoo.Bar) error {
	log.Info().Str("Ticker", ticker).Msg("mirroring to database")
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		log.Error().Err(err).Msg("could not connect to mirror database")
		return err
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, pgCreateTickerPrices); err != nil {
		log.Error().Err(err).Msg("could not create mirror table")
		return err
	}

	for _, bar := range bars {
		if _, err := conn.Exec(ctx, pgUpsertPriceBar,
			ticker, bar.Date(),
			bar.Open, bar.High, bar.Low, bar.Close,
			bar.AdjClose, bar.Volume,
			bar.Dividends, bar.StockSplits,
		); err != nil {
			log.Error().Err(err).Str("Ticker", ticker).Str("Date", bar.Date()).Msg("error mirroring price bar")
		}
	}

	return nil
}
