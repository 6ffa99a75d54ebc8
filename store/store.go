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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/quotedb/import-yahoo/yahoo"
)

// ErrNotExist is returned by OpenExisting when the database file is absent.
var ErrNotExist = errors.New("database file does not exist")

const createTickerInfo = `CREATE TABLE IF NOT EXISTS ticker_info (
	ticker TEXT PRIMARY KEY,
	short_name TEXT,
	long_name TEXT,
	quote_type TEXT,
	currency TEXT,
	exchange TEXT,
	market_cap REAL,
	sector TEXT,
	industry TEXT,
	country TEXT,
	website TEXT,
	raw_info_json TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`

const createTickerPrices = `CREATE TABLE IF NOT EXISTS ticker_prices (
	ticker TEXT NOT NULL,
	date TEXT NOT NULL,
	open REAL,
	high REAL,
	low REAL,
	close REAL,
	adj_close REAL,
	volume REAL,
	dividends REAL,
	stock_splits REAL,
	PRIMARY KEY (ticker, date),
	FOREIGN KEY (ticker) REFERENCES ticker_info (ticker)
)`

const upsertTickerInfoSQL = `INSERT INTO ticker_info (
	ticker, short_name, long_name, quote_type, currency, exchange, market_cap,
	sector, industry, country, website, raw_info_json, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(ticker) DO UPDATE SET
	short_name = excluded.short_name,
	long_name = excluded.long_name,
	quote_type = excluded.quote_type,
	currency = excluded.currency,
	exchange = excluded.exchange,
	market_cap = excluded.market_cap,
	sector = excluded.sector,
	industry = excluded.industry,
	country = excluded.country,
	website = excluded.website,
	raw_info_json = excluded.raw_info_json,
	updated_at = CURRENT_TIMESTAMP`

const upsertPriceBarSQL = `INSERT INTO ticker_prices (
	ticker, date, open, high, low, close, adj_close, volume, dividends, stock_splits
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ticker, date) DO UPDATE SET
	open = excluded.open,
	high = excluded.high,
	low = excluded.low,
	close = excluded.close,
	adj_close = excluded.adj_close,
	volume = excluded.volume,
	dividends = excluded.dividends,
	stock_splits = excluded.stock_splits`

// DB wraps a single SQLite connection to the ticker database.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates any missing parent directories and opens (or creates)
// the database file at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return &DB{conn: conn, path: path}, nil
}

// OpenExisting opens the database file at path, failing with ErrNotExist
// when the file is absent. Read paths use this so a typo'd path does not
// silently create an empty database.
func OpenExisting(path string) (*DB, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
	}
	return Open(path)
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Migrate ensures both tables exist. Safe to call on every run.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range []string{createTickerInfo, createTickerPrices} {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

// UpsertTickerInfo merges one metadata mapping into ticker_info. Every
// non-key column is overwritten on conflict and updated_at is refreshed,
// so stale fields from a prior fetch never survive a refresh. The full
// mapping is archived as JSON alongside the typed columns.
func (db *DB) UpsertTickerInfo(ctx context.Context, ticker string, info map[string]any) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("serialize metadata for %s: %w", ticker, err)
	}
	if _, err := db.conn.ExecContext(ctx, upsertTickerInfoSQL,
		ticker,
		textField(info, "shortName"),
		textField(info, "longName"),
		textField(info, "quoteType"),
		textField(info, "currency"),
		textField(info, "exchange"),
		numericField(info, "marketCap"),
		textField(info, "sector"),
		textField(info, "industry"),
		textField(info, "country"),
		textField(info, "website"),
		string(raw),
	); err != nil {
		return fmt.Errorf("upsert ticker info for %s: %w", ticker, err)
	}
	log.Debug().Str("Ticker", ticker).Msg("upserted ticker info")
	return nil
}

// UpsertPriceBars bulk-merges bars into ticker_prices keyed by
// (ticker, date) inside one transaction. On a duplicate date the newly
// fetched values win; duplicate dates within one batch resolve to the
// last bar submitted. Returns the number of rows submitted, which may
// exceed the number actually changed on an overlapping refresh.
func (db *DB) UpsertPriceBars(ctx context.Context, ticker string, bars []*yahoo.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, upsertPriceBarSQL)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare price upsert: %w", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		if _, err := stmt.ExecContext(ctx,
			ticker, bar.Date(),
			bar.Open, bar.High, bar.Low, bar.Close,
			bar.AdjClose, bar.Volume,
			bar.Dividends, bar.StockSplits,
		); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("upsert price bar %s %s: %w", ticker, bar.Date(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit price bars: %w", err)
	}
	log.Debug().Str("Ticker", ticker).Int("NumRows", len(bars)).Msg("upserted price bars")
	return len(bars), nil
}

// textField returns the named metadata value as a nullable string.
// Missing keys and non-string values come back NULL.
func textField(info map[string]any, key string) sql.NullString {
	if s, ok := info[key].(string); ok {
		return sql.NullString{String: s, Valid: true}
	}
	return sql.NullString{}
}

// numericField returns the named metadata value as a nullable float.
func numericField(info map[string]any, key string) sql.NullFloat64 {
	switch v := info[key].(type) {
	case float64:
		return sql.NullFloat64{Float64: v, Valid: true}
	case int:
		return sql.NullFloat64{Float64: float64(v), Valid: true}
	case int64:
		return sql.NullFloat64{Float64: float64(v), Valid: true}
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return sql.NullFloat64{Float64: f, Valid: true}
		}
	}
	return sql.NullFloat64{}
}
