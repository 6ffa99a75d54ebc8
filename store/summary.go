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
	"errors"
	"fmt"
)

// Summary aggregates the stored price history for one ticker.
type Summary struct {
	Ticker      string
	Rows        int64
	FirstDate   string
	LastDate    string
	LatestClose sql.NullFloat64
}

const summarySQL = `SELECT
	p1.ticker,
	COUNT(*) AS row_count,
	MIN(date) AS first_date,
	MAX(date) AS last_date,
	(
		SELECT close
		FROM ticker_prices p2
		WHERE p2.ticker = p1.ticker
		ORDER BY date DESC
		LIMIT 1
	) AS latest_close
FROM ticker_prices p1
WHERE ticker = ?
GROUP BY ticker`

// Summarize reports row count, date range and the close of the most
// recent trading day on file for one ticker. A ticker with no stored
// rows yields (nil, nil); that is a valid outcome, not an error.
func (db *DB) Summarize(ctx context.Context, ticker string) (*Summary, error) {
	var s Summary
	err := db.conn.QueryRowContext(ctx, summarySQL, ticker).
		Scan(&s.Ticker, &s.Rows, &s.FirstDate, &s.LastDate, &s.LatestClose)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", ticker, err)
	}
	return &s, nil
}
