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
package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quoteSummaryBody = `{
	"quoteSummary": {
		"result": [{
			"price": {
				"shortName": "iShares COLCAP",
				"longName": "iShares COLCAP Fund",
				"quoteType": "ETF",
				"currency": "COP",
				"exchange": "BVC",
				"marketCap": {"raw": 1234567890, "fmt": "1.23B"}
			},
			"summaryProfile": {
				"sector": "Financial Services",
				"industry": "Asset Management",
				"country": "Colombia",
				"website": "https://www.blackrock.com"
			}
		}],
		"error": null
	}
}`

// three trading days around 2024-03-01 at midnight US/Eastern (UTC-5),
// with a null close on the middle day and a dividend on the first
const chartBody = `{
	"chart": {
		"result": [{
			"meta": {
				"currency": "USD",
				"symbol": "GOOD",
				"exchangeTimezoneName": "America/New_York",
				"gmtoffset": -18000
			},
			"timestamp": [1709269200, 1709355600, 1709614800],
			"events": {
				"dividends": {
					"1709269200": {"amount": 0.35, "date": 1709269200}
				},
				"splits": {
					"1709614800": {"numerator": 2, "denominator": 1, "splitRatio": "2:1", "date": 1709614800}
				}
			},
			"indicators": {
				"quote": [{
					"open":   [10.0, 10.6, 10.9],
					"high":   [10.7, 11.1, 11.2],
					"low":    [9.9, 10.4, 10.8],
					"close":  [10.5, null, 11.0],
					"volume": [150000, 120000, null]
				}],
				"adjclose": [{
					"adjclose": [10.4, null, 11.0]
				}]
			}
		}],
		"error": null
	}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithBaseURL(server.URL)
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func TestInfoFlattensModules(t *testing.T) {
	client := newTestClient(t, jsonHandler(http.StatusOK, quoteSummaryBody))

	info, err := client.Info(context.Background(), "GOOD")
	require.NoError(t, err)

	assert.Equal(t, "iShares COLCAP", info["shortName"])
	assert.Equal(t, "Financial Services", info["sector"])
	assert.Equal(t, "Colombia", info["country"])
	// {raw, fmt} wrappers reduce to the raw number
	assert.Equal(t, float64(1234567890), info["marketCap"])
}

func TestInfoEmptyResultIsNoMetadata(t *testing.T) {
	client := newTestClient(t, jsonHandler(http.StatusOK,
		`{"quoteSummary": {"result": [], "error": null}}`))

	_, err := client.Info(context.Background(), "NOPE")
	require.ErrorIs(t, err, ErrNoMetadata)
}

func TestInfoNotFoundIsNoMetadata(t *testing.T) {
	client := newTestClient(t, jsonHandler(http.StatusNotFound,
		`{"quoteSummary": {"result": null, "error": {"code": "Not Found", "description": "Quote not found"}}}`))

	_, err := client.Info(context.Background(), "NOPE")
	require.ErrorIs(t, err, ErrNoMetadata)
}

func TestHistoryNormalizesDates(t *testing.T) {
	client := newTestClient(t, jsonHandler(http.StatusOK, chartBody))

	bars, err := client.History(context.Background(), "GOOD", "max")
	require.NoError(t, err)
	require.Len(t, bars, 3)

	// provider timestamps are midnight -05:00; the calendar date must
	// come out in the exchange zone with no time component
	assert.Equal(t, "2024-03-01", bars[0].Date())
	assert.Equal(t, "2024-03-02", bars[1].Date())
	assert.Equal(t, "2024-03-05", bars[2].Date())
}

func TestHistoryMapsNullsAndEvents(t *testing.T) {
	client := newTestClient(t, jsonHandler(http.StatusOK, chartBody))

	bars, err := client.History(context.Background(), "GOOD", "max")
	require.NoError(t, err)
	require.Len(t, bars, 3)

	require.NotNil(t, bars[0].Close)
	assert.Equal(t, 10.5, *bars[0].Close)
	assert.Nil(t, bars[1].Close)
	assert.Nil(t, bars[1].AdjClose)
	assert.Nil(t, bars[2].Volume)

	assert.Equal(t, 0.35, bars[0].Dividends)
	assert.Equal(t, float64(0), bars[1].Dividends)
	assert.Equal(t, float64(2), bars[2].StockSplits)
	assert.Equal(t, float64(0), bars[0].StockSplits)
}

func TestHistoryEmptyResultIsZeroBars(t *testing.T) {
	client := newTestClient(t, jsonHandler(http.StatusOK,
		`{"chart": {"result": [], "error": null}}`))

	bars, err := client.History(context.Background(), "EMPTY", "max")
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestHistoryUnknownTickerIsZeroBars(t *testing.T) {
	client := newTestClient(t, jsonHandler(http.StatusNotFound,
		`{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}}}`))

	bars, err := client.History(context.Background(), "NOPE", "max")
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestUnwrapRaw(t *testing.T) {
	assert.Equal(t, "plain", unwrapRaw("plain"))
	assert.Equal(t, float64(5), unwrapRaw(map[string]any{"raw": float64(5), "fmt": "5"}))
	nested := map[string]any{"something": "else"}
	assert.Equal(t, nested, unwrapRaw(nested))
}
