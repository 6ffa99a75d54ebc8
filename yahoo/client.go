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
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://query2.finance.yahoo.com"

// metadata modules requested from the quoteSummary endpoint
const quoteSummaryModules = "price,quoteType,summaryProfile,summaryDetail"

// ErrNoMetadata is returned when the provider has no metadata for a ticker.
var ErrNoMetadata = errors.New("no metadata returned")

type Client struct {
	http *resty.Client
}

func NewClient() *Client {
	return NewClientWithBaseURL(defaultBaseURL)
}

// NewClientWithBaseURL builds a client against an alternate endpoint.
// Tests point this at a local httptest server.
func NewClientWithBaseURL(baseURL string) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "import-yahoo/1.0")
	return &Client{http: client}
}

// Info fetches current metadata for a ticker and flattens the module
// objects into a single field mapping, the shape the store archives.
// Number wrappers of the form {raw, fmt} are reduced to their raw value.
func (c *Client) Info(ctx context.Context, ticker string) (map[string]any, error) {
	var body quoteSummaryResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetQueryParam("modules", quoteSummaryModules).
		Get("/v10/finance/quoteSummary/" + url.PathEscape(ticker))
	if err != nil {
		return nil, fmt.Errorf("request quoteSummary for %s: %w", ticker, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%w for ticker: %s", ErrNoMetadata, ticker)
	}
	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("quoteSummary for %s: status %d", ticker, resp.StatusCode())
	}
	if body.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("quoteSummary for %s: %s", ticker, body.QuoteSummary.Error.Description)
	}

	info := make(map[string]any)
	for _, modules := range body.QuoteSummary.Result {
		for _, fields := range modules {
			for k, v := range fields {
				info[k] = unwrapRaw(v)
			}
		}
	}
	if len(info) == 0 {
		return nil, fmt.Errorf("%w for ticker: %s", ErrNoMetadata, ticker)
	}
	return info, nil
}

// History fetches daily bars with dividend and split events for the
// given period token (e.g. "1mo", "1y", "max"). Bars come back in the
// provider's native chronological order. An unknown ticker or an empty
// range yields a nil slice and no error.
func (c *Client) History(ctx context.Context, ticker string, period string) ([]*Bar, error) {
	var body chartResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		SetQueryParams(map[string]string{
			"range":    period,
			"interval": "1d",
			"events":   "div,split",
		}).
		Get("/v8/finance/chart/" + url.PathEscape(ticker))
	if err != nil {
		return nil, fmt.Errorf("request chart for %s: %w", ticker, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		log.Warn().Str("Ticker", ticker).Msg("no price history for ticker")
		return nil, nil
	}
	if resp.StatusCode() >= 400 {
		return nil, fmt.Errorf("chart for %s: status %d", ticker, resp.StatusCode())
	}
	if len(body.Chart.Result) == 0 {
		return nil, nil
	}

	result := body.Chart.Result[0]
	if len(result.Timestamp) == 0 {
		return nil, nil
	}

	// Timestamps are exchange-local; anchor them in the exchange zone so
	// the derived calendar date is stable across refreshes.
	loc := time.FixedZone(result.Meta.ExchangeTimezoneName, result.Meta.Gmtoffset)

	var quote struct {
		Open   []*float64
		High   []*float64
		Low    []*float64
		Close  []*float64
		Volume []*float64
	}
	if len(result.Indicators.Quote) > 0 {
		q := result.Indicators.Quote[0]
		quote.Open, quote.High, quote.Low, quote.Close, quote.Volume = q.Open, q.High, q.Low, q.Close, q.Volume
	}
	var adjClose []*float64
	if len(result.Indicators.Adjclose) > 0 {
		adjClose = result.Indicators.Adjclose[0].Adjclose
	}

	dividends := make(map[string]float64, len(result.Events.Dividends))
	for _, ev := range result.Events.Dividends {
		dividends[time.Unix(ev.Date, 0).In(loc).Format("2006-01-02")] = ev.Amount
	}
	splits := make(map[string]float64, len(result.Events.Splits))
	for _, ev := range result.Events.Splits {
		if ev.Denominator != 0 {
			splits[time.Unix(ev.Date, 0).In(loc).Format("2006-01-02")] = ev.Numerator / ev.Denominator
		}
	}

	bars := make([]*Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		bar := &Bar{
			Timestamp: time.Unix(ts, 0).In(loc),
			Open:      valueAt(quote.Open, i),
			High:      valueAt(quote.High, i),
			Low:       valueAt(quote.Low, i),
			Close:     valueAt(quote.Close, i),
			AdjClose:  valueAt(adjClose, i),
			Volume:    valueAt(quote.Volume, i),
		}
		bar.Dividends = dividends[bar.Date()]
		bar.StockSplits = splits[bar.Date()]
		bars = append(bars, bar)
	}

	log.Debug().Str("Ticker", ticker).Str("Period", period).Int("NumBars", len(bars)).Msg("fetched price history")
	return bars, nil
}

func valueAt(vals []*float64, i int) *float64 {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}

// unwrapRaw reduces Yahoo's {raw, fmt} number wrappers to the raw value.
func unwrapRaw(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if raw, ok := m["raw"]; ok {
		return raw
	}
	return v
}
