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

import "time"

// Bar is one daily price record as returned by the chart endpoint.
// OHLC, adjusted close and volume are nil when Yahoo reports a null
// for that slot. Dividends and StockSplits are zero on days without
// a corporate action, matching how the provider fills action columns.
type Bar struct {
	Timestamp   time.Time
	Open        *float64
	High        *float64
	Low         *float64
	Close       *float64
	AdjClose    *float64
	Volume      *float64
	Dividends   float64
	StockSplits float64
}

// Date returns the bar's calendar date in the bar's own timezone,
// with no time-of-day or offset component.
func (b *Bar) Date() string {
	return b.Timestamp.Format("2006-01-02")
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// quoteSummaryResponse is the v10 quoteSummary envelope. Each result
// entry maps module names (price, summaryProfile, ...) to their fields.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []map[string]map[string]any `json:"result"`
		Error  *apiError                   `json:"error"`
	} `json:"quoteSummary"`
}

// chartResponse is the v8 chart envelope.
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Currency             string `json:"currency"`
		Symbol               string `json:"symbol"`
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
		Gmtoffset            int    `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp []int64 `json:"timestamp"`
	Events    struct {
		Dividends map[string]dividendEvent `json:"dividends"`
		Splits    map[string]splitEvent    `json:"splits"`
	} `json:"events"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
		Adjclose []struct {
			Adjclose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

type dividendEvent struct {
	Amount float64 `json:"amount"`
	Date   int64   `json:"date"`
}

type splitEvent struct {
	Numerator   float64 `json:"numerator"`
	Denominator float64 `json:"denominator"`
	SplitRatio  string  `json:"splitRatio"`
	Date        int64   `json:"date"`
}
