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
	"github.com/rs/zerolog/log"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/quotedb/import-yahoo/yahoo"
)

// PriceRow is the flattened parquet form of one price bar. Null fields
// are zero-filled; parquet export is an archival convenience, the
// SQLite store remains the source of truth for nullability.
type PriceRow struct {
	Ticker      string  `parquet:"name=ticker, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Date        string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Open        float32 `parquet:"name=open, type=FLOAT"`
	High        float32 `parquet:"name=high, type=FLOAT"`
	Low         float32 `parquet:"name=low, type=FLOAT"`
	Close       float32 `parquet:"name=close, type=FLOAT"`
	AdjClose    float32 `parquet:"name=adjClose, type=FLOAT"`
	Volume      int64   `parquet:"name=volume, type=INT64, convertedtype=INT_64"`
	Dividends   float32 `parquet:"name=dividends, type=FLOAT"`
	StockSplits float32 `parquet:"name=stockSplits, type=FLOAT"`
}

// PriceRows converts fetched bars to parquet rows for one ticker.
func PriceRows(ticker string, bars []*yahoo.Bar) []*PriceRow {
	rows := make([]*PriceRow, 0, len(bars))
	for _, bar := range bars {
		rows = append(rows, &PriceRow{
			Ticker:      ticker,
			Date:        bar.Date(),
			Open:        flat32(bar.Open),
			High:        flat32(bar.High),
			Low:         flat32(bar.Low),
			Close:       flat32(bar.Close),
			AdjClose:    flat32(bar.AdjClose),
			Volume:      flatVolume(bar.Volume),
			Dividends:   float32(bar.Dividends),
			StockSplits: float32(bar.StockSplits),
		})
	}
	return rows
}

func SaveToParquet(rows []*PriceRow, fn string) error {
	var err error

	fh, err := local.NewLocalFileWriter(fn)
	if err != nil {
		log.Error().Str("OriginalError", err.Error()).Str("FileName", fn).Msg("cannot create local file")
		return err
	}
	defer fh.Close()

	pw, err := writer.NewParquetWriter(fh, new(PriceRow), 4)
	if err != nil {
		log.Error().
			Str("OriginalError", err.Error()).
			Msg("Parquet write failed")
		return err
	}

	pw.RowGroupSize = 128 * 1024 * 1024 // 128M
	pw.PageSize = 8 * 1024              // 8k
	pw.CompressionType = parquet.CompressionCodec_GZIP

	for _, r := range rows {
		if err = pw.Write(r); err != nil {
			log.Error().
				Str("OriginalError", err.Error()).
				Str("Date", r.Date).Str("Ticker", r.Ticker).
				Msg("Parquet write failed for record")
		}
	}

	if err = pw.WriteStop(); err != nil {
		log.Error().Str("OriginalError", err.Error()).Msg("Parquet write failed")
		return err
	}

	log.Info().Int("NumRecords", len(rows)).Msg("Parquet write finished")
	return nil
}

func flat32(v *float64) float32 {
	if v == nil {
		return 0
	}
	return float32(*v)
}

func flatVolume(v *float64) int64 {
	if v == nil {
		return 0
	}
	return int64(*v)
}
