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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quotedb/import-yahoo/store"
)

var checkCmd = &cobra.Command{
	Use:   "check TICKER",
	Short: "Summarize stored price history for one ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := args[0]

		db, err := store.OpenExisting(viper.GetString("db.path"))
		if err != nil {
			return err
		}
		defer db.Close()

		summary, err := db.Summarize(cmd.Context(), ticker)
		if err != nil {
			return err
		}
		if summary == nil {
			fmt.Printf("No price rows found for %s\n", ticker)
			return nil
		}

		fmt.Printf("Ticker:       %s\n", summary.Ticker)
		fmt.Printf("Rows:         %d\n", summary.Rows)
		fmt.Printf("First date:   %s\n", summary.FirstDate)
		fmt.Printf("Last date:    %s\n", summary.LastDate)
		if summary.LatestClose.Valid {
			fmt.Printf("Latest close: %g\n", summary.LatestClose.Float64)
		} else {
			fmt.Printf("Latest close: n/a\n")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
