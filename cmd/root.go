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
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "import-yahoo",
	Short: "Download ticker metadata and price history from Yahoo Finance",
	Long: `Download ticker metadata and end-of-day price history from Yahoo Finance
and save both to a local SQLite database`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return importTickers(cmd.Context(), []string{viper.GetString("ticker")})
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	cobra.OnInitialize(initLog)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is import-yahoo.toml)")
	rootCmd.PersistentFlags().Bool("log.json", false, "print logs as json to stderr")
	viper.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("log.json"))

	rootCmd.PersistentFlags().String("db", "stock_data.db", "path to the SQLite database file")
	viper.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.PersistentFlags().StringP("period", "p", "max", "history period to request (e.g. 1mo, 1y, max)")
	viper.BindPFlag("period", rootCmd.PersistentFlags().Lookup("period"))

	rootCmd.PersistentFlags().String("parquet-file", "", "also save fetched price bars to parquet")
	viper.BindPFlag("parquet_file", rootCmd.PersistentFlags().Lookup("parquet-file"))

	rootCmd.PersistentFlags().StringP("database-url", "d", "", "optional PostgreSQL DSN to mirror price bars into")
	viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))

	// Local flags
	rootCmd.Flags().StringP("ticker", "t", "ICOLCAP.CL", "ticker symbol to fetch")
	viper.BindPFlag("ticker", rootCmd.Flags().Lookup("ticker"))
}

func initLog() {
	if !viper.GetBool("log.json") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".import-yahoo" (without extension).
		viper.AddConfigPath("/etc/import-yahoo/") // path to look for the config file in
		viper.AddConfigPath(fmt.Sprintf("%s/.import-yahoo", home))
		viper.AddConfigPath(".")
		viper.SetConfigType("toml")
		viper.SetConfigName("import-yahoo")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Debug().Str("ConfigFile", viper.ConfigFileUsed()).Msg("Loaded config file")
	}
}
