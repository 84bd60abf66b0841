// Package commands implements the CLI commands for homescrape.
package commands

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "homescrape",
	Short: "Extract normalized property records from Zillow and Redfin listings",
	Long: `Homescrape turns a Zillow or Redfin listing URL into a normalized
property record: address, price, beds and baths, size and market signals.

Each page is tried against a fixed cascade of strategies (structured data,
hydration payloads, inline scripts, then text patterns). Zillow URLs that
carry a listing id try the data API first.

Examples:
  # One listing, pretty JSON on stdout
  homescrape extract -u "https://www.zillow.com/homedetails/123-Main-St-Cambridge-MA-02139/12345_zpid/"

  # Several listings as CSV
  homescrape extract -u URL1 -u URL2 --format csv -o listings.csv

  # Render with headless Chrome
  homescrape extract -u URL --fetch-mode dynamic --stealth`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.homescrape.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "log as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("log-json"))

	setDefaults(viper.GetViper())
}

func initConfig() {
	// .env is optional and never overrides variables already set
	_ = godotenv.Load()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".homescrape")
		viper.SetConfigType("yaml")
	}

	// HOMESCRAPE_FETCH_MAX_ATTEMPTS maps to fetch.max_attempts
	viper.SetEnvPrefix("HOMESCRAPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
