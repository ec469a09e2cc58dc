package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/ripsfix/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "ripsfix",
	Short: "RIPS record repair: diagnosis completion and field normalization",
	Long: "Completes missing principal diagnoses in RIPS JSON documents from a reference table " +
		"and normalizes document types, codes and defaults. Runs can be recorded in Postgres.",
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("RIPSFIX_DB_URL"), "Postgres connection string for the run registry (or set RIPSFIX_DB_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

// addInputFlags registers the flags shared by complete and plan.
func addInputFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&cfg.RecordsPath, "records", "", "Path to the RIPS JSON document (required)")
	f.StringVar(&cfg.ReferencePath, "reference", "", "Path to the reference table: .csv, .txt, .tsv, .xlsx or .parquet (required)")
	f.StringVar(&cfg.NullifyPath, "nullify", "", "Path to a table of related diagnosis codes to nullify")
	f.StringVar(&cfg.RulesPath, "rules", "", "Path to a YAML rules file overriding the default repair values")
	f.StringVar(&cfg.Delimiter, "delimiter", ",", "Field delimiter for delimited reference tables")
	f.StringVar(&cfg.Encoding, "encoding", "utf-8", "Reference table encoding: utf-8, latin-1 or cp1252")
	f.StringVar(&cfg.Sheet, "sheet", "", "Worksheet name for .xlsx reference tables (default first sheet)")
	f.BoolVar(&cfg.AllowEmptyIndex, "allow-empty-index", false, "Continue with an empty index when reference columns cannot be identified")
	f.IntVar(&cfg.Workers, "workers", 1, "Number of concurrent patient chunks")
	_ = cmd.MarkFlagRequired("records")
	_ = cmd.MarkFlagRequired("reference")
}

// loadRules applies the rules file, if any, and the remaining defaults.
func loadRules() error {
	if cfg.RulesPath != "" {
		if err := cfg.LoadFromFile(cfg.RulesPath); err != nil {
			return err
		}
	}
	cfg.ApplyDefaults()
	return nil
}
