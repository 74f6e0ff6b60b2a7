// Package main provides the annotdb command-line tool.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/annotdb/annotdb/internal/cache"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagVerbose  bool
	flagCacheDir string

	logger = zap.NewNop()
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "annotdb",
		Short: "Download, index and query genome annotation releases",
		Long: `annotdb caches genome annotation files (GTF plus sequence FASTAs),
indexes them into a local database, and answers gene, transcript and
exon queries against the indexed release.`,
		Example: `  # One-time setup for a release
  annotdb install --species human --release 93

  # Query genes overlapping a position
  annotdb genes-at-locus --species human --release 93 --contig 7 --position 140453136`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initConfig()
			if flagCacheDir != "" {
				os.Setenv(cache.EnvCacheDir, flagCacheDir)
			}
			if flagVerbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				logger = l
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"Enable debug logging")
	root.PersistentFlags().StringVar(&flagCacheDir, "cache-dir", "",
		"Cache directory (default: $"+cache.EnvCacheDir+" or ~/.annotdb)")

	root.AddCommand(newInstallCmd())
	root.AddCommand(newDownloadCmd())
	root.AddCommand(newIndexCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newGenesAtLocusCmd())
	root.AddCommand(newGeneCmd())
	root.AddCommand(newTranscriptCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("annotdb version %s (%s) built %s\n", version, commit, date)
		},
	}
}

func initConfig() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	viper.SetConfigFile(filepath.Join(home, ".annotdb.yaml"))
	viper.SetEnvPrefix("annotdb")
	viper.AutomaticEnv()
	// a missing config file is fine, everything has defaults
	_ = viper.ReadInConfig()

	if flagCacheDir == "" {
		flagCacheDir = viper.GetString("cache_dir")
	}
}
