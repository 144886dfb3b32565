package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/scttfrdmn/mm2go/pkg/engine/minimap2"
	"github.com/scttfrdmn/mm2go/pkg/mm2"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	verbose bool
	logJSON bool
)

// newEngine returns the alignment engine; it fails when the binary was
// built without the minimap2 tag.
var newEngine = minimap2.New

var rootCmd = &cobra.Command{
	Use:   "mm2go",
	Short: "mm2go - parallel long-read alignment with minimap2",
	Long: `mm2go aligns long reads against a minimap2 index or reference FASTA.

Queries are read from FASTA/FASTQ files (optionally gzip, xz or zstd
compressed), aligned in parallel batches and written as SAM or BAM to a
local file, standard output or S3.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Log progress and per-batch details to stderr")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false,
		"Write logs as JSON")

	rootCmd.AddCommand(alignCmd)
	rootCmd.AddCommand(headerCmd)
	rootCmd.AddCommand(versionCmd)
}

// newLogger returns the logger selected by the global flags.
func newLogger() *mm2.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	if logJSON {
		return mm2.NewJSONLogger(level)
	}
	return mm2.NewTextLogger(level)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mm2go version %s\n", version)
		if _, err := newEngine(); err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "engine: %v\n", err)
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), "engine: minimap2 (linked)")
	},
}
