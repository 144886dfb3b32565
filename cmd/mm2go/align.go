package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/scttfrdmn/mm2go/pkg/mm2"
	"github.com/scttfrdmn/mm2go/pkg/samout"
	"github.com/spf13/cobra"
)

var (
	preset      string
	forwardOnly bool
	noCigar     bool
	threads     int
	batchSize   int
	output      string
	zstdLevel   int
	awsRegion   string
	showConfig  bool
)

var alignCmd = &cobra.Command{
	Use:   "align <reference> <queries.fq>...",
	Short: "Align reads against a reference",
	Long: `Align FASTA/FASTQ reads against a minimap2 index (.mmi) or a reference
FASTA, which is indexed on the fly.

Reads are aligned in batches; within a batch they are split across worker
threads, each with its own alignment buffer, and results are written in
input order. A read without hits is written as an unmapped record.

Output:
  The format follows the output name: *.bam writes BAM, *.zst writes
  zstd-compressed SAM, anything else SAM. "-" is standard output and
  s3://bucket/key streams the output to S3.

Threads:
  0 uses the number of CPUs, capped at 16. Explicit values are capped
  at 32.

Examples:
  # Nanopore reads to SAM on stdout
  mm2go align -x map-ont ref.mmi reads.fq.gz > aln.sam

  # Spliced RNA alignment, forward strand only, to BAM
  mm2go align -x splice --forward-only -o aln.bam ref.fa rna.fq

  # Upload straight to S3
  mm2go align -x map-pb -t 16 -o s3://bucket/run1/aln.bam ref.mmi hifi.fq

  # Show effective configuration
  mm2go align --show-config -x map-ont ref.mmi reads.fq`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := mm2.NewParallelConfig()
		config.Threads = threads
		config.BatchSize = batchSize
		config.Verbose = verbose
		if err := config.Validate(); err != nil {
			return err
		}

		opts := mm2.NewOptions(args[0]).
			WithPreset(mm2.Preset(preset)).
			WithForwardOnly(forwardOnly)
		opts.SAMOutput = !noCigar
		if threads > 0 {
			opts = opts.WithThreads(threads)
		}

		if showConfig {
			printConfig(cmd.ErrOrStderr(), opts, config)
			return nil
		}
		if len(args) < 2 {
			return fmt.Errorf("no query files given")
		}
		return runAlign(cmd.Context(), cmd.ErrOrStderr(), opts, config, args[1:], commandLine())
	},
}

func init() {
	alignCmd.Flags().StringVarP(&preset, "preset", "x", "",
		"Preset: map-ont, map-pb, map-iclr, splice (default: engine defaults)")
	alignCmd.Flags().BoolVar(&forwardOnly, "forward-only", false,
		"Only align to the forward strand")
	alignCmd.Flags().BoolVar(&noCigar, "no-cigar", false,
		"Skip base-level alignment; records carry no CIGAR")
	alignCmd.Flags().IntVarP(&threads, "threads", "t", 0,
		"Worker threads per batch (0 = auto-detect, max 16; explicit max 32)")
	alignCmd.Flags().IntVar(&batchSize, "batch-size", 1000,
		"Number of reads aligned per batch")
	alignCmd.Flags().StringVarP(&output, "output", "o", samout.Stdout,
		"Output: file (.sam, .bam, .sam.zst), - for stdout, or s3://bucket/key")
	alignCmd.Flags().IntVar(&zstdLevel, "compression-level", 2,
		"zstd level for .zst output: 1 fastest, 2 default, 3 better, 4 best")
	alignCmd.Flags().StringVar(&awsRegion, "region", "",
		"AWS region for s3:// output (default: from AWS config)")
	alignCmd.Flags().BoolVar(&showConfig, "show-config", false,
		"Show effective configuration and exit")
}

func commandLine() string {
	return strings.Join(os.Args, " ")
}

func runAlign(ctx context.Context, stderr io.Writer, opts mm2.Options, config mm2.ParallelConfig, files []string, cl string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger()

	eng, err := newEngine()
	if err != nil {
		return err
	}
	warnIfLarge(logger, opts.Reference)

	start := time.Now()
	ba, err := mm2.NewBatchAligner(eng, opts, config, mm2.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}
	defer ba.Close()
	indexTime := time.Since(start)

	header, err := ba.Aligner().Header()
	if err != nil {
		return err
	}
	w, err := samout.Create(ctx, output, header,
		samout.WithProgram(samout.Program{ID: "mm2go", Name: "mm2go", Version: version, CommandLine: cl}),
		samout.WithCompressionLevel(zstdLevel),
		samout.WithRegion(awsRegion),
	)
	if err != nil {
		return err
	}

	src := newFastxSource(files)
	defer src.close()

	err = ba.ProcessStream(src, func(recs []mm2.Record) error {
		q, ok := src.pop()
		if !ok {
			return fmt.Errorf("result without a pending query")
		}
		return w.WriteQuery(q, recs)
	})
	if err != nil {
		w.Abort(err)
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish output: %w", err)
	}

	if output != samout.Stdout || verbose {
		printSummary(stderr, w.Stats(), ba.Aligner().Index(), indexTime, time.Since(start))
	}
	return nil
}

// warnIfLarge logs when the reference file is larger than the available
// memory; loading it will likely swap.
func warnIfLarge(logger *mm2.Logger, path string) {
	fi, err := os.Stat(path)
	if err != nil {
		return
	}
	_, available := systemMemory()
	if available > 0 && uint64(fi.Size()) > available {
		logger.Warn("reference is larger than available memory",
			"reference", path,
			"size", humanize.IBytes(uint64(fi.Size())),
			"available", humanize.IBytes(available),
		)
	}
}

func printSummary(out io.Writer, s samout.Statistics, idx *mm2.Index, indexTime, total time.Duration) {
	fmt.Fprintf(out, "\n✓ Alignment complete!\n")
	fmt.Fprintf(out, "  Index: %d references in %d parts (%s)\n",
		len(idx.Refs()), idx.NumParts(), indexTime.Round(time.Millisecond))
	fmt.Fprintf(out, "  Reads: %s (%s bases)\n",
		humanize.Comma(s.Queries), humanize.Comma(s.TotalBases))
	fmt.Fprintf(out, "  Mapped: %s (%.2f%%)\n",
		humanize.Comma(s.MappedQueries), s.MappedFraction()*100)
	fmt.Fprintf(out, "  Records: %s (%s secondary)\n",
		humanize.Comma(s.Records), humanize.Comma(s.SecondaryReads))
	if secs := total.Seconds(); secs > 0 {
		fmt.Fprintf(out, "  Throughput: %s reads/s\n",
			humanize.CommafWithDigits(float64(s.Queries)/secs, 1))
	}
	fmt.Fprintf(out, "  Output: %s\n  Time: %s\n\n", output, total.Round(time.Millisecond))
}

func printConfig(out io.Writer, opts mm2.Options, config mm2.ParallelConfig) {
	total, available := systemMemory()
	fmt.Fprintf(out, "System Information:\n")
	if total > 0 {
		fmt.Fprintf(out, "  Total RAM: %s\n", humanize.IBytes(total))
		fmt.Fprintf(out, "  Available RAM: %s\n", humanize.IBytes(available))
	}
	cores := runtime.NumCPU()
	if perf := performanceCores(); perf > 0 && perf < cores {
		fmt.Fprintf(out, "  CPU cores: %d total (%d performance)\n", cores, perf)
	} else {
		fmt.Fprintf(out, "  CPU cores: %d\n", cores)
	}
	fmt.Fprintf(out, "\n")

	workers := fmt.Sprintf("%d", mm2.BatchWorkers(config.Threads))
	if config.Threads == 0 {
		workers = fmt.Sprintf("auto (%d)", mm2.BatchWorkers(0))
	}
	p := string(opts.Preset)
	if p == "" {
		p = "engine defaults"
	}
	fmt.Fprintf(out, "Configuration:\n")
	fmt.Fprintf(out, "  Reference: %s\n", opts.Reference)
	fmt.Fprintf(out, "  Preset: %s\n", p)
	fmt.Fprintf(out, "  Forward only: %t\n", opts.ForwardOnly)
	fmt.Fprintf(out, "  CIGAR: %t\n", opts.SAMOutput)
	fmt.Fprintf(out, "  Workers: %s\n", workers)
	fmt.Fprintf(out, "  Batch size: %s reads\n", humanize.Comma(int64(config.BatchSize)))

	format, compressed := samout.FormatForPath(output)
	if compressed {
		fmt.Fprintf(out, "  Output: %s (%s, zstd level %d)\n", output, format, zstdLevel)
	} else {
		fmt.Fprintf(out, "  Output: %s (%s)\n", output, format)
	}
}
