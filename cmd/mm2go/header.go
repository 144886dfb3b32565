package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/scttfrdmn/mm2go/pkg/mm2"
	"github.com/spf13/cobra"
)

var (
	headerPreset string
	headerTable  bool
)

var headerCmd = &cobra.Command{
	Use:   "header <reference>",
	Short: "Print the reference dictionary of an index",
	Long: `Load an index and print its reference dictionary as a SAM header.

Sequences from every index part are merged by name; when a name occurs in
more than one part the longest length is kept.

Examples:
  mm2go header ref.mmi
  mm2go header --table ref.fa`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		opts := mm2.NewOptions(args[0]).WithPreset(mm2.Preset(headerPreset))
		idx, err := mm2.LoadIndex(eng, opts, newLogger())
		if err != nil {
			return err
		}
		defer idx.Release()

		out := cmd.OutOrStdout()
		if !headerTable {
			header, err := idx.Header()
			if err != nil {
				return err
			}
			text, err := header.MarshalText()
			if err != nil {
				return fmt.Errorf("failed to format header: %w", err)
			}
			_, err = out.Write(text)
			return err
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "#\tname\tlength\t")
		var total int64
		for i, ref := range idx.Refs() {
			fmt.Fprintf(tw, "%d\t%s\t%s\t\n", i, ref.Name, humanize.Comma(int64(ref.Len)))
			total += int64(ref.Len)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d references in %d index parts, %s bp total\n",
			len(idx.Refs()), idx.NumParts(), humanize.Comma(total))
		return nil
	},
}

func init() {
	headerCmd.Flags().StringVarP(&headerPreset, "preset", "x", "",
		"Preset used when indexing a FASTA reference (map-ont, map-pb, map-iclr, splice)")
	headerCmd.Flags().BoolVar(&headerTable, "table", false,
		"Print a table with human-readable lengths instead of SAM")
}
