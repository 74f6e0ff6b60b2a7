package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/annotdb/annotdb/internal/genome"
)

func newGenesAtLocusCmd() *cobra.Command {
	var flags genomeFlags
	var (
		contig   string
		position int64
		end      int64
		strand   string
	)

	cmd := &cobra.Command{
		Use:   "genes-at-locus",
		Short: "List genes overlapping a position or interval",
		Example: `  annotdb genes-at-locus --species human --release 93 --contig 7 --position 140453136
  annotdb genes-at-locus --species human --release 93 --contig 7 --position 140400000 --end 140500000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := flags.genome()
			if err != nil {
				return err
			}
			defer g.Close()

			genes, err := g.GenesAtLocus(contig, position, end, strand)
			if err != nil {
				return err
			}
			if len(genes) == 0 {
				fmt.Println("No genes found")
				return nil
			}
			for _, gene := range genes {
				printGene(gene)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&contig, "contig", "", "Contig or chromosome name")
	cmd.Flags().Int64Var(&position, "position", 0, "1-based position")
	cmd.Flags().Int64Var(&end, "end", 0, "Interval end (0 = single position)")
	cmd.Flags().StringVar(&strand, "strand", "", `Strand "+" or "-" (default: both)`)
	cmd.MarkFlagRequired("contig")
	cmd.MarkFlagRequired("position")
	return cmd
}

func newGeneCmd() *cobra.Command {
	var flags genomeFlags
	var byName bool

	cmd := &cobra.Command{
		Use:   "gene <gene-id-or-name>",
		Short: "Show one gene with its transcripts",
		Example: `  annotdb gene ENSG00000157764 --species human --release 93
  annotdb gene --by-name BRAF --species human --release 93`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := flags.genome()
			if err != nil {
				return err
			}
			defer g.Close()

			var genes []*genome.Gene
			if byName {
				genes, err = g.GenesByName(args[0])
			} else {
				var gene *genome.Gene
				gene, err = g.GeneByID(args[0])
				genes = []*genome.Gene{gene}
			}
			if err != nil {
				return err
			}

			for _, gene := range genes {
				printGene(gene)
				transcripts, err := gene.Transcripts()
				if err != nil {
					return err
				}
				for _, t := range transcripts {
					fmt.Printf("  %s\t%s\t%s\t%d-%d\n",
						t.ID, t.Name, t.Biotype, t.Locus.Start, t.Locus.End)
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&byName, "by-name", false, "Look the gene up by name instead of ID")
	return cmd
}

func newTranscriptCmd() *cobra.Command {
	var flags genomeFlags
	var showSequence bool

	cmd := &cobra.Command{
		Use:   "transcript <transcript-id>",
		Short: "Show one transcript with its exons",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := flags.genome()
			if err != nil {
				return err
			}
			defer g.Close()

			t, err := g.TranscriptByID(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\t%s\tgene=%s (%s)\t%s:%d-%d(%s)\n",
				t.ID, t.Name, t.Biotype, t.GeneID, t.GeneName,
				t.Locus.Contig, t.Locus.Start, t.Locus.End, t.Locus.Strand)

			exons, err := t.Exons()
			if err != nil {
				return err
			}
			for i, e := range exons {
				fmt.Printf("  exon %d\t%s\t%d-%d\n", i+1, e.ID, e.Locus.Start, e.Locus.End)
			}

			if showSequence {
				seq, err := t.Sequence()
				if err != nil {
					return err
				}
				fmt.Println(seq)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&showSequence, "sequence", false, "Also print the cDNA sequence")
	return cmd
}

func newListCmd() *cobra.Command {
	var flags genomeFlags
	var (
		contig string
		strand string
	)

	cmd := &cobra.Command{
		Use:       "list {genes|transcripts|contigs}",
		Short:     "List gene IDs, transcript IDs or contigs of a release",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"genes", "transcripts", "contigs"},
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := flags.genome()
			if err != nil {
				return err
			}
			defer g.Close()

			var values []string
			switch args[0] {
			case "genes":
				values, err = g.GeneIDs(contig, strand)
			case "transcripts":
				values, err = g.TranscriptIDs(contig, strand)
			case "contigs":
				values, err = g.Contigs()
			default:
				return fmt.Errorf("unknown listing %q", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Println(strings.Join(values, "\n"))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&contig, "contig", "", "Restrict to one contig")
	cmd.Flags().StringVar(&strand, "strand", "", "Restrict to one strand")
	return cmd
}

func printGene(gene *genome.Gene) {
	fmt.Printf("%s\t%s\t%s\t%s:%d-%d(%s)\n",
		gene.ID, gene.Name, gene.Biotype,
		gene.Locus.Contig, gene.Locus.Start, gene.Locus.End, gene.Locus.Strand)
}
