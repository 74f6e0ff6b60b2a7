package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/annotdb/annotdb/internal/genome"
)

// genomeFlags selects an annotation release: either a known species and
// Ensembl release, or explicit source files for a custom release.
type genomeFlags struct {
	species string
	release int

	reference         string
	annotationName    string
	annotationVersion string
	gtf               string
	transcriptFastas  []string
	proteinFastas     []string
}

func (f *genomeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.species, "species", "human",
		"Species name (latin or common), e.g. human, mouse")
	cmd.Flags().IntVar(&f.release, "release", 0,
		"Ensembl release number (0 = latest known)")
	cmd.Flags().StringVar(&f.reference, "reference", "",
		"Reference assembly name for a custom release")
	cmd.Flags().StringVar(&f.annotationName, "annotation-name", "",
		"Annotation source name for a custom release")
	cmd.Flags().StringVar(&f.annotationVersion, "annotation-version", "",
		"Annotation version for a custom release")
	cmd.Flags().StringVar(&f.gtf, "gtf", "",
		"GTF path or URL for a custom release")
	cmd.Flags().StringSliceVar(&f.transcriptFastas, "transcript-fasta", nil,
		"Transcript FASTA path or URL (repeatable)")
	cmd.Flags().StringSliceVar(&f.proteinFastas, "protein-fasta", nil,
		"Protein FASTA path or URL (repeatable)")
}

// genome builds the Genome the flags describe. A --gtf flag switches to
// custom-release mode and then requires the three naming flags, so two
// custom releases never collide in the cache.
func (f *genomeFlags) genome() (*genome.Genome, error) {
	opts := []genome.Option{genome.WithLogger(logger)}

	if f.gtf != "" {
		if f.reference == "" || f.annotationName == "" || f.annotationVersion == "" {
			return nil, fmt.Errorf(
				"--gtf requires --reference, --annotation-name and --annotation-version")
		}
		if len(f.transcriptFastas) > 0 {
			opts = append(opts, genome.WithTranscriptFasta(f.transcriptFastas...))
		}
		if len(f.proteinFastas) > 0 {
			opts = append(opts, genome.WithProteinFasta(f.proteinFastas...))
		}
		return genome.New(f.reference, f.annotationName, f.annotationVersion, f.gtf, opts...), nil
	}

	return genome.ForEnsemblRelease(f.species, f.release, opts...)
}

func newInstallCmd() *cobra.Command {
	var flags genomeFlags
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Download and index an annotation release",
		Long: `Download the release's GTF and FASTA files into the cache and build
the query index. Already-cached files and indexes are reused unless
--overwrite is set.`,
		Example: `  annotdb install --species human --release 93
  annotdb install --gtf ./custom.gtf --reference GRCh38 --annotation-name mylab --annotation-version 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := flags.genome()
			if err != nil {
				return err
			}
			if err := g.Install(overwrite); err != nil {
				return err
			}
			fmt.Printf("Installed %s into %s\n", g, g.Dir())
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&overwrite, "overwrite", false,
		"Re-download files and rebuild the index")
	return cmd
}

func newDownloadCmd() *cobra.Command {
	var flags genomeFlags
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download an annotation release's files without indexing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := flags.genome()
			if err != nil {
				return err
			}
			if err := g.Download(overwrite); err != nil {
				return err
			}
			fmt.Printf("Downloaded %s into %s\n", g, g.Dir())
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Re-download existing files")
	return cmd
}

func newIndexCmd() *cobra.Command {
	var flags genomeFlags
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the query index from already-downloaded files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := flags.genome()
			if err != nil {
				return err
			}
			if err := g.Index(overwrite); err != nil {
				return err
			}
			defer g.Close()
			fmt.Printf("Indexed %s\n", g)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Rebuild an existing index")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var flags genomeFlags
	var indexOnly bool

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a release's cached files",
		Long: `Delete the cache directory of one annotation release. With
--index-only just the built index is removed and the downloaded source
files stay cached.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := flags.genome()
			if err != nil {
				return err
			}
			if indexOnly {
				if err := g.DeleteIndexFiles(); err != nil {
					return err
				}
				fmt.Printf("Deleted index files of %s\n", g)
				return nil
			}
			if err := g.DeleteCacheDirectory(); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", g.Dir())
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&indexOnly, "index-only", false,
		"Only delete the built index, keep downloaded files")
	return cmd
}
