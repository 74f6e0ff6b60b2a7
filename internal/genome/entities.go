package genome

import (
	"fmt"

	"github.com/annotdb/annotdb/internal/locus"
)

// Gene is one annotated gene. It holds a Locus as a plain value, so
// interval arithmetic is reached through g.Locus and entities compare
// by their IDs, not their coordinates.
type Gene struct {
	ID      string
	Name    string
	Biotype string
	Locus   locus.Locus

	genome      *Genome
	transcripts []*Transcript
	exons       []*Exon
}

func (g *Gene) String() string {
	return fmt.Sprintf("Gene(id=%s, name=%s, biotype=%s, locus=%s:%d-%d)",
		g.ID, g.Name, g.Biotype, g.Locus.Contig, g.Locus.Start, g.Locus.End)
}

// DistanceToInterval returns the gap between the gene and a coordinate
// range, satisfying locus.Interval for nearest-feature searches.
func (g *Gene) DistanceToInterval(start, end int64) int64 {
	return g.Locus.DistanceToInterval(start, end)
}

// Transcripts returns the gene's transcripts. The result is computed once
// per Gene instance and cached on it.
func (g *Gene) Transcripts() ([]*Transcript, error) {
	if g.transcripts != nil {
		return g.transcripts, nil
	}
	transcripts, err := g.genome.TranscriptsOfGeneID(g.ID)
	if err != nil {
		return nil, err
	}
	g.transcripts = transcripts
	return transcripts, nil
}

// Exons returns the distinct exons across all of the gene's transcripts,
// cached on the instance after the first call.
func (g *Gene) Exons() ([]*Exon, error) {
	if g.exons != nil {
		return g.exons, nil
	}
	transcripts, err := g.Transcripts()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var exons []*Exon
	for _, t := range transcripts {
		transcriptExons, err := t.Exons()
		if err != nil {
			return nil, err
		}
		for _, e := range transcriptExons {
			if !seen[e.ID] {
				seen[e.ID] = true
				exons = append(exons, e)
			}
		}
	}
	g.exons = exons
	return exons, nil
}

// Transcript is one annotated transcript of a gene.
type Transcript struct {
	ID        string
	Name      string
	Biotype   string
	GeneID    string
	GeneName  string
	ProteinID string // empty for non-coding transcripts
	Locus     locus.Locus

	genome *Genome
	exons  []*Exon
}

func (t *Transcript) String() string {
	return fmt.Sprintf("Transcript(id=%s, name=%s, gene=%s, locus=%s:%d-%d)",
		t.ID, t.Name, t.GeneName, t.Locus.Contig, t.Locus.Start, t.Locus.End)
}

// DistanceToInterval returns the gap between the transcript and a
// coordinate range.
func (t *Transcript) DistanceToInterval(start, end int64) int64 {
	return t.Locus.DistanceToInterval(start, end)
}

// Gene returns the transcript's parent gene.
func (t *Transcript) Gene() (*Gene, error) {
	return t.genome.GeneByID(t.GeneID)
}

// Exons returns the transcript's exons in transcription order, cached on
// the instance after the first call.
func (t *Transcript) Exons() ([]*Exon, error) {
	if t.exons != nil {
		return t.exons, nil
	}
	exons, err := t.genome.ExonsOfTranscriptID(t.ID)
	if err != nil {
		return nil, err
	}
	t.exons = exons
	return exons, nil
}

// Sequence returns the transcript's cDNA sequence from the configured
// sequence files.
func (t *Transcript) Sequence() (string, error) {
	return t.genome.TranscriptSequence(t.ID)
}

// ProteinSequence returns the translated peptide sequence for coding
// transcripts, or an error when the transcript has no protein ID.
func (t *Transcript) ProteinSequence() (string, error) {
	if t.ProteinID == "" {
		return "", fmt.Errorf("transcript %s has no protein ID", t.ID)
	}
	return t.genome.ProteinSequence(t.ProteinID)
}

// Exon is one annotated exon. The same exon ID can appear in several
// transcripts; an Exon value describes the genomic interval, not one
// transcript's use of it.
type Exon struct {
	ID       string
	GeneID   string
	GeneName string
	Locus    locus.Locus
}

func (e *Exon) String() string {
	return fmt.Sprintf("Exon(id=%s, gene=%s, locus=%s:%d-%d)",
		e.ID, e.GeneName, e.Locus.Contig, e.Locus.Start, e.Locus.End)
}

// DistanceToInterval returns the gap between the exon and a coordinate
// range.
func (e *Exon) DistanceToInterval(start, end int64) int64 {
	return e.Locus.DistanceToInterval(start, end)
}
