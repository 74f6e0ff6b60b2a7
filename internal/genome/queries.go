package genome

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/annotdb/annotdb/internal/locus"
	"github.com/annotdb/annotdb/internal/store"
)

// rowValues pairs a projected row with its column names.
func rowValues(columns []string, row []any) map[string]any {
	vals := make(map[string]any, len(columns))
	for i, col := range columns {
		vals[col] = row[i]
	}
	return vals
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return fmt.Sprint(v)
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	}
	return 0
}

// locusColumns are the projection every entity query includes.
var locusColumns = []string{"seqname", "start", "end", "strand"}

// entityColumns builds a projection of the locus columns plus whichever of
// the wanted attribute columns the feature table actually has. Old
// annotation releases lack some attributes; entities carry empty strings
// for those instead of failing.
func entityColumns(st *store.Store, feature string, wanted ...string) []string {
	cols := append([]string(nil), locusColumns...)
	for _, col := range wanted {
		if st.ColumnExists(feature, col) {
			cols = append(cols, col)
		}
	}
	return cols
}

func locusFromValues(vals map[string]any) (locus.Locus, error) {
	return locus.New(
		asString(vals["seqname"]),
		asInt64(vals["start"]),
		asInt64(vals["end"]),
		asString(vals["strand"]))
}

// Contigs returns the distinct contig names carrying at least one gene.
func (g *Genome) Contigs() ([]string, error) {
	st, err := g.ensureStore()
	if err != nil {
		return nil, err
	}
	contigs, err := st.QueryFeatureValues("seqname", "gene", true, "", "")
	if err != nil {
		return nil, err
	}
	sort.Strings(contigs)
	return contigs, nil
}

// GeneByID returns the gene with the given ID. Genes are built once per
// Genome instance; repeated lookups return the same *Gene.
func (g *Genome) GeneByID(geneID string) (*Gene, error) {
	if gene, ok := g.genes[geneID]; ok {
		return gene, nil
	}
	st, err := g.ensureStore()
	if err != nil {
		return nil, err
	}
	cols := entityColumns(st, "gene", "gene_name", "gene_biotype")
	row, err := st.QueryOne(cols, "gene_id", geneID, "gene", true, true)
	if err != nil {
		return nil, err
	}
	vals := rowValues(cols, row)
	l, err := locusFromValues(vals)
	if err != nil {
		return nil, fmt.Errorf("gene %s: %w", geneID, err)
	}
	gene := &Gene{
		ID:      geneID,
		Name:    asString(vals["gene_name"]),
		Biotype: asString(vals["gene_biotype"]),
		Locus:   l,
		genome:  g,
	}
	g.genes[geneID] = gene
	return gene, nil
}

// GenesByName returns every gene carrying the given name. Most names map
// to one gene, but paralogs can share a name.
func (g *Genome) GenesByName(geneName string) ([]*Gene, error) {
	ids, err := g.GeneIDsOfGeneName(geneName)
	if err != nil {
		return nil, err
	}
	return g.genesByIDs(ids)
}

// Genes returns all genes, optionally narrowed to a contig and strand.
func (g *Genome) Genes(contig, strand string) ([]*Gene, error) {
	ids, err := g.GeneIDs(contig, strand)
	if err != nil {
		return nil, err
	}
	return g.genesByIDs(ids)
}

func (g *Genome) genesByIDs(ids []string) ([]*Gene, error) {
	genes := make([]*Gene, 0, len(ids))
	for _, id := range ids {
		gene, err := g.GeneByID(id)
		if err != nil {
			return nil, err
		}
		genes = append(genes, gene)
	}
	return genes, nil
}

// GeneIDs returns all distinct gene IDs, optionally narrowed to a contig
// and strand.
func (g *Genome) GeneIDs(contig, strand string) ([]string, error) {
	return g.featureValues("gene_id", "gene", contig, strand)
}

// GeneNames returns all distinct gene names, optionally narrowed to a
// contig and strand.
func (g *Genome) GeneNames(contig, strand string) ([]string, error) {
	return g.featureValues("gene_name", "gene", contig, strand)
}

// GeneIDsOfGeneName returns the IDs of every gene with the given name.
// An unknown name is a FeatureNotFound error.
func (g *Genome) GeneIDsOfGeneName(geneName string) ([]string, error) {
	return g.valuesOf("gene_id", "gene_name", geneName, "gene")
}

// GeneNameOfGeneID returns the name of the gene with the given ID.
func (g *Genome) GeneNameOfGeneID(geneID string) (string, error) {
	return g.valueOf("gene_name", "gene_id", geneID, "gene")
}

// GeneIDsAtLocus returns the IDs of genes overlapping the query interval,
// ordered by gene start coordinate. end=0 queries the single position.
func (g *Genome) GeneIDsAtLocus(contig string, position, end int64, strand string) ([]string, error) {
	return g.valuesAtLocus("gene_id", "gene", contig, position, end, strand)
}

// GeneNamesAtLocus returns the names of genes overlapping the query
// interval, ordered by gene start coordinate.
func (g *Genome) GeneNamesAtLocus(contig string, position, end int64, strand string) ([]string, error) {
	return g.valuesAtLocus("gene_name", "gene", contig, position, end, strand)
}

// GenesAtLocus returns the genes overlapping the query interval, ordered
// by start coordinate.
func (g *Genome) GenesAtLocus(contig string, position, end int64, strand string) ([]*Gene, error) {
	ids, err := g.GeneIDsAtLocus(contig, position, end, strand)
	if err != nil {
		return nil, err
	}
	return g.genesByIDs(ids)
}

// LocusOfGeneID returns the location of the gene with the given ID.
func (g *Genome) LocusOfGeneID(geneID string) (locus.Locus, error) {
	st, err := g.ensureStore()
	if err != nil {
		return locus.Locus{}, err
	}
	return st.QueryLocus("gene_id", geneID, "gene")
}

// LociOfGeneName returns the locations of every gene with the given name.
func (g *Genome) LociOfGeneName(geneName string) ([]locus.Locus, error) {
	st, err := g.ensureStore()
	if err != nil {
		return nil, err
	}
	return st.QueryLoci("gene_name", geneName, "gene")
}

// NearestGene returns the gene on the contig with the smallest gap to
// [start, end] and that gap. Overlap means a gap of zero; equidistant
// genes resolve to the first one scanned.
func (g *Genome) NearestGene(contig string, start, end int64) (*Gene, int64, error) {
	genes, err := g.Genes(contig, "")
	if err != nil {
		return nil, 0, err
	}
	best, distance, ok := locus.FindNearest(start, end, genes)
	if !ok {
		return nil, 0, fmt.Errorf("no genes on contig %q", contig)
	}
	return best, distance, nil
}

// TranscriptByID returns the transcript with the given ID, built once per
// Genome instance.
func (g *Genome) TranscriptByID(transcriptID string) (*Transcript, error) {
	if t, ok := g.transcripts[transcriptID]; ok {
		return t, nil
	}
	st, err := g.ensureStore()
	if err != nil {
		return nil, err
	}
	cols := entityColumns(st, "transcript",
		"transcript_name", "transcript_biotype", "gene_id", "gene_name", "protein_id")
	row, err := st.QueryOne(cols, "transcript_id", transcriptID, "transcript", true, true)
	if err != nil {
		return nil, err
	}
	vals := rowValues(cols, row)
	l, err := locusFromValues(vals)
	if err != nil {
		return nil, fmt.Errorf("transcript %s: %w", transcriptID, err)
	}
	t := &Transcript{
		ID:        transcriptID,
		Name:      asString(vals["transcript_name"]),
		Biotype:   asString(vals["transcript_biotype"]),
		GeneID:    asString(vals["gene_id"]),
		GeneName:  asString(vals["gene_name"]),
		ProteinID: asString(vals["protein_id"]),
		Locus:     l,
		genome:    g,
	}
	g.transcripts[transcriptID] = t
	return t, nil
}

// TranscriptsByName returns every transcript with the given name.
func (g *Genome) TranscriptsByName(transcriptName string) ([]*Transcript, error) {
	ids, err := g.valuesOf("transcript_id", "transcript_name", transcriptName, "transcript")
	if err != nil {
		return nil, err
	}
	return g.transcriptsByIDs(ids)
}

// Transcripts returns all transcripts, optionally narrowed to a contig
// and strand.
func (g *Genome) Transcripts(contig, strand string) ([]*Transcript, error) {
	ids, err := g.TranscriptIDs(contig, strand)
	if err != nil {
		return nil, err
	}
	return g.transcriptsByIDs(ids)
}

func (g *Genome) transcriptsByIDs(ids []string) ([]*Transcript, error) {
	transcripts := make([]*Transcript, 0, len(ids))
	for _, id := range ids {
		t, err := g.TranscriptByID(id)
		if err != nil {
			return nil, err
		}
		transcripts = append(transcripts, t)
	}
	return transcripts, nil
}

// TranscriptIDs returns all distinct transcript IDs, optionally narrowed
// to a contig and strand.
func (g *Genome) TranscriptIDs(contig, strand string) ([]string, error) {
	return g.featureValues("transcript_id", "transcript", contig, strand)
}

// TranscriptNames returns all distinct transcript names, optionally
// narrowed to a contig and strand.
func (g *Genome) TranscriptNames(contig, strand string) ([]string, error) {
	return g.featureValues("transcript_name", "transcript", contig, strand)
}

// TranscriptIDsOfGeneID returns the IDs of the gene's transcripts.
func (g *Genome) TranscriptIDsOfGeneID(geneID string) ([]string, error) {
	return g.valuesOf("transcript_id", "gene_id", geneID, "transcript")
}

// TranscriptIDsOfGeneName returns the transcript IDs of every gene with
// the given name.
func (g *Genome) TranscriptIDsOfGeneName(geneName string) ([]string, error) {
	return g.valuesOf("transcript_id", "gene_name", geneName, "transcript")
}

// TranscriptNamesOfGeneName returns the transcript names of every gene
// with the given name.
func (g *Genome) TranscriptNamesOfGeneName(geneName string) ([]string, error) {
	return g.valuesOf("transcript_name", "gene_name", geneName, "transcript")
}

// TranscriptNameOfTranscriptID returns the name of one transcript.
func (g *Genome) TranscriptNameOfTranscriptID(transcriptID string) (string, error) {
	return g.valueOf("transcript_name", "transcript_id", transcriptID, "transcript")
}

// TranscriptsOfGeneID returns the gene's transcripts.
func (g *Genome) TranscriptsOfGeneID(geneID string) ([]*Transcript, error) {
	ids, err := g.TranscriptIDsOfGeneID(geneID)
	if err != nil {
		return nil, err
	}
	return g.transcriptsByIDs(ids)
}

// TranscriptIDsAtLocus returns the IDs of transcripts overlapping the
// query interval, ordered by transcript start coordinate.
func (g *Genome) TranscriptIDsAtLocus(contig string, position, end int64, strand string) ([]string, error) {
	return g.valuesAtLocus("transcript_id", "transcript", contig, position, end, strand)
}

// TranscriptNamesAtLocus returns the names of transcripts overlapping the
// query interval, ordered by transcript start coordinate.
func (g *Genome) TranscriptNamesAtLocus(contig string, position, end int64, strand string) ([]string, error) {
	return g.valuesAtLocus("transcript_name", "transcript", contig, position, end, strand)
}

// TranscriptsAtLocus returns the transcripts overlapping the query
// interval, ordered by start coordinate.
func (g *Genome) TranscriptsAtLocus(contig string, position, end int64, strand string) ([]*Transcript, error) {
	ids, err := g.TranscriptIDsAtLocus(contig, position, end, strand)
	if err != nil {
		return nil, err
	}
	return g.transcriptsByIDs(ids)
}

// LocusOfTranscriptID returns the location of one transcript.
func (g *Genome) LocusOfTranscriptID(transcriptID string) (locus.Locus, error) {
	st, err := g.ensureStore()
	if err != nil {
		return locus.Locus{}, err
	}
	return st.QueryLocus("transcript_id", transcriptID, "transcript")
}

// NearestTranscript returns the transcript on the contig with the
// smallest gap to [start, end] and that gap.
func (g *Genome) NearestTranscript(contig string, start, end int64) (*Transcript, int64, error) {
	transcripts, err := g.Transcripts(contig, "")
	if err != nil {
		return nil, 0, err
	}
	best, distance, ok := locus.FindNearest(start, end, transcripts)
	if !ok {
		return nil, 0, fmt.Errorf("no transcripts on contig %q", contig)
	}
	return best, distance, nil
}

// ExonByID returns the exon with the given ID. An exon shared by several
// transcripts appears once, described by its genomic interval.
func (g *Genome) ExonByID(exonID string) (*Exon, error) {
	if e, ok := g.exons[exonID]; ok {
		return e, nil
	}
	st, err := g.ensureStore()
	if err != nil {
		return nil, err
	}
	cols := entityColumns(st, "exon", "gene_id", "gene_name")
	row, err := st.QueryOne(cols, "exon_id", exonID, "exon", true, true)
	if err != nil {
		return nil, err
	}
	vals := rowValues(cols, row)
	l, err := locusFromValues(vals)
	if err != nil {
		return nil, fmt.Errorf("exon %s: %w", exonID, err)
	}
	e := &Exon{
		ID:       exonID,
		GeneID:   asString(vals["gene_id"]),
		GeneName: asString(vals["gene_name"]),
		Locus:    l,
	}
	g.exons[exonID] = e
	return e, nil
}

// ExonIDs returns all distinct exon IDs, optionally narrowed to a contig
// and strand.
func (g *Genome) ExonIDs(contig, strand string) ([]string, error) {
	return g.featureValues("exon_id", "exon", contig, strand)
}

// ExonIDsOfGeneID returns the distinct exon IDs of one gene.
func (g *Genome) ExonIDsOfGeneID(geneID string) ([]string, error) {
	return g.valuesOf("exon_id", "gene_id", geneID, "exon")
}

// ExonIDsOfTranscriptID returns the distinct exon IDs of one transcript.
func (g *Genome) ExonIDsOfTranscriptID(transcriptID string) ([]string, error) {
	return g.valuesOf("exon_id", "transcript_id", transcriptID, "exon")
}

// ExonsOfTranscriptID returns the transcript's exons in transcription
// order, following the exon_number attribute when present.
func (g *Genome) ExonsOfTranscriptID(transcriptID string) ([]*Exon, error) {
	st, err := g.ensureStore()
	if err != nil {
		return nil, err
	}
	cols := entityColumns(st, "exon", "exon_id", "exon_number", "gene_id", "gene_name")
	rows, err := st.Query(cols, "transcript_id", transcriptID, "exon", true, true)
	if err != nil {
		return nil, err
	}

	type numbered struct {
		exon *Exon
		num  int
	}
	entries := make([]numbered, 0, len(rows))
	for _, row := range rows {
		vals := rowValues(cols, row)
		l, err := locusFromValues(vals)
		if err != nil {
			return nil, fmt.Errorf("exon of transcript %s: %w", transcriptID, err)
		}
		e := &Exon{
			ID:       asString(vals["exon_id"]),
			GeneID:   asString(vals["gene_id"]),
			GeneName: asString(vals["gene_name"]),
			Locus:    l,
		}
		num, _ := strconv.Atoi(asString(vals["exon_number"]))
		entries = append(entries, numbered{exon: e, num: num})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].num < entries[j].num
	})
	exons := make([]*Exon, len(entries))
	for i, entry := range entries {
		exons[i] = entry.exon
	}
	return exons, nil
}

// ExonIDsAtLocus returns the IDs of exons overlapping the query interval,
// ordered by exon start coordinate.
func (g *Genome) ExonIDsAtLocus(contig string, position, end int64, strand string) ([]string, error) {
	return g.valuesAtLocus("exon_id", "exon", contig, position, end, strand)
}

// ExonsAtLocus returns the exons overlapping the query interval, ordered
// by start coordinate.
func (g *Genome) ExonsAtLocus(contig string, position, end int64, strand string) ([]*Exon, error) {
	ids, err := g.ExonIDsAtLocus(contig, position, end, strand)
	if err != nil {
		return nil, err
	}
	exons := make([]*Exon, 0, len(ids))
	for _, id := range ids {
		e, err := g.ExonByID(id)
		if err != nil {
			return nil, err
		}
		exons = append(exons, e)
	}
	return exons, nil
}

// LocusOfExonID returns the location of one exon.
func (g *Genome) LocusOfExonID(exonID string) (locus.Locus, error) {
	st, err := g.ensureStore()
	if err != nil {
		return locus.Locus{}, err
	}
	return st.QueryLocus("exon_id", exonID, "exon")
}

// proteinFeature picks the feature table protein IDs live in. Coding
// segments carry them; files without CDS rows fall back to the
// transcript table.
func (g *Genome) proteinFeature(st *store.Store) string {
	for _, f := range st.Features() {
		if f == "CDS" {
			return "CDS"
		}
	}
	return "transcript"
}

// ProteinIDs returns all distinct protein IDs, optionally narrowed to a
// contig and strand.
func (g *Genome) ProteinIDs(contig, strand string) ([]string, error) {
	st, err := g.ensureStore()
	if err != nil {
		return nil, err
	}
	return st.QueryFeatureValues("protein_id", g.proteinFeature(st), true, contig, strand)
}

// ProteinIDsAtLocus returns the distinct protein IDs of coding regions
// overlapping the query interval.
func (g *Genome) ProteinIDsAtLocus(contig string, position, end int64, strand string) ([]string, error) {
	st, err := g.ensureStore()
	if err != nil {
		return nil, err
	}
	return st.DistinctColumnValuesAtLocus("protein_id", g.proteinFeature(st), contig, position, end, strand)
}

func (g *Genome) featureValues(column, feature, contig, strand string) ([]string, error) {
	st, err := g.ensureStore()
	if err != nil {
		return nil, err
	}
	return st.QueryFeatureValues(column, feature, true, contig, strand)
}

// valuesOf projects one column for all rows matching an equality filter;
// zero matches is a FeatureNotFound error.
func (g *Genome) valuesOf(column, filterColumn, filterValue, feature string) ([]string, error) {
	st, err := g.ensureStore()
	if err != nil {
		return nil, err
	}
	rows, err := st.Query([]string{column}, filterColumn, filterValue, feature, true, true)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		if v := asString(row[0]); v != "" {
			values = append(values, v)
		}
	}
	return values, nil
}

// valueOf is valuesOf for columns expected to hold exactly one value.
func (g *Genome) valueOf(column, filterColumn, filterValue, feature string) (string, error) {
	st, err := g.ensureStore()
	if err != nil {
		return "", err
	}
	row, err := st.QueryOne([]string{column}, filterColumn, filterValue, feature, true, true)
	if err != nil {
		return "", err
	}
	return asString(row[0]), nil
}

func (g *Genome) valuesAtLocus(column, feature, contig string, position, end int64, strand string) ([]string, error) {
	st, err := g.ensureStore()
	if err != nil {
		return nil, err
	}
	return st.DistinctColumnValuesAtLocus(column, feature, contig, position, end, strand)
}
