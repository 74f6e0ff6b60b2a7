package genome

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annotdb/annotdb/internal/store"
)

// toyGTFRows describes two genes on contig 1 (Alpha forward, Beta
// backward) and one gene on contig 2, with transcripts, exons and a
// coding segment for Alpha.
var toyGTFRows = [][]string{
	{"1", "ens", "gene", "100", "300", ".", "+", ".",
		`gene_id "G1"; gene_name "Alpha"; gene_biotype "protein_coding";`},
	{"1", "ens", "transcript", "100", "300", ".", "+", ".",
		`gene_id "G1"; gene_name "Alpha"; transcript_id "T1"; transcript_name "Alpha-201"; transcript_biotype "protein_coding"; protein_id "P1";`},
	{"1", "ens", "exon", "100", "180", ".", "+", ".",
		`gene_id "G1"; gene_name "Alpha"; transcript_id "T1"; exon_number "1"; exon_id "E1";`},
	{"1", "ens", "exon", "220", "300", ".", "+", ".",
		`gene_id "G1"; gene_name "Alpha"; transcript_id "T1"; exon_number "2"; exon_id "E2";`},
	{"1", "ens", "CDS", "120", "180", ".", "+", "0",
		`gene_id "G1"; transcript_id "T1"; protein_id "P1";`},
	{"1", "ens", "gene", "1000", "1500", ".", "-", ".",
		`gene_id "G2"; gene_name "Beta"; gene_biotype "lincRNA";`},
	{"1", "ens", "transcript", "1000", "1500", ".", "-", ".",
		`gene_id "G2"; gene_name "Beta"; transcript_id "T2"; transcript_name "Beta-201"; transcript_biotype "lincRNA";`},
	{"1", "ens", "exon", "1000", "1500", ".", "-", ".",
		`gene_id "G2"; gene_name "Beta"; transcript_id "T2"; exon_number "1"; exon_id "E3";`},
	{"2", "ens", "gene", "50", "90", ".", "+", ".",
		`gene_id "G3"; gene_name "Gamma"; gene_biotype "protein_coding";`},
}

const toyCDNA = `>T1 cdna
ACGTACGTACGT
>T2 cdna
TTTTGGGG
`

const toyPeptides = `>P1 pep
MKT
`

func writeToyFiles(t *testing.T, dir string) (gtfPath, cdnaPath, pepPath string) {
	t.Helper()
	lines := make([]string, len(toyGTFRows))
	for i, row := range toyGTFRows {
		lines[i] = strings.Join(row, "\t")
	}
	gtfPath = filepath.Join(dir, "toy.gtf")
	require.NoError(t, os.WriteFile(gtfPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	cdnaPath = filepath.Join(dir, "toy.cdna.fa")
	require.NoError(t, os.WriteFile(cdnaPath, []byte(toyCDNA), 0o644))
	pepPath = filepath.Join(dir, "toy.pep.fa")
	require.NoError(t, os.WriteFile(pepPath, []byte(toyPeptides), 0o644))
	return gtfPath, cdnaPath, pepPath
}

func newTestGenome(t *testing.T) *Genome {
	t.Helper()
	dir := t.TempDir()
	gtfPath, cdnaPath, pepPath := writeToyFiles(t, dir)
	g := New("TESTREF", "toy", "1", gtfPath,
		WithTranscriptFasta(cdnaPath),
		WithProteinFasta(pepPath),
		WithCacheRoot(filepath.Join(dir, "cache")),
		InMemoryIndex())
	require.NoError(t, g.Install(false))
	t.Cleanup(func() { g.Close() })
	return g
}

func TestGeneAccessors(t *testing.T) {
	g := newTestGenome(t)

	gene, err := g.GeneByID("G1")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", gene.Name)
	assert.Equal(t, "protein_coding", gene.Biotype)
	assert.Equal(t, "1", gene.Locus.Contig)
	assert.Equal(t, int64(100), gene.Locus.Start)
	assert.Equal(t, int64(300), gene.Locus.End)
	assert.Equal(t, "+", gene.Locus.Strand)

	again, err := g.GeneByID("G1")
	require.NoError(t, err)
	assert.Same(t, gene, again, "repeated lookups return the cached entity")

	_, err = g.GeneByID("G999")
	var notFound *store.FeatureNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "gene", notFound.Feature)

	betas, err := g.GenesByName("Beta")
	require.NoError(t, err)
	require.Len(t, betas, 1)
	assert.Equal(t, "G2", betas[0].ID)

	name, err := g.GeneNameOfGeneID("G2")
	require.NoError(t, err)
	assert.Equal(t, "Beta", name)

	ids, err := g.GeneIDsOfGeneName("Alpha")
	require.NoError(t, err)
	assert.Equal(t, []string{"G1"}, ids)
}

func TestGeneListings(t *testing.T) {
	g := newTestGenome(t)

	ids, err := g.GeneIDs("", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"G1", "G2", "G3"}, ids)

	ids, err = g.GeneIDs("1", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"G1", "G2"}, ids)

	ids, err = g.GeneIDs("chr1", "-")
	require.NoError(t, err)
	assert.Equal(t, []string{"G2"}, ids, "contig names normalize before filtering")

	names, err := g.GeneNames("2", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Gamma"}, names)

	contigs, err := g.Contigs()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, contigs)
}

func TestTranscriptAccessors(t *testing.T) {
	g := newTestGenome(t)

	tr, err := g.TranscriptByID("T1")
	require.NoError(t, err)
	assert.Equal(t, "Alpha-201", tr.Name)
	assert.Equal(t, "protein_coding", tr.Biotype)
	assert.Equal(t, "G1", tr.GeneID)
	assert.Equal(t, "Alpha", tr.GeneName)
	assert.Equal(t, "P1", tr.ProteinID)

	gene, err := tr.Gene()
	require.NoError(t, err)
	cached, err := g.GeneByID("G1")
	require.NoError(t, err)
	assert.Same(t, cached, gene)

	ids, err := g.TranscriptIDsOfGeneID("G1")
	require.NoError(t, err)
	assert.Equal(t, []string{"T1"}, ids)

	ids, err = g.TranscriptIDsOfGeneName("Beta")
	require.NoError(t, err)
	assert.Equal(t, []string{"T2"}, ids)

	byName, err := g.TranscriptsByName("Beta-201")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "T2", byName[0].ID)

	name, err := g.TranscriptNameOfTranscriptID("T1")
	require.NoError(t, err)
	assert.Equal(t, "Alpha-201", name)
}

func TestExonTraversal(t *testing.T) {
	g := newTestGenome(t)

	tr, err := g.TranscriptByID("T1")
	require.NoError(t, err)
	exons, err := tr.Exons()
	require.NoError(t, err)
	require.Len(t, exons, 2)
	assert.Equal(t, "E1", exons[0].ID, "exons follow exon_number order")
	assert.Equal(t, "E2", exons[1].ID)
	assert.Equal(t, int64(220), exons[1].Locus.Start)

	gene, err := g.GeneByID("G1")
	require.NoError(t, err)
	geneExons, err := gene.Exons()
	require.NoError(t, err)
	assert.Len(t, geneExons, 2)

	e, err := g.ExonByID("E3")
	require.NoError(t, err)
	assert.Equal(t, "G2", e.GeneID)
	assert.Equal(t, int64(1000), e.Locus.Start)

	ids, err := g.ExonIDsOfTranscriptID("T1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"E1", "E2"}, ids)

	ids, err = g.ExonIDsOfGeneID("G2")
	require.NoError(t, err)
	assert.Equal(t, []string{"E3"}, ids)
}

func TestAtLocusQueries(t *testing.T) {
	g := newTestGenome(t)

	ids, err := g.GeneIDsAtLocus("chr1", 150, 0, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"G1"}, ids)

	// interval spanning both genes, results ordered by start coordinate
	genes, err := g.GenesAtLocus("1", 100, 1200, "")
	require.NoError(t, err)
	require.Len(t, genes, 2)
	assert.Equal(t, "G1", genes[0].ID)
	assert.Equal(t, "G2", genes[1].ID)

	ids, err = g.TranscriptIDsAtLocus("1", 100, 1200, "-")
	require.NoError(t, err)
	assert.Equal(t, []string{"T2"}, ids, "strand narrows the overlap set")

	// position 200 falls in the intron between E1 and E2
	ids, err = g.ExonIDsAtLocus("1", 200, 0, "")
	require.NoError(t, err)
	assert.Empty(t, ids)
	ids, err = g.GeneIDsAtLocus("1", 200, 0, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"G1"}, ids)

	names, err := g.GeneNamesAtLocus("1", 1100, 0, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Beta"}, names)

	pids, err := g.ProteinIDsAtLocus("1", 150, 0, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, pids)
}

func TestLocusLookups(t *testing.T) {
	g := newTestGenome(t)

	l, err := g.LocusOfGeneID("G1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), l.Start)
	assert.Equal(t, int64(300), l.End)

	loci, err := g.LociOfGeneName("Beta")
	require.NoError(t, err)
	require.Len(t, loci, 1)
	assert.Equal(t, "-", loci[0].Strand)

	l, err = g.LocusOfTranscriptID("T2")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), l.Start)

	l, err = g.LocusOfExonID("E2")
	require.NoError(t, err)
	assert.Equal(t, int64(220), l.Start)
}

func TestNearestFeatures(t *testing.T) {
	g := newTestGenome(t)

	// 400..450 sits between Alpha (ends 300) and Beta (starts 1000)
	gene, distance, err := g.NearestGene("1", 400, 450)
	require.NoError(t, err)
	assert.Equal(t, "G1", gene.ID)
	assert.Equal(t, int64(100), distance)

	gene, distance, err = g.NearestGene("1", 1600, 1700)
	require.NoError(t, err)
	assert.Equal(t, "G2", gene.ID)
	assert.Equal(t, int64(100), distance)

	gene, distance, err = g.NearestGene("1", 150, 150)
	require.NoError(t, err)
	assert.Equal(t, "G1", gene.ID)
	assert.Equal(t, int64(0), distance, "overlap means zero distance")

	tr, distance, err := g.NearestTranscript("1", 400, 450)
	require.NoError(t, err)
	assert.Equal(t, "T1", tr.ID)
	assert.Equal(t, int64(100), distance)
}

func TestSequences(t *testing.T) {
	g := newTestGenome(t)

	seq, err := g.TranscriptSequence("T1")
	require.NoError(t, err)
	assert.Equal(t, "ACGTACGTACGT", seq)

	tr, err := g.TranscriptByID("T1")
	require.NoError(t, err)
	seq, err = tr.Sequence()
	require.NoError(t, err)
	assert.Equal(t, "ACGTACGTACGT", seq)

	pep, err := tr.ProteinSequence()
	require.NoError(t, err)
	assert.Equal(t, "MKT", pep)

	noncoding, err := g.TranscriptByID("T2")
	require.NoError(t, err)
	_, err = noncoding.ProteinSequence()
	assert.Error(t, err, "non-coding transcripts have no protein sequence")

	_, err = g.TranscriptSequence("T999")
	assert.Error(t, err)
}

func TestProteinIDs(t *testing.T) {
	g := newTestGenome(t)

	ids, err := g.ProteinIDs("1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, ids)
}

func TestClearCacheDropsEntities(t *testing.T) {
	g := newTestGenome(t)

	before, err := g.GeneByID("G1")
	require.NoError(t, err)
	g.ClearCache()
	after, err := g.GeneByID("G1")
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Equal(t, before.ID, after.ID)
}

func TestMissingSequenceSources(t *testing.T) {
	dir := t.TempDir()
	gtfPath, _, _ := writeToyFiles(t, dir)
	g := New("TESTREF", "toy", "1", gtfPath,
		WithCacheRoot(filepath.Join(dir, "cache")),
		InMemoryIndex())
	require.NoError(t, g.Install(false))
	defer g.Close()

	_, err := g.TranscriptSequence("T1")
	assert.Error(t, err, "no sequence sources configured")
}

func TestPersistedIndexLifecycle(t *testing.T) {
	dir := t.TempDir()
	gtfPath, _, _ := writeToyFiles(t, dir)
	g := New("TESTREF", "toy", "1", gtfPath,
		WithCacheRoot(filepath.Join(dir, "cache")))
	require.NoError(t, g.Install(false))
	defer g.Close()

	dbPath := store.DBPathFor(gtfPath)
	_, err := os.Stat(dbPath)
	require.NoError(t, err, "index persists next to the source file")

	ids, err := g.GeneIDs("", "")
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	require.NoError(t, g.Close())
	_, err = g.GeneIDs("", "")
	require.NoError(t, err, "queries reopen a closed store")
}

func TestForEnsemblRelease(t *testing.T) {
	g, err := ForEnsemblRelease("human", 93, WithCacheRoot(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, "GRCh38", g.ReferenceName())
	assert.Equal(t, "ensembl", g.AnnotationName())
	assert.Equal(t, "93", g.AnnotationVersion())
	assert.Contains(t, g.gtfSource, "release-93/gtf/homo_sapiens/Homo_sapiens.GRCh38.93.gtf.gz")
	require.Len(t, g.transcriptSources, 2)
	assert.Contains(t, g.transcriptSources[0], "cdna.all.fa.gz")
	assert.Contains(t, g.transcriptSources[1], "ncrna.fa.gz")
	require.Len(t, g.proteinSources, 1)
	assert.Contains(t, g.proteinSources[0], "pep.all.fa.gz")

	_, err = ForEnsemblRelease("tribble", 93)
	assert.Error(t, err)

	_, err = ForEnsemblRelease("human", 7)
	assert.Error(t, err)
}
