package species

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindByName(t *testing.T) {
	tests := []struct {
		name  string
		latin string
	}{
		{"human", "homo_sapiens"},
		{"Human", "homo_sapiens"},
		{"homo sapiens", "homo_sapiens"},
		{"homo_sapiens", "homo_sapiens"},
		{"mouse", "mus_musculus"},
		{"house mouse", "mus_musculus"},
	}
	for _, tt := range tests {
		s, err := FindByName(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.latin, s.LatinName)
	}

	_, err := FindByName("tribble")
	assert.Error(t, err)
}

func TestWhichReference(t *testing.T) {
	tests := []struct {
		species  string
		release  int
		assembly string
	}{
		{"human", 54, "NCBI36"},
		{"human", 55, "GRCh37"},
		{"human", 75, "GRCh37"},
		{"human", 76, "GRCh38"},
		{"human", MaxEnsemblRelease, "GRCh38"},
		{"mouse", 67, "NCBIM37"},
		{"mouse", 68, "GRCm38"},
		{"mouse", 103, "GRCm39"},
	}
	for _, tt := range tests {
		assembly, err := WhichReference(tt.species, tt.release)
		require.NoError(t, err, "%s release %d", tt.species, tt.release)
		assert.Equal(t, tt.assembly, assembly)
	}
}

func TestFindByAssembly(t *testing.T) {
	s, err := FindByAssembly("GRCh37")
	require.NoError(t, err)
	assert.Equal(t, "homo_sapiens", s.LatinName)

	_, err = FindByAssembly("hg19")
	assert.Error(t, err)
}

func TestMaxRelease(t *testing.T) {
	max, err := MaxRelease("GRCh37")
	require.NoError(t, err)
	assert.Equal(t, 75, max)

	max, err = MaxRelease("GRCh38")
	require.NoError(t, err)
	assert.Equal(t, MaxEnsemblRelease, max)
}

func TestCheckRelease(t *testing.T) {
	release, err := CheckRelease(0)
	require.NoError(t, err)
	assert.Equal(t, MaxEnsemblRelease, release, "zero means latest")

	_, err = CheckRelease(53)
	assert.Error(t, err)
	_, err = CheckRelease(MaxEnsemblRelease + 1)
	assert.Error(t, err)
}

func TestGTFURL(t *testing.T) {
	url, err := GTFURL(Human, 93)
	require.NoError(t, err)
	assert.Equal(t,
		"https://ftp.ensembl.org/pub/release-93/gtf/homo_sapiens/Homo_sapiens.GRCh38.93.gtf.gz",
		url)

	url, err = GTFURL(Human, 75)
	require.NoError(t, err)
	assert.Equal(t,
		"https://ftp.ensembl.org/pub/release-75/gtf/homo_sapiens/Homo_sapiens.GRCh37.75.gtf.gz",
		url)
}

func TestFastaURLs(t *testing.T) {
	// modern releases drop the release number from sequence filenames
	url, err := TranscriptFastaURL(Human, 93)
	require.NoError(t, err)
	assert.Equal(t,
		"https://ftp.ensembl.org/pub/release-93/fasta/homo_sapiens/cdna/Homo_sapiens.GRCh38.cdna.all.fa.gz",
		url)

	url, err = TranscriptFastaURL(Human, 75)
	require.NoError(t, err)
	assert.Equal(t,
		"https://ftp.ensembl.org/pub/release-75/fasta/homo_sapiens/cdna/Homo_sapiens.GRCh37.75.cdna.all.fa.gz",
		url)

	url, err = ProteinFastaURL(Human, 93)
	require.NoError(t, err)
	assert.Equal(t,
		"https://ftp.ensembl.org/pub/release-93/fasta/homo_sapiens/pep/Homo_sapiens.GRCh38.pep.all.fa.gz",
		url)

	url, err = NcRNAFastaURL(Mouse, 103)
	require.NoError(t, err)
	assert.Equal(t,
		"https://ftp.ensembl.org/pub/release-103/fasta/mus_musculus/ncrna/Mus_musculus.GRCm39.ncrna.fa.gz",
		url)
}
