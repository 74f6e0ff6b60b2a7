package fasta

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `>T1 cdna chromosome:GRCh38:1:100:200:1
ACGT
ACGT
>T2|G1|some|annotation
TTTT
>EMPTY
>T3
acgtacgt
`

func TestParse(t *testing.T) {
	idx, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())

	seq, ok := idx.Get("T1")
	require.True(t, ok)
	assert.Equal(t, "ACGTACGT", seq, "wrapped sequence lines are joined")

	seq, ok = idx.Get("T2")
	require.True(t, ok, "pipe-delimited header yields first token")
	assert.Equal(t, "TTTT", seq)

	_, ok = idx.Get("EMPTY")
	assert.False(t, ok, "records with no sequence are dropped")

	_, ok = idx.Get("NOPE")
	assert.False(t, ok)

	assert.Equal(t, []string{"T1", "T2", "T3"}, idx.IDs())
}

func TestLoadGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seqs.fa.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	idx, err := Load(path)
	require.NoError(t, err)
	seq, ok := idx.Get("T3")
	require.True(t, ok)
	assert.Equal(t, "acgtacgt", seq)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.fa"))
	assert.Error(t, err)
}
