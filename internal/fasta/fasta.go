// Package fasta provides a key-value view over FASTA sequence files:
// record identifiers map to sequence strings. This is all the annotation
// engine needs from sequence data.
package fasta

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Index holds all sequences of one FASTA file keyed by record ID.
type Index struct {
	sequences map[string]string
}

// Load reads a FASTA file (plain or gzipped) into an Index.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FASTA file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}
	return Parse(reader)
}

// Parse reads FASTA records from a reader.
func Parse(reader io.Reader) (*Index, error) {
	scanner := bufio.NewScanner(reader)
	// sequence lines are usually wrapped, but headers can run long
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	idx := &Index{sequences: make(map[string]string)}
	var currentID string
	var currentSeq strings.Builder

	flush := func() {
		if currentID != "" && currentSeq.Len() > 0 {
			idx.sequences[currentID] = currentSeq.String()
		}
		currentSeq.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ">") {
			flush()
			currentID = parseHeader(line)
			continue
		}
		currentSeq.WriteString(strings.TrimSpace(line))
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}
	return idx, nil
}

// parseHeader extracts the record ID from a FASTA header line: the first
// token, whether delimited by whitespace or by the pipe separators some
// annotation sources use.
func parseHeader(header string) string {
	header = strings.TrimPrefix(header, ">")
	if idx := strings.IndexAny(header, " |\t"); idx != -1 {
		header = header[:idx]
	}
	return header
}

// Get returns the sequence for an ID. The second result is false when the
// ID is unknown; absence is meaningful to callers, not an error.
func (i *Index) Get(id string) (string, bool) {
	seq, ok := i.sequences[id]
	return seq, ok
}

// Len returns the number of indexed sequences.
func (i *Index) Len() int {
	return len(i.sequences)
}

// IDs returns all record IDs in sorted order.
func (i *Index) IDs() []string {
	ids := make([]string, 0, len(i.sequences))
	for id := range i.sequences {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
