// Package gtf parses tab-delimited genome annotation files into a
// normalized table of feature rows.
//
// Columns of a GTF file:
//
//	seqname  - chromosome or scaffold name
//	source   - annotation source; very old files store a biotype here
//	feature  - gene, transcript, exon, CDS, start_codon, stop_codon, ...
//	start    - 1-based inclusive start position
//	end      - 1-based inclusive end position
//	score    - floating point score, or "."
//	strand   - "+" or "-"
//	frame    - "0", "1", "2" for CDS rows, or "."
//	attribute - semicolon-separated `key "value";` pairs
package gtf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/annotdb/annotdb/internal/locus"
)

// Loader parses one GTF file into a Table.
type Loader struct {
	path     string
	features map[string]bool // feature-type allow-list; nil keeps all
	columns  map[string]bool // attribute allow-list; nil keeps all
	logger   *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFeatures restricts loading to the given feature types.
func WithFeatures(features ...string) LoaderOption {
	return func(l *Loader) {
		l.features = make(map[string]bool, len(features))
		for _, f := range features {
			l.features[f] = true
		}
	}
}

// WithAttributeColumns restricts the attribute union to the given keys.
func WithAttributeColumns(columns ...string) LoaderOption {
	return func(l *Loader) {
		l.columns = make(map[string]bool, len(columns))
		for _, c := range columns {
			l.columns[c] = true
		}
	}
}

// WithLogger sets the loader's logger.
func WithLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// NewLoader creates a loader for the GTF file at path (plain or gzipped).
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{path: path, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load parses the file and returns the normalized table.
func (l *Loader) Load() (*Table, error) {
	if !strings.HasSuffix(l.path, ".gtf") && !strings.HasSuffix(l.path, ".gtf.gz") {
		return nil, fmt.Errorf("wrong extension for GTF file: %s", l.path)
	}

	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(l.path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	table, err := l.parse(reader)
	if err != nil {
		return nil, err
	}
	if table.DroppedRows > 0 {
		l.logger.Warn("dropped malformed GTF rows",
			zap.Int("count", table.DroppedRows),
			zap.String("path", l.path))
	}

	l.inferBiotypeColumn(table)
	l.inferParentGenes(table)
	if !containsString(table.Features(), "gene") {
		l.reconstructFeatureRows(table, "gene")
	}
	if !containsString(table.Features(), "transcript") {
		l.reconstructFeatureRows(table, "transcript")
	}
	l.reconstructExonIDs(table)
	return table, nil
}

func (l *Loader) parse(reader io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(reader)
	// annotation lines can be very long
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	table := &Table{}
	seenAttr := make(map[string]bool)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		row, ok := l.parseLine(line)
		if !ok {
			table.DroppedRows++
			continue
		}
		if l.features != nil && !l.features[row.Feature] {
			continue
		}
		for _, key := range attributeKeysInOrder(line) {
			if _, kept := row.Attrs[key]; kept && !seenAttr[key] {
				seenAttr[key] = true
				table.AttributeColumns = append(table.AttributeColumns, key)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}
	return table, nil
}

// parseLine parses a single GTF line; ok=false means the row is malformed
// and should be dropped.
func (l *Loader) parseLine(line string) (Row, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return Row{}, false
	}

	seqname, err := locus.NormalizeContig(fields[0])
	if err != nil {
		return Row{}, false
	}
	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Row{}, false
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return Row{}, false
	}
	if start < 1 || end < start {
		return Row{}, false
	}

	// strand values other than +/- become null, not an error
	strand := ""
	if norm, err := locus.NormalizeStrand(fields[6]); err == nil {
		strand = norm
	}

	row := Row{
		Seqname: seqname,
		Source:  nullableField(fields[1]),
		Feature: fields[2],
		Start:   start,
		End:     end,
		Score:   nullableField(fields[5]),
		Strand:  strand,
		Frame:   nullableField(fields[7]),
		Attrs:   l.parseAttributes(fields[8]),
	}
	return row, true
}

// nullableField maps the GTF "." placeholder to a null value.
func nullableField(s string) string {
	if s == "." {
		return ""
	}
	return s
}

// parseAttributes parses the ninth GTF column.
// Format: key "value"; key "value"; ...
func (l *Loader) parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)
	for _, part := range strings.Split(attrStr, ";") {
		key, value, ok := splitAttributePair(part)
		if !ok {
			continue
		}
		if l.columns != nil && !l.columns[key] {
			continue
		}
		attrs[key] = value
	}
	return attrs
}

func splitAttributePair(part string) (key, value string, ok bool) {
	part = strings.TrimSpace(part)
	// simplest entry is at least "k v"
	if len(part) < 3 {
		return "", "", false
	}
	idx := strings.IndexAny(part, " =")
	if idx <= 0 {
		return "", "", false
	}
	key = part[:idx]
	value = strings.TrimSpace(part[idx+1:])
	value = strings.Trim(value, "\"")
	// some files carry stray semicolons inside quoted values
	value = strings.TrimSuffix(value, ";")
	if value == "" {
		return "", "", false
	}
	return key, value, true
}

// attributeKeysInOrder re-scans a line's attribute column to recover the
// key order the file declares, so the attribute union keeps a stable,
// source-derived column order.
func attributeKeysInOrder(line string) []string {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return nil
	}
	var keys []string
	for _, part := range strings.Split(fields[8], ";") {
		if key, _, ok := splitAttributePair(part); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// inferBiotypeColumn resolves the ambiguity of the second GTF column:
// recent files store the annotation source there, very old ones a biotype.
// If "protein_coding" appears among its values the column is a biotype,
// and it becomes gene_biotype unless that attribute already exists, in
// which case it is the transcript_biotype.
func (l *Loader) inferBiotypeColumn(t *Table) {
	isBiotype := false
	for i := range t.Rows {
		if t.Rows[i].Source == "protein_coding" {
			isBiotype = true
			break
		}
	}
	if !isBiotype {
		return
	}

	target := "gene_biotype"
	if t.hasAttributeColumn("gene_biotype") {
		target = "transcript_biotype"
	}
	if t.hasAttributeColumn(target) {
		return
	}
	l.logger.Info("inferred biotype column from GTF source field",
		zap.String("column", target))
	t.addAttributeColumn(target)
	for i := range t.Rows {
		r := &t.Rows[i]
		if r.Source != "" {
			r.Attrs[target] = r.Source
			r.Source = ""
		}
	}
}

// inferParentGenes fills in a missing gene_id on child rows when the most
// recently seen gene row encloses them on the same contig. Rows whose
// parent cannot be inferred keep a null gene_id and simply never appear
// in parent-based traversals.
func (l *Loader) inferParentGenes(t *Table) {
	if !t.hasAttributeColumn("gene_id") {
		return
	}
	var current *Row
	inferred := 0
	for i := range t.Rows {
		r := &t.Rows[i]
		if r.Feature == "gene" {
			current = r
			continue
		}
		if r.Attr("gene_id") != "" || current == nil {
			continue
		}
		if current.Seqname == r.Seqname &&
			r.Start >= current.Start && r.End <= current.End {
			r.Attrs["gene_id"] = current.Attr("gene_id")
			inferred++
		}
	}
	if inferred > 0 {
		l.logger.Info("inferred parent gene from nesting order",
			zap.Int("rows", inferred))
	}
}

// reconstructFeatureRows synthesizes "gene" or "transcript" rows for old
// annotation files that only declare exons and CDS segments, by grouping
// child rows on the parent ID and spanning their coordinates.
func (l *Loader) reconstructFeatureRows(t *Table, feature string) {
	idColumn := feature + "_id"
	if !t.hasAttributeColumn(idColumn) {
		return
	}

	// attributes that describe the parent rather than the child row
	carried := []string{"gene_id", "gene_name", "gene_biotype"}
	if feature == "transcript" {
		carried = append(carried, "transcript_id", "transcript_name", "transcript_biotype")
	}

	groups := make(map[string]*Row)
	var order []string
	for i := range t.Rows {
		r := &t.Rows[i]
		id := r.Attr(idColumn)
		if id == "" {
			continue
		}
		g, ok := groups[id]
		if !ok {
			attrs := map[string]string{}
			for _, col := range carried {
				if v := r.Attr(col); v != "" {
					attrs[col] = v
				}
			}
			groups[id] = &Row{
				Seqname: r.Seqname,
				Feature: feature,
				Start:   r.Start,
				End:     r.End,
				Strand:  r.Strand,
				Attrs:   attrs,
			}
			order = append(order, id)
			continue
		}
		if r.Start < g.Start {
			g.Start = r.Start
		}
		if r.End > g.End {
			g.End = r.End
		}
	}

	l.logger.Info("reconstructed missing feature rows",
		zap.String("feature", feature),
		zap.Int("count", len(order)))
	for _, id := range order {
		t.Rows = append(t.Rows, *groups[id])
	}
}

// reconstructExonIDs synthesizes a missing exon_id column as
// "<transcript_id>.exon<exon_number>" for every row carrying an exon
// number. These IDs are not joinable against external data but make
// exon-level locus queries possible for old annotation files.
func (l *Loader) reconstructExonIDs(t *Table) {
	if t.hasAttributeColumn("exon_id") ||
		!t.hasAttributeColumn("transcript_id") ||
		!t.hasAttributeColumn("exon_number") {
		return
	}
	t.addAttributeColumn("exon_id")
	for i := range t.Rows {
		r := &t.Rows[i]
		tid, num := r.Attr("transcript_id"), r.Attr("exon_number")
		if tid != "" && num != "" {
			r.Attrs["exon_id"] = tid + ".exon" + num
		}
	}
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
