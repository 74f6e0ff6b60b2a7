package gtf

// FixedColumns are the eight positional GTF columns every row carries
// (the ninth, the attribute string, is expanded into named columns).
var FixedColumns = []string{
	"seqname", "source", "feature", "start", "end", "score", "strand", "frame",
}

// Row is one normalized feature row. Attribute values live in Attrs;
// a missing key means the attribute was absent (null), never an error.
type Row struct {
	Seqname string
	Source  string
	Feature string
	Start   int64
	End     int64
	Score   string
	Strand  string // "+", "-", or "" when the source value was unusable
	Frame   string
	Attrs   map[string]string
}

// Attr returns the value of a named attribute, or "" if absent.
func (r *Row) Attr(key string) string {
	return r.Attrs[key]
}

// Table is the normalized output of the loader: every row has every
// observed attribute column (missing values are null), and rows keep the
// file order of the source.
type Table struct {
	// AttributeColumns is the union of attribute keys across all rows,
	// in first-observed order.
	AttributeColumns []string

	Rows []Row

	// DroppedRows counts source rows discarded for malformed coordinates
	// or field counts. Dropping is tolerated, never a hard failure.
	DroppedRows int
}

// Columns returns the full column set: the fixed GTF columns followed by
// the attribute union.
func (t *Table) Columns() []string {
	cols := make([]string, 0, len(FixedColumns)+len(t.AttributeColumns))
	cols = append(cols, FixedColumns...)
	cols = append(cols, t.AttributeColumns...)
	return cols
}

// Features returns the distinct feature types present, in first-observed
// order.
func (t *Table) Features() []string {
	seen := make(map[string]bool)
	var features []string
	for i := range t.Rows {
		f := t.Rows[i].Feature
		if !seen[f] {
			seen[f] = true
			features = append(features, f)
		}
	}
	return features
}

// FeatureRows returns the rows of one feature type, in file order.
func (t *Table) FeatureRows(feature string) []Row {
	var rows []Row
	for i := range t.Rows {
		if t.Rows[i].Feature == feature {
			rows = append(rows, t.Rows[i])
		}
	}
	return rows
}

func (t *Table) hasAttributeColumn(name string) bool {
	for _, c := range t.AttributeColumns {
		if c == name {
			return true
		}
	}
	return false
}

func (t *Table) addAttributeColumn(name string) {
	if !t.hasAttributeColumn(name) {
		t.AttributeColumns = append(t.AttributeColumns, name)
	}
}

// Value returns a row's value for any column name, fixed or attribute.
// The second result reports whether the value is non-null.
func (t *Table) Value(r *Row, column string) (string, bool) {
	switch column {
	case "seqname":
		return r.Seqname, true
	case "source":
		return r.Source, r.Source != ""
	case "feature":
		return r.Feature, true
	case "score":
		return r.Score, r.Score != ""
	case "strand":
		return r.Strand, r.Strand != ""
	case "frame":
		return r.Frame, r.Frame != ""
	}
	v, ok := r.Attrs[column]
	return v, ok
}
