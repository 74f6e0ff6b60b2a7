package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/annotdb/annotdb/internal/locus"
)

// ErrNotCreated is returned by queries against a store that has not been
// created or opened yet.
var ErrNotCreated = fmt.Errorf("annotation store not created; call Create first")

// memoKey builds a cache key from a query's full parameter tuple.
func memoKey(parts ...any) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = fmt.Sprint(p)
	}
	return strings.Join(strs, "\x1f")
}

// Query runs an equality filter on one column, projecting the selected
// columns. With required=true, zero matching rows is a FeatureNotFound
// error; otherwise an empty result. This single primitive underlies every
// "X of Y" accessor in the façade.
func (s *Store) Query(selectColumns []string, filterColumn, filterValue, feature string, distinct, required bool) ([][]any, error) {
	if s.db == nil {
		return nil, ErrNotCreated
	}
	if err := s.checkColumns(feature, append([]string{filterColumn}, selectColumns...)...); err != nil {
		return nil, err
	}

	key := memoKey("query", selectColumns, filterColumn, filterValue, feature, distinct, required)
	if cached, ok := s.memo.Get(key); ok {
		return cached.([][]any), nil
	}

	quoted := make([]string, len(selectColumns))
	for i, col := range selectColumns {
		quoted[i] = quoteIdent(col)
	}
	distinctKeyword := ""
	if distinct {
		distinctKeyword = "DISTINCT "
	}
	stmt := fmt.Sprintf("SELECT %s%s FROM %s WHERE %s = ?",
		distinctKeyword, strings.Join(quoted, ", "), quoteIdent(feature), quoteIdent(filterColumn))

	results, err := s.fetchAll(stmt, filterValue)
	if err != nil {
		return nil, err
	}
	if required && len(results) == 0 {
		return nil, &FeatureNotFoundError{
			Feature:      feature,
			FilterColumn: filterColumn,
			FilterValue:  filterValue,
		}
	}
	s.memo.Add(key, results)
	return results, nil
}

// QueryOne runs Query and expects at most one row. With required=false a
// missing row returns nil; multiple rows are always an error.
func (s *Store) QueryOne(selectColumns []string, filterColumn, filterValue, feature string, distinct, required bool) ([]any, error) {
	results, err := s.Query(selectColumns, filterColumn, filterValue, feature, distinct, required)
	if err != nil {
		return nil, err
	}
	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	}
	return nil, fmt.Errorf("found %d entries in %s with %s = %q, expected one",
		len(results), feature, filterColumn, filterValue)
}

// QueryFeatureValues projects one column of a feature table, optionally
// narrowed to a contig and strand. Null values are skipped. Backs every
// "all X" listing accessor.
func (s *Store) QueryFeatureValues(column, feature string, distinct bool, contig, strand string) ([]string, error) {
	if s.db == nil {
		return nil, ErrNotCreated
	}
	if err := s.checkColumns(feature, column); err != nil {
		return nil, err
	}
	if contig != "" {
		norm, err := locus.NormalizeContig(contig)
		if err != nil {
			return nil, err
		}
		contig = norm
	}
	if strand != "" {
		norm, err := locus.NormalizeStrand(strand)
		if err != nil {
			return nil, err
		}
		strand = norm
	}

	key := memoKey("feature_values", column, feature, distinct, contig, strand)
	if cached, ok := s.memo.Get(key); ok {
		return cached.([]string), nil
	}

	distinctKeyword := ""
	if distinct {
		distinctKeyword = "DISTINCT "
	}
	stmt := fmt.Sprintf("SELECT %s%s FROM %s WHERE %s IS NOT NULL",
		distinctKeyword, quoteIdent(column), quoteIdent(feature), quoteIdent(column))
	var args []any
	if contig != "" {
		stmt += ` AND "seqname" = ?`
		args = append(args, contig)
	}
	if strand != "" {
		stmt += ` AND "strand" = ?`
		args = append(args, strand)
	}

	values, err := s.fetchColumn(stmt, args...)
	if err != nil {
		return nil, err
	}
	s.memo.Add(key, values)
	return values, nil
}

// ColumnValuesAtLocus returns the non-null values of a column for rows of
// the given feature type whose [start, end] interval overlaps the query
// interval, inclusive on both ends. end=0 means a single-position query at
// position; an empty strand matches either strand. Sorting, when
// requested, is ascending by row start coordinate, not by value.
func (s *Store) ColumnValuesAtLocus(column, feature, contig string, position, end int64, strand string, distinct, sorted bool) ([]string, error) {
	if s.db == nil {
		return nil, ErrNotCreated
	}
	if err := s.checkColumns(feature, column); err != nil {
		return nil, err
	}
	normContig, err := locus.NormalizeContig(contig)
	if err != nil {
		return nil, err
	}
	if end == 0 {
		end = position
	}
	if strand != "" {
		norm, err := locus.NormalizeStrand(strand)
		if err != nil {
			return nil, err
		}
		strand = norm
	}

	key := memoKey("at_locus", column, feature, normContig, position, end, strand, distinct, sorted)
	if cached, ok := s.memo.Get(key); ok {
		return cached.([]string), nil
	}

	where := fmt.Sprintf(`WHERE "seqname" = ? AND "start" <= ? AND "end" >= ? AND %s IS NOT NULL`,
		quoteIdent(column))
	args := []any{normContig, end, position}
	if strand != "" {
		where += ` AND "strand" = ?`
		args = append(args, strand)
	}

	col := quoteIdent(column)
	table := quoteIdent(feature)
	var stmt string
	switch {
	case distinct && sorted:
		stmt = fmt.Sprintf(`SELECT %s FROM %s %s GROUP BY %s ORDER BY MIN("start")`,
			col, table, where, col)
	case distinct:
		stmt = fmt.Sprintf(`SELECT DISTINCT %s FROM %s %s`, col, table, where)
	case sorted:
		stmt = fmt.Sprintf(`SELECT %s FROM %s %s ORDER BY "start"`, col, table, where)
	default:
		stmt = fmt.Sprintf(`SELECT %s FROM %s %s`, col, table, where)
	}

	values, err := s.fetchColumn(stmt, args...)
	if err != nil {
		return nil, err
	}
	s.memo.Add(key, values)
	return values, nil
}

// DistinctColumnValuesAtLocus is ColumnValuesAtLocus with deduplication
// and coordinate ordering, the form every *_at_locus façade accessor uses.
func (s *Store) DistinctColumnValuesAtLocus(column, feature, contig string, position, end int64, strand string) ([]string, error) {
	return s.ColumnValuesAtLocus(column, feature, contig, position, end, strand, true, true)
}

// QueryLoci returns the loci of all rows satisfying an equality filter.
// Zero matches is a FeatureNotFound error.
func (s *Store) QueryLoci(filterColumn, filterValue, feature string) ([]locus.Locus, error) {
	key := memoKey("loci", filterColumn, filterValue, feature)
	if cached, ok := s.memo.Get(key); ok {
		return cached.([]locus.Locus), nil
	}

	results, err := s.Query(
		[]string{"seqname", "start", "end", "strand"},
		filterColumn, filterValue, feature, true, true)
	if err != nil {
		return nil, err
	}
	loci := make([]locus.Locus, 0, len(results))
	for _, row := range results {
		contig, _ := row[0].(string)
		strand, _ := row[3].(string)
		l, err := locus.New(contig, asInt64(row[1]), asInt64(row[2]), strand)
		if err != nil {
			return nil, fmt.Errorf("invalid stored locus for %s=%q: %w",
				filterColumn, filterValue, err)
		}
		loci = append(loci, l)
	}
	s.memo.Add(key, loci)
	return loci, nil
}

// QueryLocus returns the unique locus satisfying a filter; missing or
// ambiguous results are errors.
func (s *Store) QueryLocus(filterColumn, filterValue, feature string) (locus.Locus, error) {
	loci, err := s.QueryLoci(filterColumn, filterValue, feature)
	if err != nil {
		return locus.Locus{}, err
	}
	if len(loci) > 1 {
		return locus.Locus{}, fmt.Errorf("found %d loci for %s with %s = %q, expected one",
			len(loci), feature, filterColumn, filterValue)
	}
	return loci[0], nil
}

func (s *Store) fetchAll(stmt string, args ...any) ([][]any, error) {
	rows, err := s.db.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", stmt, err)
	}
	defer rows.Close()

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results [][]any
	for rows.Next() {
		values := make([]any, len(columnNames))
		scanTargets := make([]any, len(columnNames))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, err
		}
		results = append(results, values)
	}
	return results, rows.Err()
}

func (s *Store) fetchColumn(stmt string, args ...any) ([]string, error) {
	rows, err := s.db.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", stmt, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value sql.NullString
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		if value.Valid {
			values = append(values, value.String)
		}
	}
	return values, rows.Err()
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
