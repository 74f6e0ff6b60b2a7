// Package store persists normalized annotation tables into an indexed
// DuckDB database and answers parameterized feature queries.
package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/annotdb/annotdb/internal/gtf"
)

// SchemaVersion is embedded in every persisted store. Increment it on any
// schema change: a version mismatch on open invalidates the store
// wholesale and forces a rebuild, never a migration.
const SchemaVersion = 1

const (
	metaTable  = "annotdb_meta"
	indexTable = "annotdb_indexes"
)

// candidateIndexGroups are all column groups we may index, derived from
// the equality and locus-range filters the query layer accepts. A table
// only gets the groups whose columns it actually has with non-null values.
var candidateIndexGroups = [][]string{
	{"seqname", "start", "end"},
	{"seqname", "start", "end", "strand"},
	{"gene_name"},
	{"gene_id"},
	{"transcript_id"},
	{"transcript_name"},
	{"exon_id"},
	{"protein_id"},
	{"ccds_id"},
}

// primaryKeyColumns maps feature tables to their unique key. Exon IDs are
// not unique across transcripts, so exon tables have no primary key.
var primaryKeyColumns = map[string]string{
	"gene":       "gene_id",
	"transcript": "transcript_id",
}

// Store owns the durable indexed representation of one annotation source.
type Store struct {
	gtfPath string
	dbPath  string // "" selects an in-memory database
	loader  *gtf.Loader
	logger  *zap.Logger

	db       *sql.DB
	columns  map[string][]string // feature table -> column names
	features []string
	memo     *lru.Cache[string, any]
}

// Option configures a Store.
type Option func(*Store)

// WithDBPath overrides the derived database path. An empty string keeps
// the default; use InMemory for an in-memory store.
func WithDBPath(path string) Option {
	return func(s *Store) { s.dbPath = path }
}

// InMemory builds the store in memory, with no persisted artifact.
// Intended for tests and one-shot runs.
func InMemory() Option {
	return func(s *Store) { s.dbPath = "" }
}

// WithLoader replaces the default loader for the source file.
func WithLoader(l *gtf.Loader) Option {
	return func(s *Store) { s.loader = l }
}

// WithLogger sets the store's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// DBPathFor returns the deterministic database path for a source file:
// the source filename with its .gtf/.gtf.gz extension replaced by .db,
// alongside the source.
func DBPathFor(gtfPath string) string {
	base := strings.TrimSuffix(strings.TrimSuffix(gtfPath, ".gz"), ".gtf")
	return base + ".db"
}

// New creates a store for the given source file. Nothing touches disk
// until Create is called.
func New(gtfPath string, opts ...Option) *Store {
	s := &Store{
		gtfPath: gtfPath,
		dbPath:  DBPathFor(gtfPath),
		logger:  zap.NewNop(),
		columns: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.loader == nil {
		s.loader = gtf.NewLoader(gtfPath)
	}
	s.memo, _ = lru.New[string, any](1024)
	return s
}

// DBPath returns the path of the persisted database file.
func (s *Store) DBPath() string { return s.dbPath }

// Connected reports whether the store has an open database.
func (s *Store) Connected() bool { return s.db != nil }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Create opens the persisted store if one exists for this source at the
// current schema version, otherwise parses the source and builds it.
// With overwrite=true the store is always rebuilt from scratch.
// Returns true when a build happened.
func (s *Store) Create(overwrite bool) (bool, error) {
	if !overwrite {
		ok, err := s.openIfValid()
		if err != nil {
			return false, err
		}
		if ok {
			return false, nil
		}
	}
	if err := s.build(); err != nil {
		return false, err
	}
	return true, nil
}

// openIfValid opens the persisted database when it exists and carries the
// current schema version. A version mismatch deletes the stale file so
// the caller rebuilds; stale-schema reads are never served.
func (s *Store) openIfValid() (bool, error) {
	if s.db != nil {
		return true, nil
	}
	if s.dbPath == "" {
		return false, nil
	}
	if _, err := os.Stat(s.dbPath); err != nil {
		return false, nil
	}

	db, err := sql.Open("duckdb", s.dbPath)
	if err != nil {
		return false, fmt.Errorf("open store %s: %w", s.dbPath, err)
	}

	version, ok := storedSchemaVersion(db)
	if !ok || version != SchemaVersion {
		db.Close()
		s.logger.Info("discarding stale annotation store",
			zap.String("path", s.dbPath),
			zap.Int("found_version", version),
			zap.Int("want_version", SchemaVersion))
		if err := os.Remove(s.dbPath); err != nil {
			return false, fmt.Errorf("remove stale store: %w", err)
		}
		return false, nil
	}

	s.db = db
	if err := s.reflectSchema(); err != nil {
		s.Close()
		return false, err
	}
	return true, nil
}

// storedSchemaVersion reads the embedded schema version. The metadata row
// is written only after every table is complete, so its presence also
// implies the store finished building.
func storedSchemaVersion(db *sql.DB) (int, bool) {
	var version int
	err := db.QueryRow(fmt.Sprintf(
		`SELECT CAST(value AS INTEGER) FROM %s WHERE key = 'schema_version'`,
		metaTable)).Scan(&version)
	if err != nil {
		return 0, false
	}
	return version, true
}

// build parses the source file and materializes the indexed database.
// Persisted stores are built in a uniquely-named temporary file and
// published by rename, so a concurrent reader never sees a partial store.
func (s *Store) build() error {
	s.Close()
	s.memo.Purge()

	s.logger.Info("building annotation store",
		zap.String("source", s.gtfPath),
		zap.String("dest", s.dbPath))
	start := time.Now()

	table, err := s.loader.Load()
	if err != nil {
		return fmt.Errorf("load annotation source: %w", err)
	}

	if s.dbPath == "" {
		db, err := sql.Open("duckdb", "")
		if err != nil {
			return fmt.Errorf("open in-memory store: %w", err)
		}
		if err := s.materialize(db, table); err != nil {
			db.Close()
			return err
		}
		s.db = db
		return s.reflectSchema()
	}

	tmpPath := s.dbPath + ".tmp-" + randomSuffix()
	db, err := sql.Open("duckdb", tmpPath)
	if err != nil {
		return fmt.Errorf("create store %s: %w", tmpPath, err)
	}
	if err := s.materialize(db, table); err != nil {
		db.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close store build: %w", err)
	}
	if err := os.Rename(tmpPath, s.dbPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publish store: %w", err)
	}

	s.db, err = sql.Open("duckdb", s.dbPath)
	if err != nil {
		return fmt.Errorf("open store %s: %w", s.dbPath, err)
	}
	if err := s.reflectSchema(); err != nil {
		return err
	}

	s.logger.Info("annotation store built",
		zap.String("path", s.dbPath),
		zap.Int("rows", len(table.Rows)),
		zap.Strings("features", table.Features()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func randomSuffix() string {
	var b [6]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// materialize writes one table per feature type plus indexes and, last of
// all, the metadata that marks the store complete.
func (s *Store) materialize(db *sql.DB, table *gtf.Table) error {
	columns := table.Columns()
	for _, feature := range table.Features() {
		rows := table.FeatureRows(feature)
		pk, err := validatePrimaryKey(feature, rows)
		if err != nil {
			return err
		}
		if err := createFeatureTable(db, feature, columns, pk); err != nil {
			return err
		}
		if err := insertRows(db, table, feature, columns, rows); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf(
		`CREATE TABLE %s (table_name VARCHAR, index_name VARCHAR, columns VARCHAR)`,
		indexTable)); err != nil {
		return fmt.Errorf("create index manifest: %w", err)
	}
	for _, feature := range table.Features() {
		if err := s.createIndexes(db, feature, columns); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf(
		`CREATE TABLE %s (key VARCHAR PRIMARY KEY, value VARCHAR)`, metaTable)); err != nil {
		return fmt.Errorf("create metadata table: %w", err)
	}
	for key, value := range map[string]string{
		"schema_version": fmt.Sprintf("%d", SchemaVersion),
		"source_path":    s.gtfPath,
		"created_at":     time.Now().UTC().Format(time.RFC3339),
	} {
		if _, err := db.Exec(fmt.Sprintf(
			`INSERT INTO %s (key, value) VALUES (?, ?)`, metaTable), key, value); err != nil {
			return fmt.Errorf("write metadata: %w", err)
		}
	}
	return nil
}

// validatePrimaryKey checks uniqueness and non-nullness of a feature's
// key column before we declare it, so a bad source file fails with a
// clear error rather than a constraint violation mid-insert.
func validatePrimaryKey(feature string, rows []gtf.Row) (string, error) {
	pk, ok := primaryKeyColumns[feature]
	if !ok {
		return "", nil
	}
	seen := make(map[string]bool, len(rows))
	for i := range rows {
		id := rows[i].Attr(pk)
		if id == "" {
			return "", fmt.Errorf(
				"column %q can't be primary key of table %q: contains null values",
				pk, feature)
		}
		if seen[id] {
			return "", fmt.Errorf(
				"column %q can't be primary key of table %q: repeated value %q",
				pk, feature, id)
		}
		seen[id] = true
	}
	return pk, nil
}

func createFeatureTable(db *sql.DB, feature string, columns []string, primaryKey string) error {
	defs := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		sqlType := "VARCHAR"
		if col == "start" || col == "end" {
			sqlType = "BIGINT"
		}
		defs = append(defs, fmt.Sprintf("%s %s", quoteIdent(col), sqlType))
	}
	if primaryKey != "" {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", quoteIdent(primaryKey)))
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(feature), strings.Join(defs, ", "))
	if _, err := db.Exec(stmt); err != nil {
		return fmt.Errorf("create table for feature %q: %w", feature, err)
	}
	return nil
}

func insertRows(db *sql.DB, table *gtf.Table, feature string, columns []string, rows []gtf.Row) error {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
		placeholders[i] = "?"
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(feature), strings.Join(quoted, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert for feature %q: %w", feature, err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for i := range rows {
		r := &rows[i]
		for j, col := range columns {
			switch col {
			case "start":
				args[j] = r.Start
			case "end":
				args[j] = r.End
			default:
				if v, ok := table.Value(r, col); ok {
					args[j] = v
				} else {
					args[j] = nil
				}
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert %s row: %w", feature, err)
		}
	}
	return tx.Commit()
}

// createIndexes builds every applicable candidate index group over a
// feature table and records it in the index manifest.
func (s *Store) createIndexes(db *sql.DB, feature string, columns []string) error {
	columnSet := make(map[string]bool, len(columns))
	for _, c := range columns {
		columnSet[c] = true
	}
	pk := primaryKeyColumns[feature]

	for _, group := range candidateIndexGroups {
		applicable := true
		for _, col := range group {
			// some columns, like exon_id, are missing from older releases
			if !columnSet[col] {
				applicable = false
				break
			}
		}
		if !applicable {
			continue
		}
		if len(group) == 1 && group[0] == pk {
			continue
		}
		nonNull, err := countRowsWithValues(db, feature, group)
		if err != nil {
			return err
		}
		if nonNull == 0 {
			continue
		}

		name := fmt.Sprintf("idx_%s_%s", feature, strings.Join(group, "_"))
		quoted := make([]string, len(group))
		for i, col := range group {
			quoted[i] = quoteIdent(col)
		}
		if _, err := db.Exec(fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
			quoteIdent(name), quoteIdent(feature), strings.Join(quoted, ", "))); err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}
		if _, err := db.Exec(fmt.Sprintf(
			`INSERT INTO %s (table_name, index_name, columns) VALUES (?, ?, ?)`,
			indexTable), feature, name, strings.Join(group, ",")); err != nil {
			return fmt.Errorf("record index %s: %w", name, err)
		}
	}
	return nil
}

func countRowsWithValues(db *sql.DB, feature string, group []string) (int, error) {
	conds := make([]string, len(group))
	for i, col := range group {
		conds[i] = quoteIdent(col) + " IS NOT NULL"
	}
	var count int
	err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s",
		quoteIdent(feature), strings.Join(conds, " AND "))).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count non-null rows for %s: %w", feature, err)
	}
	return count, nil
}

// reflectSchema loads the feature table list and per-table columns from
// the open database.
func (s *Store) reflectSchema() error {
	rows, err := s.db.Query(`
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_schema = 'main'
		ORDER BY table_name, ordinal_position
	`)
	if err != nil {
		return fmt.Errorf("reflect schema: %w", err)
	}
	defer rows.Close()

	s.columns = make(map[string][]string)
	s.features = nil
	for rows.Next() {
		var tableName, columnName string
		if err := rows.Scan(&tableName, &columnName); err != nil {
			return fmt.Errorf("reflect schema: %w", err)
		}
		if tableName == metaTable || tableName == indexTable {
			continue
		}
		if _, ok := s.columns[tableName]; !ok {
			s.features = append(s.features, tableName)
		}
		s.columns[tableName] = append(s.columns[tableName], columnName)
	}
	return rows.Err()
}

// Features returns the feature types the store has tables for.
func (s *Store) Features() []string {
	return append([]string(nil), s.features...)
}

// Columns returns the column names of a feature table.
func (s *Store) Columns(feature string) ([]string, error) {
	cols, ok := s.columns[feature]
	if !ok {
		return nil, &SchemaMismatchError{Feature: feature, Valid: s.Features()}
	}
	return append([]string(nil), cols...), nil
}

// ColumnExists reports whether a feature table has the named column.
func (s *Store) ColumnExists(feature, column string) bool {
	for _, c := range s.columns[feature] {
		if c == column {
			return true
		}
	}
	return false
}

// checkColumns validates feature and column names before any SQL is built,
// so caller errors surface as typed schema mismatches rather than engine
// errors.
func (s *Store) checkColumns(feature string, columnNames ...string) error {
	cols, ok := s.columns[feature]
	if !ok {
		return &SchemaMismatchError{Feature: feature, Valid: s.Features()}
	}
	for _, want := range columnNames {
		if want == "" {
			return fmt.Errorf("empty column name in query against %q", feature)
		}
		found := false
		for _, c := range cols {
			if c == want {
				found = true
				break
			}
		}
		if !found {
			return &SchemaMismatchError{Feature: feature, Column: want, Valid: cols}
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
