// Package genome is the user-facing entry point of annotdb: a Genome
// ties one annotation release's cached files, indexed store and sequence
// data together behind typed Gene/Transcript/Exon accessors.
package genome

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/annotdb/annotdb/internal/cache"
	"github.com/annotdb/annotdb/internal/fasta"
	"github.com/annotdb/annotdb/internal/store"
)

// Genome is one annotation release: a GTF source plus optional sequence
// FASTA sources, resolved through a shared download cache and queried
// through an indexed store. A Genome is cheap to construct; nothing is
// downloaded, parsed or indexed until an accessor needs it.
type Genome struct {
	referenceName     string
	annotationName    string
	annotationVersion string

	gtfSource         string
	transcriptSources []string
	proteinSources    []string

	cacheOpts     []cache.Option
	cache         *cache.Cache
	logger        *zap.Logger
	inMemoryIndex bool

	store          *store.Store
	transcriptSeqs []*fasta.Index
	proteinSeqs    []*fasta.Index

	genes       map[string]*Gene
	transcripts map[string]*Transcript
	exons       map[string]*Exon
}

// Option configures a Genome.
type Option func(*Genome)

// WithTranscriptFasta adds cDNA sequence sources (paths or URLs).
func WithTranscriptFasta(pathsOrURLs ...string) Option {
	return func(g *Genome) {
		g.transcriptSources = append(g.transcriptSources, pathsOrURLs...)
	}
}

// WithProteinFasta adds peptide sequence sources (paths or URLs).
func WithProteinFasta(pathsOrURLs ...string) Option {
	return func(g *Genome) {
		g.proteinSources = append(g.proteinSources, pathsOrURLs...)
	}
}

// WithLogger sets the logger shared by the cache, loader and store.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Genome) { g.logger = logger }
}

// WithCacheRoot overrides the download cache root directory.
func WithCacheRoot(root string) Option {
	return func(g *Genome) {
		g.cacheOpts = append(g.cacheOpts, cache.WithRoot(root))
	}
}

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Genome) {
		g.cacheOpts = append(g.cacheOpts, cache.WithHTTPClient(client))
	}
}

// CopyLocalToCache makes local source files get copied into the cache
// directory instead of being used in place.
func CopyLocalToCache(enabled bool) Option {
	return func(g *Genome) {
		g.cacheOpts = append(g.cacheOpts, cache.CopyLocalToCache(enabled))
	}
}

// InMemoryIndex builds the annotation index in memory instead of
// persisting a database file. Intended for tests and one-shot runs.
func InMemoryIndex() Option {
	return func(g *Genome) { g.inMemoryIndex = true }
}

// New creates a Genome for one annotation release. The three name fields
// determine the cache directory, so two Genomes with the same names share
// downloaded files and the same index.
func New(referenceName, annotationName, annotationVersion, gtfSource string, opts ...Option) *Genome {
	g := &Genome{
		referenceName:     referenceName,
		annotationName:    annotationName,
		annotationVersion: annotationVersion,
		gtfSource:         gtfSource,
		logger:            zap.NewNop(),
		genes:             make(map[string]*Gene),
		transcripts:       make(map[string]*Transcript),
		exons:             make(map[string]*Exon),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.cache = cache.New(referenceName, annotationName, annotationVersion,
		append([]cache.Option{cache.WithLogger(g.logger)}, g.cacheOpts...)...)
	return g
}

// ReferenceName returns the reference assembly name.
func (g *Genome) ReferenceName() string { return g.referenceName }

// AnnotationName returns the annotation source name.
func (g *Genome) AnnotationName() string { return g.annotationName }

// AnnotationVersion returns the annotation release version.
func (g *Genome) AnnotationVersion() string { return g.annotationVersion }

func (g *Genome) String() string {
	return fmt.Sprintf("Genome(reference=%s, annotation=%s/%s)",
		g.referenceName, g.annotationName, g.annotationVersion)
}

// Dir returns the cache directory holding this release's files.
func (g *Genome) Dir() string { return g.cache.Dir() }

// GTFPath resolves the annotation source to a local file path, downloading
// it when allowed.
func (g *Genome) GTFPath(downloadIfMissing, overwrite bool) (string, error) {
	return g.cache.Resolve(g.gtfSource, downloadIfMissing, overwrite)
}

func (g *Genome) allSources() []string {
	sources := []string{g.gtfSource}
	sources = append(sources, g.transcriptSources...)
	sources = append(sources, g.proteinSources...)
	return sources
}

// Download fetches every configured source file into the cache. Files
// already present are kept unless overwrite is set. Sources download
// concurrently; the first failure cancels nothing already in flight but
// is the error returned.
func (g *Genome) Download(overwrite bool) error {
	var eg errgroup.Group
	eg.SetLimit(4)
	for _, source := range g.allSources() {
		source := source
		eg.Go(func() error {
			_, err := g.cache.Resolve(source, true, overwrite)
			return err
		})
	}
	return eg.Wait()
}

// Index parses the downloaded annotation source and builds the persisted
// query index. The source must already be local; call Download or Install
// first for remote sources.
func (g *Genome) Index(overwrite bool) error {
	gtfPath, err := g.GTFPath(false, false)
	if err != nil {
		return err
	}
	st := g.newStore(gtfPath)
	built, err := st.Create(overwrite)
	if err != nil {
		return err
	}
	if built {
		g.ClearCache()
	}
	g.store = st
	return nil
}

// Install downloads all source files and builds the index: the one call
// needed before a fresh release is queryable.
func (g *Genome) Install(overwrite bool) error {
	if err := g.Download(overwrite); err != nil {
		return err
	}
	return g.Index(overwrite)
}

func (g *Genome) newStore(gtfPath string) *store.Store {
	opts := []store.Option{store.WithLogger(g.logger)}
	if g.inMemoryIndex {
		opts = append(opts, store.InMemory())
	}
	return store.New(gtfPath, opts...)
}

// ensureStore returns the open annotation store, lazily opening or
// building it from an already-local source file. A missing remote source
// surfaces as a typed error naming the release to install.
func (g *Genome) ensureStore() (*store.Store, error) {
	if g.store != nil && g.store.Connected() {
		return g.store, nil
	}
	gtfPath, err := g.GTFPath(false, false)
	if err != nil {
		return nil, err
	}
	if g.store == nil {
		g.store = g.newStore(gtfPath)
	}
	if _, err := g.store.Create(false); err != nil {
		return nil, err
	}
	return g.store, nil
}

// TranscriptSequence returns the cDNA sequence for a transcript ID from
// the configured transcript FASTA sources.
func (g *Genome) TranscriptSequence(transcriptID string) (string, error) {
	indexes, err := g.ensureSequences(&g.transcriptSeqs, g.transcriptSources, "transcript")
	if err != nil {
		return "", err
	}
	return lookupSequence(indexes, transcriptID, "transcript")
}

// ProteinSequence returns the peptide sequence for a protein ID from the
// configured protein FASTA sources.
func (g *Genome) ProteinSequence(proteinID string) (string, error) {
	indexes, err := g.ensureSequences(&g.proteinSeqs, g.proteinSources, "protein")
	if err != nil {
		return "", err
	}
	return lookupSequence(indexes, proteinID, "protein")
}

func (g *Genome) ensureSequences(loaded *[]*fasta.Index, sources []string, kind string) ([]*fasta.Index, error) {
	if *loaded != nil {
		return *loaded, nil
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("genome %s/%s has no %s sequence sources configured",
			g.annotationName, g.annotationVersion, kind)
	}
	indexes := make([]*fasta.Index, 0, len(sources))
	for _, source := range sources {
		path, err := g.cache.Resolve(source, false, false)
		if err != nil {
			return nil, err
		}
		idx, err := fasta.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load %s sequences from %s: %w", kind, path, err)
		}
		indexes = append(indexes, idx)
	}
	*loaded = indexes
	return indexes, nil
}

func lookupSequence(indexes []*fasta.Index, id, kind string) (string, error) {
	for _, idx := range indexes {
		if seq, ok := idx.Get(id); ok {
			return seq, nil
		}
	}
	return "", fmt.Errorf("no %s sequence for ID %q", kind, id)
}

// ClearCache drops every in-memory entity and sequence cache. Disk
// artifacts are untouched; use DeleteIndexFiles or DeleteCacheDirectory
// for those.
func (g *Genome) ClearCache() {
	g.genes = make(map[string]*Gene)
	g.transcripts = make(map[string]*Transcript)
	g.exons = make(map[string]*Exon)
	g.transcriptSeqs = nil
	g.proteinSeqs = nil
}

// DeleteIndexFiles removes the persisted query index. The downloaded
// source files stay cached; the next query rebuilds the index from them.
func (g *Genome) DeleteIndexFiles() error {
	if err := g.Close(); err != nil {
		return err
	}
	return g.cache.DeleteCachedFiles(nil, []string{".db"})
}

// DeleteCachedFiles removes cached files matching any of the given name
// prefixes or suffixes.
func (g *Genome) DeleteCachedFiles(prefixes, suffixes []string) error {
	return g.cache.DeleteCachedFiles(prefixes, suffixes)
}

// DeleteCacheDirectory removes this release's whole cache directory,
// downloads and index both.
func (g *Genome) DeleteCacheDirectory() error {
	if err := g.Close(); err != nil {
		return err
	}
	return g.cache.DeleteCacheDirectory()
}

// Close releases the store's database handle. The Genome stays usable;
// the next query reopens it.
func (g *Genome) Close() error {
	if g.store == nil {
		return nil
	}
	return g.store.Close()
}
