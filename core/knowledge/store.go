package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrChunkNotFound indicates the chunk ID is not present in any layer.
	ErrChunkNotFound = errors.New("chunk not found")

	// ErrInvalidLayer indicates an unknown layer name.
	ErrInvalidLayer = errors.New("invalid knowledge layer")

	// ErrEmptyText indicates an ingest with no content.
	ErrEmptyText = errors.New("text must not be empty")
)

// Indexer receives chunk mutations as side effects of store operations.
// The lexical index and the vector index both implement it.
type Indexer interface {
	Name() string
	IndexChunk(ctx context.Context, chunk Chunk) error
	RemoveChunk(ctx context.Context, id string) error
}

// AddMetadata describes the source of an ingested document.
type AddMetadata struct {
	Source string
	Type   string
	Tags   []string
	Layer  Layer

	// CreatedAt is inherited when non-zero, stamped with now otherwise.
	CreatedAt time.Time
}

// ChunkPatch carries the updatable fields of a chunk. Nil fields are left
// untouched.
type ChunkPatch struct {
	Text *string
	Tags []string
}

// StoreConfig configures the document store.
type StoreConfig struct {
	Dir     string
	Chunker *Chunker
	Logger  *slog.Logger
}

// Store is the layered document store. Each layer is held in memory and
// serialized wholesale to <dir>/<layer>.json on every mutation; the layer
// file is the unit of durability.
type Store struct {
	dir     string
	chunker *Chunker
	logger  *slog.Logger

	mu     map[Layer]*sync.Mutex
	layers map[Layer][]Chunk

	idLock sync.RWMutex
	byID   map[string]Layer

	indexers []Indexer
}

func (s *Store) layerOf(id string) (Layer, bool) {
	s.idLock.RLock()
	defer s.idLock.RUnlock()
	layer, ok := s.byID[id]
	return layer, ok
}

func (s *Store) trackID(id string, layer Layer) {
	s.idLock.Lock()
	s.byID[id] = layer
	s.idLock.Unlock()
}

func (s *Store) untrackID(id string) {
	s.idLock.Lock()
	delete(s.byID, id)
	s.idLock.Unlock()
}

// NewStore opens the store, loading any existing layer files from disk.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Chunker == nil {
		cfg.Chunker = NewChunker(DefaultWindowSize, DefaultOverlap)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("create knowledge dir: %w", err)
	}

	s := &Store{
		dir:     cfg.Dir,
		chunker: cfg.Chunker,
		logger:  cfg.Logger,
		mu:      make(map[Layer]*sync.Mutex),
		layers:  make(map[Layer][]Chunk),
		byID:    make(map[string]Layer),
	}

	for _, layer := range Layers() {
		s.mu[layer] = &sync.Mutex{}
		chunks, err := s.loadLayer(layer)
		if err != nil {
			return nil, fmt.Errorf("load layer %s: %w", layer, err)
		}
		s.layers[layer] = chunks
		for _, c := range chunks {
			s.byID[c.ID] = layer
		}
	}

	return s, nil
}

// AddIndexer registers a mutation hook. The lexical index is registered
// unconditionally; the vector index only when an embedding model is
// configured. Indexer failures never fail the mutation itself: the layer
// file is the unit of durability and indexes rebuild from it.
func (s *Store) AddIndexer(ix Indexer) {
	s.indexers = append(s.indexers, ix)
}

// Chunker returns the chunker the store splits documents with.
func (s *Store) Chunker() *Chunker { return s.chunker }

// Add splits text into overlapping chunks, appends them to the layer, and
// rewrites the layer file. Returns the number of chunks created.
func (s *Store) Add(ctx context.Context, text string, meta AddMetadata) (int, error) {
	if text == "" {
		return 0, ErrEmptyText
	}
	layer := meta.Layer
	if layer == "" {
		layer = LayerCore
	}
	if !layer.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLayer, layer)
	}

	createdAt := meta.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	spans := s.chunker.Split(text)
	chunks := make([]Chunk, 0, len(spans))
	for _, span := range spans {
		chunks = append(chunks, Chunk{
			ID:   uuid.NewString(),
			Text: span.Text,
			Metadata: Metadata{
				Source:    meta.Source,
				Type:      meta.Type,
				Tags:      meta.Tags,
				CreatedAt: createdAt,
				UpdatedAt: createdAt,
				Layer:     layer,
			},
		})
	}

	s.mu[layer].Lock()
	defer s.mu[layer].Unlock()

	before := s.layers[layer]
	s.layers[layer] = append(append([]Chunk{}, before...), chunks...)

	if err := s.persistLayer(layer); err != nil {
		s.layers[layer] = before
		return 0, fmt.Errorf("persist layer %s: %w", layer, err)
	}

	for _, c := range chunks {
		s.trackID(c.ID, layer)
		s.notifyIndex(ctx, c)
	}

	return len(chunks), nil
}

// Update patches a chunk in place and rewrites its layer file.
func (s *Store) Update(ctx context.Context, id string, patch ChunkPatch) error {
	layer, ok := s.layerOf(id)
	if !ok {
		return ErrChunkNotFound
	}

	s.mu[layer].Lock()
	defer s.mu[layer].Unlock()

	before := s.layers[layer]
	updated := append([]Chunk{}, before...)

	var changed *Chunk
	for i := range updated {
		if updated[i].ID != id {
			continue
		}
		if patch.Text != nil {
			if *patch.Text == "" {
				return ErrEmptyText
			}
			updated[i].Text = *patch.Text
		}
		if patch.Tags != nil {
			updated[i].Metadata.Tags = patch.Tags
		}
		updated[i].Metadata.UpdatedAt = time.Now()
		changed = &updated[i]
		break
	}
	if changed == nil {
		return ErrChunkNotFound
	}

	s.layers[layer] = updated
	if err := s.persistLayer(layer); err != nil {
		s.layers[layer] = before
		return fmt.Errorf("persist layer %s: %w", layer, err)
	}

	s.notifyIndex(ctx, *changed)
	return nil
}

// Delete removes a chunk. Returns false when the ID is unknown.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	layer, ok := s.layerOf(id)
	if !ok {
		return false, nil
	}

	s.mu[layer].Lock()
	defer s.mu[layer].Unlock()

	before := s.layers[layer]
	remaining := make([]Chunk, 0, len(before))
	found := false
	for _, c := range before {
		if c.ID == id {
			found = true
			continue
		}
		remaining = append(remaining, c)
	}
	if !found {
		return false, nil
	}

	s.layers[layer] = remaining
	if err := s.persistLayer(layer); err != nil {
		s.layers[layer] = before
		return false, fmt.Errorf("persist layer %s: %w", layer, err)
	}

	s.untrackID(id)
	s.notifyRemove(ctx, id)
	return true, nil
}

// DeleteBySource removes every chunk whose metadata source matches. Used by
// the folder watcher when a file changes or disappears: old chunks for the
// source are discarded wholesale before re-ingest.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	total := 0
	for _, layer := range Layers() {
		s.mu[layer].Lock()

		before := s.layers[layer]
		var removed []string
		remaining := make([]Chunk, 0, len(before))
		for _, c := range before {
			if c.Metadata.Source == source {
				removed = append(removed, c.ID)
				continue
			}
			remaining = append(remaining, c)
		}

		if len(removed) == 0 {
			s.mu[layer].Unlock()
			continue
		}

		s.layers[layer] = remaining
		if err := s.persistLayer(layer); err != nil {
			s.layers[layer] = before
			s.mu[layer].Unlock()
			return total, fmt.Errorf("persist layer %s: %w", layer, err)
		}
		s.mu[layer].Unlock()

		for _, id := range removed {
			s.untrackID(id)
			s.notifyRemove(ctx, id)
		}
		total += len(removed)
	}
	return total, nil
}

// GetByLayer returns a copy of the chunks in one layer.
func (s *Store) GetByLayer(layer Layer) []Chunk {
	mu, ok := s.mu[layer]
	if !ok {
		return nil
	}
	mu.Lock()
	defer mu.Unlock()
	return append([]Chunk{}, s.layers[layer]...)
}

// GetAll returns every chunk across layers, in layer priority order.
func (s *Store) GetAll() []Chunk {
	var all []Chunk
	for _, layer := range Layers() {
		all = append(all, s.GetByLayer(layer)...)
	}
	return all
}

// Get returns a single chunk by ID.
func (s *Store) Get(id string) (Chunk, error) {
	layer, ok := s.layerOf(id)
	if !ok {
		return Chunk{}, ErrChunkNotFound
	}
	s.mu[layer].Lock()
	defer s.mu[layer].Unlock()
	for _, c := range s.layers[layer] {
		if c.ID == id {
			return c, nil
		}
	}
	return Chunk{}, ErrChunkNotFound
}

// Clear purges the given layers, or every layer when none are named.
func (s *Store) Clear(ctx context.Context, layers ...Layer) error {
	if len(layers) == 0 {
		layers = Layers()
	}
	for _, layer := range layers {
		if !layer.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidLayer, layer)
		}

		s.mu[layer].Lock()
		before := s.layers[layer]
		s.layers[layer] = nil
		if err := s.persistLayer(layer); err != nil {
			s.layers[layer] = before
			s.mu[layer].Unlock()
			return fmt.Errorf("persist layer %s: %w", layer, err)
		}
		s.mu[layer].Unlock()

		for _, c := range before {
			s.untrackID(c.ID)
			s.notifyRemove(ctx, c.ID)
		}
	}
	return nil
}

// notifyIndex fans a chunk out to registered indexers. Index failures are
// degradation, not mutation failure: the chunk is durable on disk and the
// lexical index rebuilds from it at next start.
func (s *Store) notifyIndex(ctx context.Context, chunk Chunk) {
	for _, ix := range s.indexers {
		if err := ix.IndexChunk(ctx, chunk); err != nil {
			s.logger.Warn("indexer failed, continuing",
				"indexer", ix.Name(),
				"chunk", chunk.ID,
				"error", err)
		}
	}
}

func (s *Store) notifyRemove(ctx context.Context, id string) {
	for _, ix := range s.indexers {
		if err := ix.RemoveChunk(ctx, id); err != nil {
			s.logger.Warn("indexer remove failed, continuing",
				"indexer", ix.Name(),
				"chunk", id,
				"error", err)
		}
	}
}

func (s *Store) layerPath(layer Layer) string {
	return filepath.Join(s.dir, string(layer)+".json")
}

func (s *Store) loadLayer(layer Layer) ([]Chunk, error) {
	data, err := os.ReadFile(s.layerPath(layer))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.layerPath(layer), err)
	}
	return chunks, nil
}

// persistLayer serializes the whole layer and renames it into place so a
// crash mid-write never leaves a truncated layer file.
func (s *Store) persistLayer(layer Layer) error {
	chunks := s.layers[layer]
	if chunks == nil {
		chunks = []Chunk{}
	}

	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.layerPath(layer) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.layerPath(layer))
}
