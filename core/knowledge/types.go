// Package knowledge implements the tiered document store backing retrieval.
// Text is chunked with a fixed sliding window and persisted per layer as a
// flat JSON array rewritten wholesale on every mutation.
package knowledge

import (
	"time"
)

// Layer is a namespace partition over stored chunks. Layers persist and
// query independently.
type Layer string

const (
	// LayerCore holds user-ingested documents (uploads, watched folders).
	LayerCore Layer = "core"

	// LayerConversation holds promoted conversation summaries.
	LayerConversation Layer = "conversation"

	// LayerGenerated holds assistant-generated content.
	LayerGenerated Layer = "generated"
)

// Layers lists every layer in priority order (highest first). Cross-layer
// merges break score ties in this order.
func Layers() []Layer {
	return []Layer{LayerCore, LayerGenerated, LayerConversation}
}

// Priority returns the tie-break rank for cross-layer merges. Higher wins.
func (l Layer) Priority() int {
	switch l {
	case LayerCore:
		return 3
	case LayerGenerated:
		return 2
	case LayerConversation:
		return 1
	default:
		return 0
	}
}

// Valid reports whether l names a known layer.
func (l Layer) Valid() bool {
	return l == LayerCore || l == LayerConversation || l == LayerGenerated
}

// Metadata describes where a chunk came from.
type Metadata struct {
	Source    string    `json:"source"`
	Type      string    `json:"type"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Layer     Layer     `json:"layer"`
}

// Chunk is the stored retrieval unit: a bounded span of a source document.
// The embedding is not persisted in the layer file; the vector index owns it.
type Chunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Metadata  Metadata  `json:"metadata"`
	Embedding []float32 `json:"-"`
}
