package config

// RetrievalCapability describes which retrieval paths are available for a
// session. It is resolved once from configuration and injected into the
// retriever rather than re-derived at each call site.
type RetrievalCapability int

const (
	// RetrievalLexicalOnly means keyword search only; no embedding model.
	RetrievalLexicalOnly RetrievalCapability = iota

	// RetrievalHybrid means vector and keyword search are both available.
	RetrievalHybrid
)

func (c RetrievalCapability) String() string {
	if c == RetrievalHybrid {
		return "hybrid"
	}
	return "lexical_only"
}

// ResolveRetrievalCapability computes the session capability. The presence
// of an embedding model is the sole switch.
func (c *Config) ResolveRetrievalCapability() RetrievalCapability {
	if c.LLM.EmbeddingModel != "" {
		return RetrievalHybrid
	}
	return RetrievalLexicalOnly
}
