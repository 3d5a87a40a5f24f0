package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/adalundhe/aide/agents/assistant"
	"github.com/adalundhe/aide/core/config"
	"github.com/adalundhe/aide/core/knowledge"
	"github.com/adalundhe/aide/core/providers"
	"github.com/adalundhe/aide/core/resilience"
	"github.com/adalundhe/aide/core/search/hybrid"
	"github.com/adalundhe/aide/core/search/lexical"
	"github.com/adalundhe/aide/core/search/vector"
	"github.com/adalundhe/aide/core/session"
	"github.com/adalundhe/aide/core/storage"
	"github.com/adalundhe/aide/core/tools"
)

// app wires the shared runtime for every command: directories, config,
// the knowledge store, both indexes, and the session store. Commands that
// invoke the model also get an agent.
type app struct {
	dirs      *storage.Dirs
	config    *config.Config
	manager   *config.Manager
	store     *knowledge.Store
	lexical   *lexical.Index
	vector    *vector.Index
	retriever *hybrid.Retriever
	sessions  *session.Store
	logger    *slog.Logger
}

// newApp bootstraps the shared runtime. The lexical index is rebuilt from
// the document store on every start; only the chunks are durable.
func newApp(ctx context.Context) (*app, error) {
	dirs, err := storage.ResolveDirs()
	if err != nil {
		return nil, err
	}
	if err := dirs.EnsureAll(); err != nil {
		return nil, fmt.Errorf("create directories: %w", err)
	}

	logger := newLogger()

	manager := config.NewManager(dirs)
	if err := manager.Load(); err != nil {
		return nil, err
	}
	cfg := manager.Get()

	store, err := knowledge.NewStore(knowledge.StoreConfig{
		Dir: dirs.DataDir("knowledge"),
		Chunker: knowledge.NewChunker(
			cfg.Knowledge.ChunkSize,
			cfg.Knowledge.ChunkOverlap,
		),
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open knowledge store: %w", err)
	}

	lex, err := lexical.NewIndex()
	if err != nil {
		return nil, err
	}
	if err := lex.Rebuild(ctx, store.GetAll()); err != nil {
		return nil, fmt.Errorf("rebuild lexical index: %w", err)
	}
	store.AddIndexer(lex)

	capability := cfg.ResolveRetrievalCapability()

	var vec *vector.Index
	if capability == config.RetrievalHybrid {
		embedder, err := providers.NewEmbedder(ctx, cfg.LLM)
		if err != nil && !errors.Is(err, providers.ErrEmbeddingNotConfigured) {
			return nil, err
		}
		if embedder != nil {
			vec, err = vector.NewIndex(dirs.DataDir("vectors.db"), embedder, logger)
			if err != nil {
				return nil, err
			}
			store.AddIndexer(vec)
		} else {
			capability = config.RetrievalLexicalOnly
		}
	}

	retrieverCfg := hybrid.RetrieverConfig{
		Capability: capability,
		Lexical:    lex,
		Breaker:    resilience.NewBreaker("vector-search", resilience.DefaultBreakerConfig()),
		Logger:     logger,
	}
	if vec != nil {
		retrieverCfg.Vector = vec
	}
	retriever, err := hybrid.NewRetriever(retrieverCfg)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewStore(dirs.Data, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		dirs:      dirs,
		config:    cfg,
		manager:   manager,
		store:     store,
		lexical:   lex,
		vector:    vec,
		retriever: retriever,
		sessions:  sessions,
		logger:    logger,
	}, nil
}

// newAgent builds the agent on top of the shared runtime. Requires valid
// LLM credentials; the error is surfaced verbatim.
func (a *app) newAgent() (*assistant.Agent, *session.TitleGenerator, error) {
	if err := a.config.Validate(); err != nil {
		return nil, nil, err
	}

	provider, err := providers.NewChatProvider(a.config.LLM)
	if err != nil {
		return nil, nil, err
	}

	titles := session.NewTitleGenerator(provider, a.sessions, a.logger)

	imageGen, err := providers.NewImageGenerator(a.config.LLM)
	if err != nil {
		return nil, nil, err
	}

	planner := tools.NewPlanner()
	registry := tools.NewRegistry(
		tools.NewReadFileTool(),
		tools.NewCreatePlanTool(planner),
		tools.NewCompleteStepTool(planner),
		tools.NewSearchKnowledgeTool(a.retriever, a.config.Knowledge.SearchLimit),
		tools.NewRunCodeTool(a.config.Agent.CodeTimeout),
		tools.NewGenerateImageTool(imageGen, a.dirs.StateDir("images")),
		tools.NewSearchLiteratureTool(),
	)

	agent, err := assistant.New(assistant.Config{
		Provider:       provider,
		Retriever:      a.retriever,
		Sessions:       a.sessions,
		Registry:       registry,
		Titles:         titles,
		Logger:         a.logger,
		MaxIterations:  a.config.Agent.MaxIterations,
		RecentMessages: a.config.Agent.RecentMessages,
	})
	if err != nil {
		return nil, nil, err
	}
	return agent, titles, nil
}

// close releases the indexes.
func (a *app) close() {
	if a.vector != nil {
		if err := a.vector.Close(); err != nil {
			a.logger.Warn("close vector index", "error", err)
		}
	}
	if err := a.lexical.Close(); err != nil {
		a.logger.Warn("close lexical index", "error", err)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if os.Getenv("AIDE_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}
