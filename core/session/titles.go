package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/adalundhe/aide/core/providers"
)

const (
	titlePrompt = "Write a title of at most six words for a conversation that " +
		"starts with the following exchange. Reply with the title only, no quotes."

	titleTimeout   = 15 * time.Second
	titleMaxTokens = 32
)

// TitleGenerator asks the chat model for a short conversation title after
// the first user and assistant exchange. Generation runs in the background
// and fires at most once per conversation; failures are only logged.
type TitleGenerator struct {
	provider providers.ChatProvider
	store    *Store
	logger   *slog.Logger

	mu   sync.Mutex
	done map[string]bool
	wg   sync.WaitGroup
}

// NewTitleGenerator wires a generator to the store.
func NewTitleGenerator(provider providers.ChatProvider, store *Store, logger *slog.Logger) *TitleGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TitleGenerator{
		provider: provider,
		store:    store,
		logger:   logger,
		done:     make(map[string]bool),
	}
}

// Schedule kicks off title generation for the conversation if its first
// exchange is complete and no generation has run yet.
func (g *TitleGenerator) Schedule(ctx context.Context, convID string) {
	g.mu.Lock()
	if g.done[convID] {
		g.mu.Unlock()
		return
	}

	conv, err := g.store.Get(convID)
	if err != nil || !firstExchangeComplete(conv) {
		g.mu.Unlock()
		return
	}

	g.done[convID] = true
	g.mu.Unlock()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.generate(ctx, conv)
	}()
}

// Wait blocks until in-flight generations finish. Used by tests and by
// command shutdown.
func (g *TitleGenerator) Wait() {
	g.wg.Wait()
}

func (g *TitleGenerator) generate(ctx context.Context, conv *Conversation) {
	ctx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	res, err := g.provider.Complete(ctx, &providers.Request{
		SystemPrompt: titlePrompt,
		MaxTokens:    titleMaxTokens,
		Messages: []providers.Message{
			{Role: providers.RoleUser, Content: exchangeSummary(conv)},
		},
	})
	if err != nil {
		g.logger.Warn("title generation failed", "conversation", conv.ID, "error", err)
		return
	}

	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(res.Content), `"`))
	if title == "" {
		return
	}

	if err := g.store.SetTitle(conv.ID, title); err != nil {
		g.logger.Warn("title update failed", "conversation", conv.ID, "error", err)
	}
}

// firstExchangeComplete reports whether the log holds at least one user
// and one assistant message.
func firstExchangeComplete(conv *Conversation) bool {
	var user, assistant bool
	for _, msg := range conv.Messages {
		switch msg.Role {
		case RoleUser:
			user = true
		case RoleAssistant:
			assistant = true
		}
		if user && assistant {
			return true
		}
	}
	return false
}

func exchangeSummary(conv *Conversation) string {
	var sb strings.Builder
	for i, msg := range conv.Messages {
		if i >= 2 {
			break
		}
		sb.WriteString(string(msg.Role))
		sb.WriteString(": ")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
