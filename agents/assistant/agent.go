// Package assistant runs the agent loop: retrieve context, prompt the
// model, parse its output, dispatch tools, and feed observations back in
// until the model produces a final answer or the iteration ceiling hits.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adalundhe/aide/core/providers"
	"github.com/adalundhe/aide/core/search/hybrid"
	"github.com/adalundhe/aide/core/session"
	"github.com/adalundhe/aide/core/tools"
)

const (
	// DefaultMaxIterations caps model invocations per turn.
	DefaultMaxIterations = 15

	// DefaultRecentMessages is the conversation window carried into the
	// prompt.
	DefaultRecentMessages = 10

	// apologyMessage is the fixed reply when the iteration ceiling hits.
	apologyMessage = "I'm sorry, but I couldn't complete this task within a reasonable " +
		"number of steps. Could you break it into smaller parts and try again?"

	contextSearchLimit = 5
)

// StepType classifies an observability step.
type StepType string

const (
	StepThinking    StepType = "thinking"
	StepAction      StepType = "action"
	StepObservation StepType = "observation"
)

// Step is an ephemeral progress event emitted during a run.
type Step struct {
	Type    StepType
	Content string
}

// StepHandler receives steps as they happen. Steps are discarded after
// the run; they exist only for display.
type StepHandler func(Step)

// Retriever is the knowledge side of context gathering.
type Retriever interface {
	Search(ctx context.Context, query string, limit int) ([]hybrid.Result, error)
}

// Config assembles an Agent.
type Config struct {
	Provider       providers.ChatProvider
	Retriever      Retriever
	Sessions       *session.Store
	Registry       *tools.Registry
	Titles         *session.TitleGenerator
	Logger         *slog.Logger
	MaxIterations  int
	RecentMessages int
}

// Agent executes one turn at a time against a conversation.
type Agent struct {
	provider       providers.ChatProvider
	retriever      Retriever
	sessions       *session.Store
	registry       *tools.Registry
	titles         *session.TitleGenerator
	logger         *slog.Logger
	maxIterations  int
	recentMessages int
}

// New builds an agent.
func New(cfg Config) (*Agent, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("assistant: chat provider is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("assistant: session store is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("assistant: tool registry is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.RecentMessages <= 0 {
		cfg.RecentMessages = DefaultRecentMessages
	}

	return &Agent{
		provider:       cfg.Provider,
		retriever:      cfg.Retriever,
		sessions:       cfg.Sessions,
		registry:       cfg.Registry,
		titles:         cfg.Titles,
		logger:         cfg.Logger,
		maxIterations:  cfg.MaxIterations,
		recentMessages: cfg.RecentMessages,
	}, nil
}

// TurnRequest is one user turn.
type TurnRequest struct {
	ConversationID string
	Input          string
	Attachments    []string
	Mode           Mode
	OnStep         StepHandler
}

// Run executes the turn and returns the assistant's final answer. The
// user message and the final answer are both persisted to the
// conversation; intermediate tool traffic is not.
func (a *Agent) Run(ctx context.Context, req *TurnRequest) (string, error) {
	if strings.TrimSpace(req.Input) == "" {
		return "", fmt.Errorf("assistant: empty input")
	}

	if err := a.sessions.AppendMessage(req.ConversationID, session.Message{
		Role:        session.RoleUser,
		Content:     req.Input,
		Attachments: req.Attachments,
	}); err != nil {
		return "", fmt.Errorf("record user message: %w", err)
	}

	answer, err := a.loop(ctx, req)
	if err != nil {
		return "", err
	}

	if err := a.sessions.AppendMessage(req.ConversationID, session.Message{
		Role:    session.RoleAssistant,
		Content: answer,
	}); err != nil {
		return "", fmt.Errorf("record assistant message: %w", err)
	}

	if a.titles != nil {
		a.titles.Schedule(ctx, req.ConversationID)
	}
	return answer, nil
}

func (a *Agent) loop(ctx context.Context, req *TurnRequest) (string, error) {
	mode := req.Mode
	contextBlock := a.gatherContext(ctx, req)
	messages, err := a.historyWindow(req)
	if err != nil {
		return "", err
	}

	escalated := false

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		res, err := a.provider.Complete(ctx, &providers.Request{
			SystemPrompt: buildSystemPrompt(mode, a.registry, contextBlock),
			Messages:     messages,
		})
		if err != nil {
			return "", fmt.Errorf("model invocation: %w", err)
		}
		output := res.Content

		// The raw assistant text always joins the working transcript,
		// tool call or not.
		messages = append(messages, providers.Message{
			Role:    providers.RoleAssistant,
			Content: output,
		})
		emit(req.OnStep, Step{Type: StepThinking, Content: output})

		if mode == ChatMode {
			if strings.Contains(output, NeedToolsSentinel) && !escalated {
				mode = AgentMode
				escalated = true
				a.logger.Debug("escalating to agent mode", "conversation", req.ConversationID)
				continue
			}
			return output, nil
		}

		call, ok := ParseToolCall(output)
		if !ok {
			return strings.TrimSpace(output), nil
		}

		if IsPseudoTool(call.Tool) {
			return strings.TrimSpace(PseudoToolPayload(call, output)), nil
		}

		observation, known := a.dispatch(ctx, call, req.OnStep)
		if !known {
			// Unknown tool: the model wasn't really calling anything.
			return strings.TrimSpace(output), nil
		}

		messages = append(messages, providers.Message{
			Role:    providers.RoleUser,
			Content: "Observation: " + observation,
		})
	}

	a.logger.Warn("iteration ceiling reached", "conversation", req.ConversationID, "max", a.maxIterations)
	return apologyMessage, nil
}

// dispatch runs the tool and renders the observation. The second return
// reports whether the tool exists; execution failures and empty output
// both become observation text so the model can react.
func (a *Agent) dispatch(ctx context.Context, call *ToolCall, onStep StepHandler) (string, bool) {
	emit(onStep, Step{Type: StepAction, Content: call.Tool})

	result, err := a.registry.Execute(ctx, call.Tool, call.Args)
	if errors.Is(err, tools.ErrUnknownTool) {
		return "", false
	}
	if err != nil {
		result = fmt.Sprintf("tool %s failed: %v", call.Tool, err)
		a.logger.Warn("tool execution failed", "tool", call.Tool, "error", err)
	}
	if result == "" {
		result = "(no output)"
	}

	emit(onStep, Step{Type: StepObservation, Content: result})
	return result, true
}

// gatherContext retrieves relevant knowledge for the turn. Attachment
// turns skip retrieval; the attachment is the context. Retrieval failures
// degrade to no context.
func (a *Agent) gatherContext(ctx context.Context, req *TurnRequest) string {
	if len(req.Attachments) > 0 || a.retriever == nil {
		return ""
	}

	results, err := a.retriever.Search(ctx, req.Input, contextSearchLimit)
	if err != nil {
		a.logger.Warn("context retrieval failed", "error", err)
		return ""
	}
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, r := range results {
		fmt.Fprintf(&sb, "- [%s] %s: %s\n", r.Layer, r.Source, r.Text)
	}
	return sb.String()
}

// historyWindow maps the recent conversation tail into provider messages.
// The just-appended user turn is part of the window.
func (a *Agent) historyWindow(req *TurnRequest) ([]providers.Message, error) {
	recent, err := a.sessions.RecentMessages(req.ConversationID, a.recentMessages)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	messages := make([]providers.Message, 0, len(recent))
	for _, msg := range recent {
		role := providers.RoleUser
		if msg.Role == session.RoleAssistant {
			role = providers.RoleAssistant
		}
		messages = append(messages, providers.Message{
			Role:      role,
			Content:   msg.Content,
			ImageURLs: msg.Attachments,
		})
	}
	return messages, nil
}

func emit(handler StepHandler, step Step) {
	if handler != nil {
		handler(step)
	}
}
