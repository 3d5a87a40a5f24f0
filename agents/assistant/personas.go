package assistant

import (
	"fmt"
	"strings"
)

// Mode selects the persona the agent speaks with.
type Mode int

const (
	// ChatMode answers directly from context and may escalate.
	ChatMode Mode = iota

	// AgentMode may call tools.
	AgentMode
)

func (m Mode) String() string {
	if m == AgentMode {
		return "agent"
	}
	return "chat"
}

// NeedToolsSentinel is the marker a chat-mode reply uses to request
// escalation to agent mode.
const NeedToolsSentinel = "[NEED_TOOLS]"

const chatPersona = `You are a helpful personal assistant with access to the user's knowledge base.
Answer from the provided context and conversation history. Be concise and direct.
If the question genuinely requires running code, reading files, searching externally,
or generating images, reply with exactly %s and nothing else.`

const agentPersona = `You are a helpful personal assistant that can use tools to complete tasks.

Available tools:
%s
To call a tool, reply with a single JSON object in a fenced code block:

` + "```json" + `
{"tool": "tool_name", "args": {"key": "value"}}
` + "```" + `

Call one tool at a time and wait for its observation. When you have enough
information, reply with your final answer as plain text with no JSON.`

// ToolDescriber renders the available tool list for the agent persona.
type ToolDescriber interface {
	Describe() string
}

func buildSystemPrompt(mode Mode, describer ToolDescriber, contextBlock string) string {
	var sb strings.Builder

	switch mode {
	case AgentMode:
		fmt.Fprintf(&sb, agentPersona, describer.Describe())
	default:
		fmt.Fprintf(&sb, chatPersona, NeedToolsSentinel)
	}

	if contextBlock != "" {
		sb.WriteString("\n\nRelevant knowledge:\n")
		sb.WriteString(contextBlock)
	}
	return sb.String()
}
