package assistant

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ToolCall is one parsed action request from model output.
type ToolCall struct {
	Tool string
	Args map[string]any
}

// pseudoTools are names models invent to mean "this is my answer". Their
// payload is absorbed as the final answer instead of being dispatched.
var pseudoTools = map[string]bool{
	"answer":       true,
	"respond":      true,
	"final_answer": true,
	"reply":        true,
}

// parseStrategy extracts a tool call from raw model text.
type parseStrategy func(text string) (*ToolCall, bool)

// strategies are tried in priority order; the first match wins.
var strategies = []parseStrategy{
	parseTaggedFence,
	parseAnyFence,
	parseBraceScan,
}

var (
	taggedFenceRe = regexp.MustCompile("(?s)```(?:json|tool)\\s*\\n(.*?)```")
	anyFenceRe    = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)```")
)

// ParseToolCall runs the parser strategies over model output. No strategy
// matching means the text is a final answer.
func ParseToolCall(text string) (*ToolCall, bool) {
	for _, strategy := range strategies {
		if call, ok := strategy(text); ok {
			return call, true
		}
	}
	return nil, false
}

// IsPseudoTool reports whether the tool name is an answer in disguise.
func IsPseudoTool(name string) bool {
	return pseudoTools[name]
}

// PseudoToolPayload pulls the answer text out of a pseudo-tool call,
// falling back to the raw model output when no payload field is present.
func PseudoToolPayload(call *ToolCall, raw string) string {
	for _, key := range []string{"text", "content", "answer", "response", "message"} {
		if v, ok := call.Args[key].(string); ok && v != "" {
			return v
		}
	}
	return raw
}

func parseTaggedFence(text string) (*ToolCall, bool) {
	for _, m := range taggedFenceRe.FindAllStringSubmatch(text, -1) {
		if call, ok := decodeCall(m[1]); ok {
			return call, true
		}
	}
	return nil, false
}

func parseAnyFence(text string) (*ToolCall, bool) {
	for _, m := range anyFenceRe.FindAllStringSubmatch(text, -1) {
		if call, ok := decodeCall(m[1]); ok {
			return call, true
		}
	}
	return nil, false
}

// parseBraceScan looks for an unfenced call-shaped object by balancing
// braces from each opening brace, string-aware.
func parseBraceScan(text string) (*ToolCall, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end, ok := matchBrace(text, start)
		if !ok {
			continue
		}
		if call, decoded := decodeCall(text[start : end+1]); decoded {
			return call, true
		}
		start = end
	}
	return nil, false
}

// matchBrace returns the index of the brace closing the one at start.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// callEnvelope matches the calling convention the personas instruct:
// {"tool": "...", "args": {...}}. Some models emit "arguments" instead.
type callEnvelope struct {
	Tool      string         `json:"tool"`
	Name      string         `json:"name"`
	Args      map[string]any `json:"args"`
	Arguments map[string]any `json:"arguments"`
}

func decodeCall(raw string) (*ToolCall, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "{") {
		return nil, false
	}

	var env callEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, false
	}

	name := env.Tool
	if name == "" {
		name = env.Name
	}
	name = normalizeToolName(name)
	if name == "" {
		return nil, false
	}

	args := env.Args
	if args == nil {
		args = env.Arguments
	}
	if args == nil {
		args = map[string]any{}
	}
	return &ToolCall{Tool: name, Args: args}, true
}

// normalizeToolName strips control-token artifacts some models wrap
// around tool names and lowercases the result.
func normalizeToolName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, artifact := range []string{"<|", "|>", "<", ">", "`", "\""} {
		name = strings.ReplaceAll(name, artifact, "")
	}
	return strings.Trim(name, " .:")
}
