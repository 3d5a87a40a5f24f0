package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaggedFence(t *testing.T) {
	text := "I'll check the file first.\n```json\n{\"tool\": \"read_file\", \"args\": {\"path\": \"notes.txt\"}}\n```"

	call, ok := ParseToolCall(text)
	require.True(t, ok)
	assert.Equal(t, "read_file", call.Tool)
	assert.Equal(t, "notes.txt", call.Args["path"])
}

func TestParseUntaggedFence(t *testing.T) {
	text := "```\n{\"tool\": \"run_code\", \"args\": {\"code\": \"print(1)\"}}\n```"

	call, ok := ParseToolCall(text)
	require.True(t, ok)
	assert.Equal(t, "run_code", call.Tool)
}

func TestParseBraceScan(t *testing.T) {
	text := `I will call {"tool": "search_knowledge", "args": {"query": "deadline"}} now.`

	call, ok := ParseToolCall(text)
	require.True(t, ok)
	assert.Equal(t, "search_knowledge", call.Tool)
	assert.Equal(t, "deadline", call.Args["query"])
}

func TestParseBraceScanStringAware(t *testing.T) {
	text := `{"tool": "run_code", "args": {"code": "d = {\"a\": 1}"}}`

	call, ok := ParseToolCall(text)
	require.True(t, ok)
	assert.Equal(t, `d = {"a": 1}`, call.Args["code"])
}

func TestParsePlainTextIsFinalAnswer(t *testing.T) {
	_, ok := ParseToolCall("The deadline is Friday, according to your notes.")
	assert.False(t, ok)
}

func TestParseMalformedJSONIsFinalAnswer(t *testing.T) {
	_, ok := ParseToolCall("```json\n{\"tool\": \"read_file\", \"args\": {broken}\n```")
	assert.False(t, ok)
}

func TestParseNonCallObjectIgnored(t *testing.T) {
	_, ok := ParseToolCall(`Here is the data: {"name": "report", "pages": 3}`)
	assert.False(t, ok)
}

func TestParseArgumentsAlias(t *testing.T) {
	call, ok := ParseToolCall(`{"tool": "read_file", "arguments": {"path": "a.txt"}}`)
	require.True(t, ok)
	assert.Equal(t, "a.txt", call.Args["path"])
}

func TestParseFencePreferredOverBraceScan(t *testing.T) {
	text := "{\"tool\": \"wrong_one\", \"args\": {}}\n```json\n{\"tool\": \"right_one\", \"args\": {}}\n```"

	call, ok := ParseToolCall(text)
	require.True(t, ok)
	assert.Equal(t, "right_one", call.Tool)
}

func TestNormalizeToolName(t *testing.T) {
	assert.Equal(t, "read_file", normalizeToolName("<|read_file|>"))
	assert.Equal(t, "read_file", normalizeToolName(" Read_File "))
	assert.Equal(t, "run_code", normalizeToolName("`run_code`"))
}

func TestPseudoTools(t *testing.T) {
	for _, name := range []string{"answer", "respond", "final_answer", "reply"} {
		assert.True(t, IsPseudoTool(name), name)
	}
	assert.False(t, IsPseudoTool("read_file"))

	call, ok := ParseToolCall(`{"tool": "final_answer", "args": {"text": "The deadline is Friday."}}`)
	require.True(t, ok)
	assert.Equal(t, "The deadline is Friday.", PseudoToolPayload(call, "raw fallback"))

	empty, ok := ParseToolCall(`{"tool": "answer", "args": {}}`)
	require.True(t, ok)
	assert.Equal(t, "raw fallback", PseudoToolPayload(empty, "raw fallback"))
}

func TestToolCallMissingArgsDefaultsEmpty(t *testing.T) {
	call, ok := ParseToolCall(`{"tool": "read_file"}`)
	require.True(t, ok)
	assert.NotNil(t, call.Args)
	assert.Empty(t, call.Args)
}
