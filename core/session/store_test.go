package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/aide/core/providers"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestCreateAndGet(t *testing.T) {
	s := newTestStore(t)

	conv, err := s.Create("groceries")
	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "groceries", conv.Title)

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestCreateDefaultTitle(t *testing.T) {
	s := newTestStore(t)

	conv, err := s.Create("")
	require.NoError(t, err)
	assert.Equal(t, "New conversation", conv.Title)
}

func TestAppendAndReload(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir, nil)
	require.NoError(t, err)

	conv, err := s.Create("test")
	require.NoError(t, err)

	require.NoError(t, s.AppendMessage(conv.ID, Message{Role: RoleUser, Content: "hello"}))
	require.NoError(t, s.AppendMessage(conv.ID, Message{Role: RoleAssistant, Content: "hi there"}))

	// A fresh store sees everything the first one wrote.
	reloaded, err := NewStore(dir, nil)
	require.NoError(t, err)

	got, err := reloaded.Get(conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleUser, got.Messages[0].Role)
	assert.Equal(t, "hello", got.Messages[0].Content)
	assert.NotEmpty(t, got.Messages[0].ID)
	assert.False(t, got.Messages[0].Timestamp.IsZero())
}

func TestAppendToMissingConversation(t *testing.T) {
	s := newTestStore(t)
	err := s.AppendMessage("missing", Message{Role: RoleUser, Content: "x"})
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestRecentMessagesWindow(t *testing.T) {
	s := newTestStore(t)
	conv, err := s.Create("test")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendMessage(conv.ID, Message{
			Role:    RoleUser,
			Content: fmt.Sprintf("message %d", i),
		}))
	}

	recent, err := s.RecentMessages(conv.ID, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "message 2", recent[0].Content)
	assert.Equal(t, "message 4", recent[2].Content)

	// Fewer stored than requested returns all, original order.
	all, err := s.RecentMessages(conv.ID, 100)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, "message 0", all[0].Content)
}

func TestListOrdering(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Create("first")
	require.NoError(t, err)
	second, err := s.Create("second")
	require.NoError(t, err)

	// Touch the first so it becomes the most recently updated.
	require.NoError(t, s.AppendMessage(first.ID, Message{Role: RoleUser, Content: "bump"}))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}

func TestSetTitleAndDelete(t *testing.T) {
	s := newTestStore(t)
	conv, err := s.Create("draft")
	require.NoError(t, err)

	require.NoError(t, s.SetTitle(conv.ID, "final"))
	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)

	require.NoError(t, s.Delete(conv.ID))
	_, err = s.Get(conv.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	assert.ErrorIs(t, s.Delete(conv.ID), ErrConversationNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	conv, err := s.Create("test")
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(conv.ID, Message{Role: RoleUser, Content: "original"}))

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	got.Messages[0].Content = "mutated"

	again, err := s.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Messages[0].Content)
}

// fakeChatProvider returns a canned completion.
type fakeChatProvider struct {
	response string
	err      error
	calls    int
}

func (f *fakeChatProvider) Name() string { return "fake" }

func (f *fakeChatProvider) Complete(context.Context, *providers.Request) (*providers.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &providers.Response{Content: f.response}, nil
}

func TestTitleGeneration(t *testing.T) {
	s := newTestStore(t)
	conv, err := s.Create("")
	require.NoError(t, err)

	fake := &fakeChatProvider{response: `"Grocery planning"`}
	gen := NewTitleGenerator(fake, s, nil)

	// First exchange not complete yet; nothing should fire.
	require.NoError(t, s.AppendMessage(conv.ID, Message{Role: RoleUser, Content: "plan my groceries"}))
	gen.Schedule(context.Background(), conv.ID)
	gen.Wait()
	assert.Zero(t, fake.calls)

	require.NoError(t, s.AppendMessage(conv.ID, Message{Role: RoleAssistant, Content: "sure, here is a list"}))
	gen.Schedule(context.Background(), conv.ID)
	gen.Wait()

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grocery planning", got.Title)

	// Scheduling again is a no-op.
	gen.Schedule(context.Background(), conv.ID)
	gen.Wait()
	assert.Equal(t, 1, fake.calls)
}

func TestTitleGenerationFailureLeavesTitle(t *testing.T) {
	s := newTestStore(t)
	conv, err := s.Create("")
	require.NoError(t, err)

	require.NoError(t, s.AppendMessage(conv.ID, Message{Role: RoleUser, Content: "hi"}))
	require.NoError(t, s.AppendMessage(conv.ID, Message{Role: RoleAssistant, Content: "hello"}))

	fake := &fakeChatProvider{err: errors.New("backend down")}
	gen := NewTitleGenerator(fake, s, nil)
	gen.Schedule(context.Background(), conv.ID)
	gen.Wait()

	got, err := s.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "New conversation", got.Title)
}
