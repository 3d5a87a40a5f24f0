// Package session persists conversations. All conversations live in one
// JSON file under the data directory, rewritten in full on every mutation;
// messages are append-only once stored.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adalundhe/aide/core/storage"
)

var (
	// ErrConversationNotFound indicates an unknown conversation ID.
	ErrConversationNotFound = errors.New("conversation not found")
)

// conversationsFile is the single persistence file for all conversations.
const conversationsFile = "conversations.json"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation, immutable once appended.
type Message struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	Attachments []string  `json:"attachments,omitempty"`
}

// Conversation is an ordered message log with a title.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// Store holds every conversation in memory and mirrors each mutation to
// disk. A single mutex serializes mutations; the file is the unit of
// durability.
type Store struct {
	mu            sync.Mutex
	path          string
	conversations map[string]*Conversation
	logger        *slog.Logger
}

// NewStore loads the conversations file from dir, creating an empty store
// when the file does not exist yet.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		path:          filepath.Join(dir, conversationsFile),
		conversations: make(map[string]*Conversation),
		logger:        logger,
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var all []*Conversation
	if err := json.Unmarshal(data, &all); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	for _, conv := range all {
		s.conversations[conv.ID] = conv
	}
	return nil
}

// persistLocked rewrites the whole file atomically. Callers hold s.mu.
func (s *Store) persistLocked() error {
	all := make([]*Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		all = append(all, conv)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	if err := storage.EnsureDir(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Create starts a new conversation. An empty title gets a placeholder the
// title generator replaces after the first exchange.
func (s *Store) Create(title string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if title == "" {
		title = "New conversation"
	}

	now := time.Now().UTC()
	conv := &Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[conv.ID] = conv

	if err := s.persistLocked(); err != nil {
		delete(s.conversations, conv.ID)
		return nil, fmt.Errorf("persist conversations: %w", err)
	}
	return cloneConversation(conv), nil
}

// Get returns a copy of the conversation.
func (s *Store) Get(id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	return cloneConversation(conv), nil
}

// List returns all conversations, most recently updated first.
func (s *Store) List() []*Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		all = append(all, cloneConversation(conv))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})
	return all
}

// AppendMessage adds a message to the conversation log.
func (s *Store) AppendMessage(convID string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[convID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, convID)
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = time.Now().UTC()

	if err := s.persistLocked(); err != nil {
		conv.Messages = conv.Messages[:len(conv.Messages)-1]
		return fmt.Errorf("persist conversations: %w", err)
	}
	return nil
}

// RecentMessages returns the last n messages in original order. Fewer than
// n stored returns them all.
func (s *Store) RecentMessages(convID string, n int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[convID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, convID)
	}

	msgs := conv.Messages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// SetTitle replaces the conversation title.
func (s *Store) SetTitle(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}

	previous := conv.Title
	conv.Title = title
	conv.UpdatedAt = time.Now().UTC()

	if err := s.persistLocked(); err != nil {
		conv.Title = previous
		return fmt.Errorf("persist conversations: %w", err)
	}
	return nil
}

// Delete removes a conversation entirely.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}

	delete(s.conversations, id)
	if err := s.persistLocked(); err != nil {
		s.conversations[id] = conv
		return fmt.Errorf("persist conversations: %w", err)
	}
	return nil
}

func cloneConversation(conv *Conversation) *Conversation {
	out := *conv
	out.Messages = make([]Message, len(conv.Messages))
	copy(out.Messages, conv.Messages)
	return &out
}
