package state

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/jask/personachat/internal/catalog"
	"github.com/jask/personachat/internal/database"
	"github.com/jask/personachat/internal/database/repository"
)

var (
	ErrConversationNotFound = errors.New("state: conversation not found")
	ErrUnknownPersona       = errors.New("state: unknown persona")
)

// ConversationRepo is the persistence used by ChatStore.
type ConversationRepo interface {
	List(ctx context.Context) ([]repository.Conversation, error)
	Upsert(ctx context.Context, c repository.Conversation) error
	SetPurpose(ctx context.Context, id, purposeID string) error
	SetPurposes(ctx context.Context, ids []string, purposeID string) error
	Rename(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id string) error
}

// PersonaIndex resolves persona ids. *catalog.Catalog implements it.
type PersonaIndex interface {
	Lookup(id string) (catalog.Persona, bool)
}

// ChatState is the conversation list in display order.
type ChatState struct {
	Conversations []repository.Conversation
}

// PurposeBinding is the persona bound to one conversation. Found is false when
// the conversation does not exist, in which case no mutation is possible.
type PurposeBinding struct {
	Found     bool
	PurposeID string
}

// ChatStore owns conversations and their persona binding.
type ChatStore struct {
	store    *Store[ChatState]
	repo     ConversationRepo
	personas PersonaIndex
	fallback string
	log      pslog.Logger
}

// NewChatStore builds an empty store. A nil repo keeps everything in memory.
// fallback replaces persona ids unknown to personas when conversations load.
func NewChatStore(repo ConversationRepo, personas PersonaIndex, fallback string, logger pslog.Logger) *ChatStore {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	logger = logger.With("store", "chat")
	return &ChatStore{
		store:    NewStore(ChatState{}, logger),
		repo:     repo,
		personas: personas,
		fallback: fallback,
		log:      logger,
	}
}

// Load replaces the in-memory state with the persisted conversations,
// rebinding any conversation whose persona no longer exists.
func (c *ChatStore) Load(ctx context.Context) error {
	if c.repo == nil {
		return nil
	}
	list, err := c.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}
	var stale []int
	for i := range list {
		if c.known(list[i].SystemPurposeID) || !c.known(c.fallback) {
			continue
		}
		c.log.Warn("conversation persona missing from catalog", "conversation", list[i].ID, "persona", list[i].SystemPurposeID, "fallback", c.fallback)
		stale = append(stale, i)
	}
	if len(stale) > 0 {
		ids := make([]string, len(stale))
		for j, i := range stale {
			ids[j] = list[i].ID
		}
		if err := c.repo.SetPurposes(ctx, ids, c.fallback); err != nil {
			return fmt.Errorf("rebind conversations: %w", err)
		}
		for _, i := range stale {
			list[i].SystemPurposeID = c.fallback
		}
	}
	c.store.Set(ChatState{Conversations: list})
	c.log.Debug("conversations loaded", "count", len(list))
	return nil
}

func (c *ChatStore) known(id string) bool {
	if c.personas == nil {
		return id != ""
	}
	_, ok := c.personas.Lookup(id)
	return ok
}

// Conversations returns a copy of the conversation list.
func (c *ChatStore) Conversations() []repository.Conversation {
	return slices.Clone(c.store.Get().Conversations)
}

func (c *ChatStore) Conversation(id string) (repository.Conversation, bool) {
	st := c.store.Get()
	if i := indexOf(st.Conversations, id); i >= 0 {
		return st.Conversations[i], true
	}
	return repository.Conversation{}, false
}

func (c *ChatStore) PurposeBinding(conversationID string) PurposeBinding {
	return bindingOf(c.store.Get(), conversationID)
}

// SetSystemPurposeID binds purposeID to the conversation.
func (c *ChatStore) SetSystemPurposeID(ctx context.Context, conversationID, purposeID string) error {
	conv, ok := c.Conversation(conversationID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	if !c.known(purposeID) {
		return fmt.Errorf("%w: %q", ErrUnknownPersona, purposeID)
	}
	if conv.SystemPurposeID == purposeID {
		return nil
	}
	if c.repo != nil {
		if err := c.repo.SetPurpose(ctx, conversationID, purposeID); err != nil {
			return fmt.Errorf("set persona: %w", err)
		}
	}
	now := database.Now()
	c.store.Update(func(st ChatState) ChatState {
		return st.replace(conversationID, func(cv *repository.Conversation) {
			cv.SystemPurposeID = purposeID
			cv.UpdatedAt = now
		})
	})
	c.log.Debug("persona selected", "conversation", conversationID, "persona", purposeID)
	return nil
}

// Create adds a conversation bound to purposeID.
func (c *ChatStore) Create(ctx context.Context, title, purposeID string) (repository.Conversation, error) {
	if purposeID == "" {
		purposeID = c.fallback
	}
	if !c.known(purposeID) {
		return repository.Conversation{}, fmt.Errorf("%w: %q", ErrUnknownPersona, purposeID)
	}
	now := database.Now()
	conv := repository.Conversation{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(title),
		SystemPurposeID: purposeID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if c.repo != nil {
		if err := c.repo.Upsert(ctx, conv); err != nil {
			return repository.Conversation{}, fmt.Errorf("create conversation: %w", err)
		}
	}
	c.store.Update(func(st ChatState) ChatState {
		next := make([]repository.Conversation, 0, len(st.Conversations)+1)
		next = append(next, st.Conversations...)
		return ChatState{Conversations: append(next, conv)}
	})
	c.log.Debug("conversation created", "conversation", conv.ID, "persona", purposeID)
	return conv, nil
}

func (c *ChatStore) Rename(ctx context.Context, conversationID, title string) error {
	if _, ok := c.Conversation(conversationID); !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	title = strings.TrimSpace(title)
	if c.repo != nil {
		if err := c.repo.Rename(ctx, conversationID, title); err != nil {
			return fmt.Errorf("rename conversation: %w", err)
		}
	}
	c.store.Update(func(st ChatState) ChatState {
		return st.replace(conversationID, func(cv *repository.Conversation) { cv.Title = title })
	})
	return nil
}

func (c *ChatStore) Delete(ctx context.Context, conversationID string) error {
	if _, ok := c.Conversation(conversationID); !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	if c.repo != nil {
		if err := c.repo.Delete(ctx, conversationID); err != nil {
			return fmt.Errorf("delete conversation: %w", err)
		}
	}
	c.store.Update(func(st ChatState) ChatState {
		i := indexOf(st.Conversations, conversationID)
		if i < 0 {
			return st
		}
		return ChatState{Conversations: slices.Delete(slices.Clone(st.Conversations), i, i+1)}
	})
	c.log.Debug("conversation deleted", "conversation", conversationID)
	return nil
}

// WatchPurposeBinding wakes only when this conversation's binding changes.
func (c *ChatStore) WatchPurposeBinding(conversationID string) (<-chan PurposeBinding, func()) {
	return Select(c.store, func(st ChatState) PurposeBinding {
		return bindingOf(st, conversationID)
	}, Same[PurposeBinding])
}

// WatchConversations wakes when any conversation changes.
func (c *ChatStore) WatchConversations() (<-chan []repository.Conversation, func()) {
	return Select(c.store, func(st ChatState) []repository.Conversation {
		return st.Conversations
	}, slices.Equal[[]repository.Conversation, repository.Conversation])
}

func bindingOf(st ChatState, conversationID string) PurposeBinding {
	if i := indexOf(st.Conversations, conversationID); i >= 0 {
		return PurposeBinding{Found: true, PurposeID: st.Conversations[i].SystemPurposeID}
	}
	return PurposeBinding{}
}

func (st ChatState) replace(id string, fn func(*repository.Conversation)) ChatState {
	i := indexOf(st.Conversations, id)
	if i < 0 {
		return st
	}
	next := slices.Clone(st.Conversations)
	fn(&next[i])
	return ChatState{Conversations: next}
}

func indexOf(list []repository.Conversation, id string) int {
	return slices.IndexFunc(list, func(c repository.Conversation) bool { return c.ID == id })
}
