package state

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/jask/personachat/internal/database"
	"github.com/jask/personachat/internal/database/repository"
)

// MessageRepo persists transcripts.
type MessageRepo interface {
	Add(ctx context.Context, m repository.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]repository.Message, error)
	DeleteByConversation(ctx context.Context, conversationID string) error
}

// TranscriptState caches transcripts of conversations that have been opened.
type TranscriptState struct {
	ByConversation map[string][]repository.Message
}

// MessageLog owns conversation transcripts.
type MessageLog struct {
	store *Store[TranscriptState]
	repo  MessageRepo
	log   pslog.Logger
}

func NewMessageLog(repo MessageRepo, logger pslog.Logger) *MessageLog {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	logger = logger.With("store", "messages")
	return &MessageLog{
		store: NewStore(TranscriptState{ByConversation: map[string][]repository.Message{}}, logger),
		repo:  repo,
		log:   logger,
	}
}

// List returns the transcript, reading it from the repository on first use.
func (l *MessageLog) List(ctx context.Context, conversationID string) ([]repository.Message, error) {
	if msgs, ok := l.store.Get().ByConversation[conversationID]; ok {
		return slices.Clone(msgs), nil
	}
	var msgs []repository.Message
	if l.repo != nil {
		var err error
		msgs, err = l.repo.ListByConversation(ctx, conversationID)
		if err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
	}
	st := l.store.Update(func(st TranscriptState) TranscriptState {
		if _, ok := st.ByConversation[conversationID]; ok {
			return st
		}
		return st.with(conversationID, msgs)
	})
	return slices.Clone(st.ByConversation[conversationID]), nil
}

// Append records a message at the end of the conversation.
func (l *MessageLog) Append(ctx context.Context, conversationID, role, text string) (repository.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return repository.Message{}, fmt.Errorf("append message: empty text")
	}
	if _, err := l.List(ctx, conversationID); err != nil {
		return repository.Message{}, err
	}
	m := repository.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Text:           text,
		CreatedAt:      database.Now(),
	}
	if l.repo != nil {
		if err := l.repo.Add(ctx, m); err != nil {
			return repository.Message{}, fmt.Errorf("append message: %w", err)
		}
	}
	l.store.Update(func(st TranscriptState) TranscriptState {
		current := st.ByConversation[conversationID]
		next := make([]repository.Message, 0, len(current)+1)
		return st.with(conversationID, append(append(next, current...), m))
	})
	l.log.Debug("message appended", "conversation", conversationID, "role", role)
	return m, nil
}

// Clear removes every message of the conversation.
func (l *MessageLog) Clear(ctx context.Context, conversationID string) error {
	if l.repo != nil {
		if err := l.repo.DeleteByConversation(ctx, conversationID); err != nil {
			return fmt.Errorf("clear messages: %w", err)
		}
	}
	l.store.Update(func(st TranscriptState) TranscriptState {
		return st.with(conversationID, nil)
	})
	return nil
}

// WatchTranscript wakes when the conversation's transcript changes.
func (l *MessageLog) WatchTranscript(conversationID string) (<-chan []repository.Message, func()) {
	return Select(l.store, func(st TranscriptState) []repository.Message {
		return st.ByConversation[conversationID]
	}, slices.Equal[[]repository.Message, repository.Message])
}

func (st TranscriptState) with(conversationID string, msgs []repository.Message) TranscriptState {
	next := maps.Clone(st.ByConversation)
	if next == nil {
		next = map[string][]repository.Message{}
	}
	next[conversationID] = msgs
	return TranscriptState{ByConversation: next}
}
