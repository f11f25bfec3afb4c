package usecase

import (
	"context"
	"errors"
	"sort"

	"chat-conversations/internal/authz"
	"chat-conversations/internal/domain"
	applog "chat-conversations/internal/log"
)

const defaultMaxMessageLen = 4000

type PermissionChecker interface {
	Check(ctx context.Context, userID, conversationID string) authz.Decision
}

type MessageStore interface {
	Append(ctx context.Context, conversationID, text string) (domain.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
}

type MessageService struct {
	perms         PermissionChecker
	store         MessageStore
	maxMessageLen int
}

type PostMessageOutput struct {
	Messages []domain.HistoryEntry
}

func NewMessageService(perms PermissionChecker, store MessageStore, maxMessageLen int) (*MessageService, error) {
	if perms == nil {
		return nil, errors.New("usecase: permission checker must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: message store must not be nil")
	}
	if maxMessageLen <= 0 {
		maxMessageLen = defaultMaxMessageLen
	}
	return &MessageService{perms: perms, store: store, maxMessageLen: maxMessageLen}, nil
}

// Post authorizes the caller, appends the message and returns the full
// conversation history in ascending timestamp order. Steps run strictly in
// sequence; a failed step ends the request and nothing is retried.
func (s *MessageService) Post(ctx context.Context, in PostMessageInput) (PostMessageOutput, error) {
	if err := validateInput(in); err != nil {
		return PostMessageOutput{}, err
	}
	if len(in.Message) > s.maxMessageLen {
		return PostMessageOutput{}, newError(ErrorMalformedRequest, "message_too_long", nil)
	}

	logger := applog.Ctx(ctx).With().
		Str(applog.FieldUserID, in.UserID).
		Str(applog.FieldConversationID, in.ConversationID).
		Logger()

	decision := s.perms.Check(ctx, in.UserID, in.ConversationID)
	if !decision.Allowed() {
		if decision.Outcome == authz.LookupFailed {
			logger.Warn().Err(decision.Err).Msg("permission lookup failed, denying")
		} else {
			logger.Info().Str(applog.FieldOutcome, decision.Outcome.String()).Msg("permission denied")
		}
		return PostMessageOutput{}, newError(ErrorPermissionDenied, decision.Outcome.String(), decision.Err)
	}

	if _, err := s.store.Append(ctx, in.ConversationID, in.Message); err != nil {
		return PostMessageOutput{}, newError(ErrorStoreWrite, "append_failed", err)
	}

	records, err := s.store.ListByConversation(ctx, in.ConversationID)
	if err != nil {
		return PostMessageOutput{}, newError(ErrorStoreRead, "query_failed", err)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Timestamp < records[j].Timestamp })

	history := make([]domain.HistoryEntry, 0, len(records))
	for _, r := range records {
		history = append(history, domain.HistoryEntry{Timestamp: r.Timestamp, Message: r.Text})
	}
	logger.Debug().Int("history_len", len(history)).Msg("message posted")

	return PostMessageOutput{Messages: history}, nil
}
