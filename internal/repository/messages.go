package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"chat-conversations/internal/domain"
)

// MessageTable wraps the conversation message table, keyed by
// (conversationId, timestamp).
type MessageTable struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// NewMessageTable creates a MessageTable.
func NewMessageTable(api dynamodbAPI, tableName string) (*MessageTable, error) {
	if err := validateTable(api, tableName); err != nil {
		return nil, err
	}
	return &MessageTable{api: api, tableName: tableName, now: time.Now}, nil
}

// Append writes a new message stamped with the current time.
func (t *MessageTable) Append(ctx context.Context, conversationID, text string) (domain.Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return domain.Message{}, errors.New("repository: Append: conversation id is required")
	}
	msg := domain.Message{
		ConversationID: conversationID,
		Timestamp:      Timestamp(t.now()),
		Text:           text,
	}

	_, err := t.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(t.tableName),
		Item:                messageItem(msg),
		ConditionExpression: aws.String("attribute_not_exists(conversationId) AND attribute_not_exists(#ts)"),
		ExpressionAttributeNames: map[string]string{
			"#ts": attrTimestamp,
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return domain.Message{}, fmt.Errorf("repository: Append: %w: %w", ErrDuplicateMessage, err)
		}
		return domain.Message{}, fmt.Errorf("repository: Append: %w", err)
	}
	return msg, nil
}

// ListByConversation returns every message of a conversation in ascending
// timestamp order, draining all result pages.
func (t *MessageTable) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(t.tableName),
		KeyConditionExpression: aws.String("conversationId = :conversationId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":conversationId": &types.AttributeValueMemberS{Value: conversationID},
		},
		// Strong consistency so the caller's own write is visible.
		ConsistentRead:   aws.Bool(true),
		ScanIndexForward: aws.Bool(true),
	}

	msgs := make([]domain.Message, 0)
	pages := dynamodb.NewQueryPaginator(t.api, in)
	for pages.HasMorePages() {
		out, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("repository: ListByConversation query: %w", err)
		}
		for _, item := range out.Items {
			msg, err := itemToMessage(item)
			if err != nil {
				return nil, fmt.Errorf("repository: ListByConversation unmarshal: %w", err)
			}
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

func messageItem(msg domain.Message) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrConversationID: &types.AttributeValueMemberS{Value: msg.ConversationID},
		attrTimestamp:      &types.AttributeValueMemberS{Value: msg.Timestamp},
		attrMessage:        &types.AttributeValueMemberS{Value: msg.Text},
	}
}

func itemToMessage(item map[string]types.AttributeValue) (domain.Message, error) {
	convID, err := strAttr(item, attrConversationID)
	if err != nil {
		return domain.Message{}, err
	}
	ts, err := strAttr(item, attrTimestamp)
	if err != nil {
		return domain.Message{}, err
	}
	text, err := strAttr(item, attrMessage)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{ConversationID: convID, Timestamp: ts, Text: text}, nil
}
