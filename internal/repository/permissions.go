package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"chat-conversations/internal/domain"
)

// PermissionTable wraps the permission table, keyed by (userId, conversationId).
// Records are managed elsewhere; this type only reads them.
type PermissionTable struct {
	api       dynamodbAPI
	tableName string
}

// NewPermissionTable creates a PermissionTable.
func NewPermissionTable(api dynamodbAPI, tableName string) (*PermissionTable, error) {
	if err := validateTable(api, tableName); err != nil {
		return nil, err
	}
	return &PermissionTable{api: api, tableName: tableName}, nil
}

// GetPermission looks up the exact (userID, conversationID) record. found is
// false when no record exists.
func (t *PermissionTable) GetPermission(ctx context.Context, userID, conversationID string) (perm domain.Permission, found bool, err error) {
	out, err := t.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.tableName),
		Key: map[string]types.AttributeValue{
			attrUserID:         &types.AttributeValueMemberS{Value: userID},
			attrConversationID: &types.AttributeValueMemberS{Value: conversationID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.Permission{}, false, fmt.Errorf("repository: GetPermission get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Permission{}, false, nil
	}
	return domain.Permission{
		UserID:         userID,
		ConversationID: conversationID,
		Active:         truthy(out.Item[attrActive]),
	}, true, nil
}
