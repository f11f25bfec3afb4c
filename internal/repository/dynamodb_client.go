package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	attrConversationID = "conversationId"
	attrTimestamp      = "timestamp"
	attrMessage        = "message"
	attrUserID         = "userId"
	attrActive         = "active"

	// Fixed-width UTC layout so lexical sort-key order is chronological order.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// dynamodbAPI is the minimal DynamoDB interface required by the tables.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrDuplicateMessage is returned when a message with the same conversation
// and timestamp already exists.
var ErrDuplicateMessage = errors.New("repository: message already exists")

// Timestamp formats t as the ISO-8601 sort key used for messages.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func validateTable(api dynamodbAPI, tableName string) error {
	if api == nil {
		return errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return errors.New("repository: table name must not be empty")
	}
	return nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

// truthy reports whether an attribute would read as true once unmarshalled
// into a loosely typed document: false, zero, NaN, "" and NULL are falsy,
// everything else present is truthy.
func truthy(v types.AttributeValue) bool {
	switch av := v.(type) {
	case nil:
		return false
	case *types.AttributeValueMemberBOOL:
		return av.Value
	case *types.AttributeValueMemberNULL:
		return false
	case *types.AttributeValueMemberS:
		return av.Value != ""
	case *types.AttributeValueMemberN:
		f, err := strconv.ParseFloat(av.Value, 64)
		return err == nil && !math.IsNaN(f) && f != 0
	default:
		return true
	}
}
