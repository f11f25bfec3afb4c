package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	getOut    *dynamodb.GetItemOutput
	getErr    error
	putErr    error
	queryOuts []*dynamodb.QueryOutput
	queryErr  error

	lastGetInput *dynamodb.GetItemInput
	lastPutInput *dynamodb.PutItemInput
	queryInputs  []*dynamodb.QueryInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getOut == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return f.getOut, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

// Query returns queryOuts in order, one per call.
func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queryInputs = append(f.queryInputs, in)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	idx := len(f.queryInputs) - 1
	if idx >= len(f.queryOuts) {
		return &dynamodb.QueryOutput{}, nil
	}
	return f.queryOuts[idx], nil
}

func makeMessageItem(convID, ts, text string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"conversationId": &types.AttributeValueMemberS{Value: convID},
		"timestamp":      &types.AttributeValueMemberS{Value: ts},
		"message":        &types.AttributeValueMemberS{Value: text},
	}
}

func mustNewMessageTable(t *testing.T, db *fakeDynamo) *MessageTable {
	t.Helper()
	tbl, err := NewMessageTable(db, "chat_conversations")
	require.NoError(t, err)
	tbl.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 5, time.UTC) }
	return tbl
}

func mustNewPermissionTable(t *testing.T, db *fakeDynamo) *PermissionTable {
	t.Helper()
	tbl, err := NewPermissionTable(db, "chat_permissions")
	require.NoError(t, err)
	return tbl
}

func TestNewMessageTable_NilAPI(t *testing.T) {
	_, err := NewMessageTable(nil, "chat_conversations")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestNewPermissionTable_EmptyTableName(t *testing.T) {
	_, err := NewPermissionTable(&fakeDynamo{}, " ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be empty")
}

func TestTimestamp_FixedWidthUTC(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	ts := Timestamp(time.Date(2026, 3, 1, 6, 30, 0, 0, loc))
	require.Equal(t, "2026-03-01T09:30:00.000000000Z", ts)
}

func TestTimestamp_LexicalOrderIsChronological(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	earlier := Timestamp(base)
	later := Timestamp(base.Add(100 * time.Millisecond))
	require.Less(t, earlier, later)
}

func TestAppend_HappyPath(t *testing.T) {
	db := &fakeDynamo{}
	tbl := mustNewMessageTable(t, db)

	msg, err := tbl.Append(context.Background(), "c1", "hello")
	require.NoError(t, err)
	require.Equal(t, "c1", msg.ConversationID)
	require.Equal(t, "hello", msg.Text)
	require.Equal(t, "2026-03-01T09:30:00.000000005Z", msg.Timestamp)

	in := db.lastPutInput
	require.NotNil(t, in)
	require.Equal(t, "chat_conversations", *in.TableName)
	require.Equal(t, "hello", in.Item["message"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, msg.Timestamp, in.Item["timestamp"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "attribute_not_exists(conversationId) AND attribute_not_exists(#ts)", *in.ConditionExpression)
	require.Equal(t, "timestamp", in.ExpressionAttributeNames["#ts"])
}

func TestAppend_DynamoError(t *testing.T) {
	db := &fakeDynamo{putErr: errors.New("ProvisionedThroughputExceededException")}
	tbl := mustNewMessageTable(t, db)
	_, err := tbl.Append(context.Background(), "c1", "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Append")
	require.NotErrorIs(t, err, ErrDuplicateMessage)
}

func TestAppend_TimestampCollision(t *testing.T) {
	db := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{}}
	tbl := mustNewMessageTable(t, db)
	_, err := tbl.Append(context.Background(), "c1", "hello")
	require.ErrorIs(t, err, ErrDuplicateMessage)
}

func TestAppend_MissingConversationID(t *testing.T) {
	db := &fakeDynamo{}
	tbl := mustNewMessageTable(t, db)
	_, err := tbl.Append(context.Background(), " ", "hello")
	require.Error(t, err)
	require.Nil(t, db.lastPutInput)
}

func TestListByConversation_HappyPath(t *testing.T) {
	db := &fakeDynamo{queryOuts: []*dynamodb.QueryOutput{{
		Items: []map[string]types.AttributeValue{
			makeMessageItem("c1", "2026-03-01T09:00:00.000000000Z", "first"),
			makeMessageItem("c1", "2026-03-01T09:01:00.000000000Z", "second"),
		},
	}}}
	tbl := mustNewMessageTable(t, db)

	msgs, err := tbl.ListByConversation(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "first", msgs[0].Text)
	require.Equal(t, "second", msgs[1].Text)

	in := db.queryInputs[0]
	require.Equal(t, "conversationId = :conversationId", *in.KeyConditionExpression)
	require.Equal(t, "c1", in.ExpressionAttributeValues[":conversationId"].(*types.AttributeValueMemberS).Value)
	require.True(t, *in.ScanIndexForward)
	require.True(t, *in.ConsistentRead)
	require.Nil(t, in.Limit)
}

func TestListByConversation_DrainsAllPages(t *testing.T) {
	lastKey := map[string]types.AttributeValue{
		"conversationId": &types.AttributeValueMemberS{Value: "c1"},
		"timestamp":      &types.AttributeValueMemberS{Value: "2026-03-01T09:00:00.000000000Z"},
	}
	db := &fakeDynamo{queryOuts: []*dynamodb.QueryOutput{
		{
			Items:            []map[string]types.AttributeValue{makeMessageItem("c1", "2026-03-01T09:00:00.000000000Z", "page one")},
			LastEvaluatedKey: lastKey,
		},
		{
			Items: []map[string]types.AttributeValue{makeMessageItem("c1", "2026-03-01T09:05:00.000000000Z", "page two")},
		},
	}}
	tbl := mustNewMessageTable(t, db)

	msgs, err := tbl.ListByConversation(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "page two", msgs[1].Text)
	require.Len(t, db.queryInputs, 2)
	require.Equal(t, lastKey, db.queryInputs[1].ExclusiveStartKey)
}

func TestListByConversation_EmptyResult(t *testing.T) {
	tbl := mustNewMessageTable(t, &fakeDynamo{})
	msgs, err := tbl.ListByConversation(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, msgs)
	require.Empty(t, msgs)
}

func TestListByConversation_QueryError(t *testing.T) {
	tbl := mustNewMessageTable(t, &fakeDynamo{queryErr: errors.New("ResourceNotFoundException")})
	_, err := tbl.ListByConversation(context.Background(), "c1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ListByConversation query")
}

func TestListByConversation_MalformedItem(t *testing.T) {
	item := map[string]types.AttributeValue{
		"conversationId": &types.AttributeValueMemberS{Value: "c1"},
		"timestamp":      &types.AttributeValueMemberS{Value: "2026-03-01T09:00:00.000000000Z"},
	}
	db := &fakeDynamo{queryOuts: []*dynamodb.QueryOutput{{Items: []map[string]types.AttributeValue{item}}}}
	tbl := mustNewMessageTable(t, db)
	_, err := tbl.ListByConversation(context.Background(), "c1")
	require.Error(t, err)
	require.Contains(t, err.Error(), `"message"`)
}

func TestGetPermission_Active(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"userId":         &types.AttributeValueMemberS{Value: "u1"},
		"conversationId": &types.AttributeValueMemberS{Value: "c1"},
		"active":         &types.AttributeValueMemberBOOL{Value: true},
	}}}
	tbl := mustNewPermissionTable(t, db)

	perm, found, err := tbl.GetPermission(context.Background(), "u1", "c1")
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, perm.Active)
	require.Equal(t, "u1", perm.UserID)

	in := db.lastGetInput
	require.Equal(t, "chat_permissions", *in.TableName)
	require.Equal(t, "u1", in.Key["userId"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "c1", in.Key["conversationId"].(*types.AttributeValueMemberS).Value)
	require.True(t, *in.ConsistentRead)
}

func TestGetPermission_NotFound(t *testing.T) {
	tbl := mustNewPermissionTable(t, &fakeDynamo{getOut: &dynamodb.GetItemOutput{}})
	_, found, err := tbl.GetPermission(context.Background(), "u1", "c1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestGetPermission_MissingActiveIsInactive(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: "u1"},
	}}}
	perm, found, err := mustNewPermissionTable(t, db).GetPermission(context.Background(), "u1", "c1")
	require.NoError(t, err)
	require.True(t, found)
	require.False(t, perm.Active)
}

func TestGetPermission_GetItemError(t *testing.T) {
	tbl := mustNewPermissionTable(t, &fakeDynamo{getErr: errors.New("boom")})
	_, _, err := tbl.GetPermission(context.Background(), "u1", "c1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "GetPermission")
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		name string
		av   types.AttributeValue
		want bool
	}{
		{name: "missing", av: nil, want: false},
		{name: "bool true", av: &types.AttributeValueMemberBOOL{Value: true}, want: true},
		{name: "bool false", av: &types.AttributeValueMemberBOOL{Value: false}, want: false},
		{name: "null", av: &types.AttributeValueMemberNULL{Value: true}, want: false},
		{name: "number one", av: &types.AttributeValueMemberN{Value: "1"}, want: true},
		{name: "number zero", av: &types.AttributeValueMemberN{Value: "0.0"}, want: false},
		{name: "string", av: &types.AttributeValueMemberS{Value: "yes"}, want: true},
		{name: "empty string", av: &types.AttributeValueMemberS{Value: ""}, want: false},
		{name: "map", av: &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}}, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, truthy(tc.av))
		})
	}
}
