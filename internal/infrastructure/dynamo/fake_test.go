package dynamo

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type item = map[string]types.AttributeValue

// fakeAPI is a single-table stand-in for DynamoDB. Queries match one string
// attribute and order by created_at_ns; scans return every item and leave
// filtering to the caller.
type fakeAPI struct {
	mu      sync.Mutex
	hashKey string
	items   map[string]item
}

func newFakeAPI(hashKey string) *fakeAPI {
	return &fakeAPI{hashKey: hashKey, items: map[string]item{}}
}

func str(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func num(av types.AttributeValue) int64 {
	if n, ok := av.(*types.AttributeValueMemberN); ok {
		v, _ := strconv.ParseInt(n.Value, 10, 64)
		return v
	}
	return 0
}

func (f *fakeAPI) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[str(in.Item[f.hashKey])] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[str(in.Key[f.hashKey])]}, nil
}

func (f *fakeAPI) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, str(in.Key[f.hashKey]))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attr := fieldUserID
	if name, ok := in.ExpressionAttributeNames["#k"]; ok {
		attr = name
	}
	var want string
	for _, v := range in.ExpressionAttributeValues {
		want = str(v)
	}
	var out []item
	for _, it := range f.items {
		if av, ok := it[attr]; ok && str(av) == want {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return num(out[i][fieldCreatedAtNs]) < num(out[j][fieldCreatedAtNs]) })
	if in.Limit != nil && int(*in.Limit) < len(out) {
		out = out[:*in.Limit]
	}
	return &dynamodb.QueryOutput{Items: out}, nil
}

func (f *fakeAPI) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]item, 0, len(f.items))
	for _, it := range f.items {
		out = append(out, it)
	}
	return &dynamodb.ScanOutput{Items: out}, nil
}

func (f *fakeAPI) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}
