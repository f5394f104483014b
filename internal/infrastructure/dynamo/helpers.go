package dynamo

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// strValue builds the single-entry value map used by key conditions.
func strValue(placeholder, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		placeholder: &types.AttributeValueMemberS{Value: value},
	}
}

// numValue builds the single-entry value map used by numeric filters.
func numValue(placeholder string, n int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		placeholder: &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", n)},
	}
}
