package utils

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// StringListValue builds a DynamoDB list attribute from a string slice.
// A nil slice becomes an empty list, never a NULL attribute, so list
// equality conditions keep working on freshly created records.
func StringListValue(values []string) types.AttributeValue {
	list := make([]types.AttributeValue, 0, len(values))
	for _, v := range values {
		list = append(list, &types.AttributeValueMemberS{Value: v})
	}
	return &types.AttributeValueMemberL{Value: list}
}
