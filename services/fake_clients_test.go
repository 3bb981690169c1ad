package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/google/uuid"
)

// fakeDynamoDB is an in-memory table that understands the key conventions,
// update expressions and condition expressions the services emit. It is not
// a general DynamoDB: unknown expressions fail the test loudly.
type fakeDynamoDB struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamoDB() *fakeDynamoDB {
	return &fakeDynamoDB{items: map[string]map[string]types.AttributeValue{}}
}

func stringAttr(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func storageKey(item map[string]types.AttributeValue) string {
	return stringAttr(item["PK"]) + "|" + stringAttr(item["SK"])
}

func cloneItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	clone := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		clone[k] = v
	}
	return clone
}

// attrEqual compares attribute values, treating nil and empty lists as equal.
func attrEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		bv, ok := b.(*types.AttributeValueMemberN)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberL:
		bv, ok := b.(*types.AttributeValueMemberL)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		for i := range av.Value {
			if !attrEqual(av.Value[i], bv.Value[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		if resolved, ok := names[name]; ok {
			return resolved
		}
	}
	return name
}

// evalCondition handles the condition forms the services use: existence
// checks on the key and single-attribute equality.
func evalCondition(item map[string]types.AttributeValue, condition string, values map[string]types.AttributeValue, names map[string]string) (bool, error) {
	switch {
	case condition == "":
		return true, nil
	case condition == "attribute_not_exists(PK)":
		return item == nil, nil
	case condition == "attribute_exists(PK)":
		return item != nil, nil
	}
	lhs, rhs, ok := strings.Cut(condition, " = ")
	if !ok || !strings.HasPrefix(rhs, ":") {
		return false, fmt.Errorf("unsupported condition expression %q", condition)
	}
	if item == nil {
		return false, nil
	}
	expected, ok := values[rhs]
	if !ok {
		return false, fmt.Errorf("condition %q references missing value %s", condition, rhs)
	}
	return attrEqual(item[resolveName(lhs, names)], expected), nil
}

// applyUpdate interprets "SET a = :a, #b = :b [REMOVE c, d]" expressions.
func applyUpdate(item map[string]types.AttributeValue, expression string, values map[string]types.AttributeValue, names map[string]string) error {
	setPart := expression
	removePart := ""
	if idx := strings.Index(expression, " REMOVE "); idx >= 0 {
		setPart = expression[:idx]
		removePart = expression[idx+len(" REMOVE "):]
	}
	setPart, ok := strings.CutPrefix(setPart, "SET ")
	if !ok {
		return fmt.Errorf("unsupported update expression %q", expression)
	}
	for _, assignment := range strings.Split(setPart, ", ") {
		target, placeholder, ok := strings.Cut(assignment, " = ")
		if !ok || !strings.HasPrefix(placeholder, ":") {
			return fmt.Errorf("unsupported assignment %q", assignment)
		}
		value, ok := values[placeholder]
		if !ok {
			return fmt.Errorf("assignment %q references missing value %s", assignment, placeholder)
		}
		item[resolveName(target, names)] = value
	}
	for _, field := range strings.Split(removePart, ", ") {
		if field != "" {
			delete(item, resolveName(field, names))
		}
	}
	return nil
}

func (f *fakeDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: cloneItem(f.items[storageKey(params.Key)])}, nil
}

func (f *fakeDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[storageKey(params.Item)] = cloneItem(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamoDB) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := storageKey(params.Key)
	existing := f.items[key]

	condition := ""
	if params.ConditionExpression != nil {
		condition = *params.ConditionExpression
	}
	ok, err := evalCondition(existing, condition, params.ExpressionAttributeValues, params.ExpressionAttributeNames)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}

	item := cloneItem(existing)
	if item == nil {
		item = cloneItem(params.Key)
	}
	if err := applyUpdate(item, *params.UpdateExpression, params.ExpressionAttributeValues, params.ExpressionAttributeNames); err != nil {
		return nil, err
	}
	f.items[key] = item
	return &dynamodb.UpdateItemOutput{Attributes: cloneItem(item)}, nil
}

func (f *fakeDynamoDB) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, storageKey(params.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamoDB) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []map[string]types.AttributeValue
	keys := make([]string, 0, len(f.items))
	for k := range f.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	condition := *params.KeyConditionExpression
	if params.IndexName != nil {
		attr, _, ok := strings.Cut(condition, " = ")
		if !ok {
			return nil, fmt.Errorf("unsupported index condition %q", condition)
		}
		want := params.ExpressionAttributeValues[":pk"]
		for _, k := range keys {
			item := f.items[k]
			if item[attr] != nil && attrEqual(item[attr], want) {
				matched = append(matched, cloneItem(item))
			}
		}
	} else {
		if condition != "PK = :pk AND begins_with(SK, :skPrefix)" {
			return nil, fmt.Errorf("unsupported key condition %q", condition)
		}
		pk := stringAttr(params.ExpressionAttributeValues[":pk"])
		prefix := stringAttr(params.ExpressionAttributeValues[":skPrefix"])
		for _, k := range keys {
			item := f.items[k]
			if stringAttr(item["PK"]) == pk && strings.HasPrefix(stringAttr(item["SK"]), prefix) {
				matched = append(matched, cloneItem(item))
			}
		}
	}
	return &dynamodb.QueryOutput{Items: matched, Count: int32(len(matched))}, nil
}

func (f *fakeDynamoDB) TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Validate every condition first; nothing is applied on any failure.
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, item := range params.TransactItems {
		var existing map[string]types.AttributeValue
		var condition string
		var values map[string]types.AttributeValue
		var names map[string]string

		switch {
		case item.Put != nil:
			existing = f.items[storageKey(item.Put.Item)]
			if item.Put.ConditionExpression != nil {
				condition = *item.Put.ConditionExpression
			}
			values = item.Put.ExpressionAttributeValues
			names = item.Put.ExpressionAttributeNames
		case item.Update != nil:
			existing = f.items[storageKey(item.Update.Key)]
			if item.Update.ConditionExpression != nil {
				condition = *item.Update.ConditionExpression
			}
			values = item.Update.ExpressionAttributeValues
			names = item.Update.ExpressionAttributeNames
		case item.Delete != nil:
			existing = f.items[storageKey(item.Delete.Key)]
			if item.Delete.ConditionExpression != nil {
				condition = *item.Delete.ConditionExpression
			}
			values = item.Delete.ExpressionAttributeValues
			names = item.Delete.ExpressionAttributeNames
		}

		ok, err := evalCondition(existing, condition, values, names)
		if err != nil {
			return nil, err
		}
		if ok {
			reasons[i] = types.CancellationReason{Code: aws.String("None")}
		} else {
			reasons[i] = types.CancellationReason{Code: aws.String("ConditionalCheckFailed")}
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, item := range params.TransactItems {
		switch {
		case item.Put != nil:
			f.items[storageKey(item.Put.Item)] = cloneItem(item.Put.Item)
		case item.Update != nil:
			key := storageKey(item.Update.Key)
			updated := cloneItem(f.items[key])
			if updated == nil {
				updated = cloneItem(item.Update.Key)
			}
			if err := applyUpdate(updated, *item.Update.UpdateExpression, item.Update.ExpressionAttributeValues, item.Update.ExpressionAttributeNames); err != nil {
				return nil, err
			}
			f.items[key] = updated
		case item.Delete != nil:
			delete(f.items, storageKey(item.Delete.Key))
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// rawItem exposes stored items to assertions.
func (f *fakeDynamoDB) rawItem(pk, sk string) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneItem(f.items[pk+"|"+sk])
}

// fakeS3 is an in-memory object store.
type fakeS3 struct {
	mu            sync.Mutex
	objects       map[string][]byte
	contentTypes  map[string]string
	cacheControls map[string]string
	deletedKeys   []string
	failDeletes   bool
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		objects:       map[string][]byte{},
		contentTypes:  map[string]string{},
		cacheControls: map[string]string{},
	}
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*params.Key]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", *params.Key)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*params.Key] = data
	if params.ContentType != nil {
		f.contentTypes[*params.Key] = *params.ContentType
	}
	if params.CacheControl != nil {
		f.cacheControls[*params.Key] = *params.CacheControl
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeletes {
		return nil, fmt.Errorf("delete failure injected")
	}
	for _, object := range params.Delete.Objects {
		delete(f.objects, *object.Key)
		f.deletedKeys = append(f.deletedKeys, *object.Key)
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) put(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
}

func (f *fakeS3) get(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	return data, ok
}

// fakePresigner hands back deterministic URLs without real signing.
type fakePresigner struct{}

func (f *fakePresigner) PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{
		URL:    fmt.Sprintf("https://%s.test/%s?signed=1", *params.Bucket, *params.Key),
		Method: "PUT",
		SignedHeader: http.Header{
			"Content-Type": []string{*params.ContentType},
		},
	}, nil
}

// fakeSecretsManager serves secrets from a map.
type fakeSecretsManager struct {
	secrets map[string]string
}

func (f *fakeSecretsManager) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	value, ok := f.secrets[*params.SecretId]
	if !ok {
		return nil, fmt.Errorf("no such secret: %s", *params.SecretId)
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: &value}, nil
}

const (
	testNamespace   = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	testBotToken    = "12345:test-bot-token"
	testBotTokenARN = "arn:aws:secretsmanager:test:bot-token"
	testJWTSecret   = "test-signing-secret"
	testJWTARN      = "arn:aws:secretsmanager:test:jwt-secret"
)

// testEnv wires the full service stack over the in-memory fakes.
type testEnv struct {
	dynamoFake *fakeDynamoDB
	s3Fake     *fakeS3

	dynamo     *DynamoService
	s3         *S3Service
	ids        *IDService
	secrets    *SecretsService
	users      *UserService
	profiles   *ProfileService
	media      *MediaService
	processing *MediaProcessingService
	auth       *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dynamoFake := newFakeDynamoDB()
	s3Fake := newFakeS3()

	dynamo := &DynamoService{Client: dynamoFake, Table: "VibeAppTest"}
	s3Service := &S3Service{Client: s3Fake, Presigner: &fakePresigner{}, Bucket: "vibe-media-test"}
	ids := NewIDServiceWithNamespace(uuid.MustParse(testNamespace), 8)
	secrets := NewSecretsService(&fakeSecretsManager{secrets: map[string]string{
		testBotTokenARN: testBotToken,
		testJWTARN:      testJWTSecret,
	}})

	users := &UserService{Dynamo: dynamo, IDs: ids, MaxProfiles: 5}
	profiles := &ProfileService{Dynamo: dynamo, IDs: ids, Users: users, MaxMedia: 5}
	media := &MediaService{
		Dynamo:         dynamo,
		S3:             s3Service,
		Profiles:       profiles,
		MaxFileSize:    10 * 1024 * 1024,
		AllowedFormats: []string{"jpeg", "jpg", "png", "webp"},
		UploadExpiry:   time.Hour,
	}
	processing := &MediaProcessingService{
		Dynamo:           dynamo,
		S3:               s3Service,
		CloudFrontDomain: "cdn.vibe.test",
	}
	auth := &AuthService{
		Secrets:      secrets,
		Users:        users,
		BotTokenARN:  testBotTokenARN,
		JWTSecretARN: testJWTARN,
		TokenTTL:     7 * 24 * time.Hour,
	}

	return &testEnv{
		dynamoFake: dynamoFake,
		s3Fake:     s3Fake,
		dynamo:     dynamo,
		s3:         s3Service,
		ids:        ids,
		secrets:    secrets,
		users:      users,
		profiles:   profiles,
		media:      media,
		processing: processing,
		auth:       auth,
	}
}
