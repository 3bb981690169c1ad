package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"vibe_server/models"
)

// UserService owns the user level of the ID hierarchy: deterministic user
// IDs, the fixed pool of pre-allocated profile IDs, and first-sight creation
// that stays idempotent under concurrent authentication.
type UserService struct {
	Dynamo      *DynamoService
	IDs         *IDService
	MaxProfiles int
}

// DeriveUserID maps an external platform identity to the internal user ID.
func (us *UserService) DeriveUserID(platform, platformID string) string {
	return us.IDs.DeriveID(fmt.Sprintf("%s:%s", platform, platformID))
}

// CreateOrUpdateUser creates the user on first sight or refreshes the login
// bookkeeping on every later authentication. Creation writes the user record
// and the platform lookup record in one transaction guarded by a not-exists
// condition; a losing concurrent creator falls through to the update path,
// so duplicate authentications converge on one entity.
//
// The returned bool reports whether this call created the record.
func (us *UserService) CreateOrUpdateUser(ctx context.Context, platform, platformID string, metadata map[string]interface{}) (*models.User, bool, error) {
	userID := us.DeriveUserID(platform, platformID)
	now := time.Now().UTC().Format(time.RFC3339)

	user := &models.User{
		PK:                  models.UserKeyPrefix + userID,
		SK:                  models.MetadataSK,
		UserID:              userID,
		Platform:            platform,
		PlatformID:          platformID,
		PlatformMetadata:    metadata,
		AllocatedProfileIDs: us.IDs.AllocateIDs(userID, us.MaxProfiles),
		ActiveProfileIDs:    []string{},
		Status:              models.UserStatusActive,
		Preferences:         map[string]interface{}{"notifications": true, "privacy": "public"},
		LoginCount:          1,
		LastActiveAt:        now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	lookup := &models.PlatformLookup{
		PK:        fmt.Sprintf("%s%s:%s", models.PlatformKeyPrefix, platform, platformID),
		SK:        models.MetadataSK,
		UserID:    userID,
		CreatedAt: now,
	}

	userPut, err := us.Dynamo.ConditionalPut(user, "attribute_not_exists(PK)")
	if err != nil {
		return nil, false, err
	}
	lookupPut, err := us.Dynamo.ConditionalPut(lookup, "")
	if err != nil {
		return nil, false, err
	}

	err = us.Dynamo.TransactWrite(ctx, userPut, lookupPut)
	if err == nil {
		log.Printf("Created user %s (platform %s)", userID, platform)
		return user, true, nil
	}
	if !IsConditionalCheckFailed(err) {
		return nil, false, models.NewStorageError("failed to create user", err)
	}

	// Lost the race or returning user: refresh bookkeeping instead.
	updated, err := us.recordLogin(ctx, userID, metadata, now)
	if err != nil {
		return nil, false, err
	}
	return updated, false, nil
}

// recordLogin increments loginCount and refreshes activity timestamps on an
// existing user record.
func (us *UserService) recordLogin(ctx context.Context, userID string, metadata map[string]interface{}, now string) (*models.User, error) {
	existing, err := us.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	values := map[string]types.AttributeValue{
		":lc":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", existing.LoginCount+1)},
		":laa": &types.AttributeValueMemberS{Value: now},
		":ua":  &types.AttributeValueMemberS{Value: now},
	}
	expression := "SET loginCount = :lc, lastActiveAt = :laa, updatedAt = :ua"

	attrs, err := us.Dynamo.UpdateItem(ctx,
		models.UserKeyPrefix+userID, models.MetadataSK,
		expression, values, nil, "")
	if err != nil {
		return nil, models.NewStorageError("failed to record login", err)
	}

	var user models.User
	if err := unmarshalUser(attrs, &user); err != nil {
		return nil, err
	}
	log.Printf("User %s login count now %d", userID, user.LoginCount)
	return &user, nil
}

// GetUser fetches one user record.
func (us *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if !us.IDs.ValidateID(userID) {
		return nil, models.NewValidationError("invalid user ID")
	}
	var user models.User
	found, err := us.Dynamo.GetItemAs(ctx, models.UserKeyPrefix+userID, models.MetadataSK, &user)
	if err != nil {
		return nil, models.NewStorageError("failed to fetch user", err)
	}
	if !found {
		return nil, models.NewNotFoundError("user not found")
	}
	return &user, nil
}

// IsBanned reports whether the user is banned right now. A ban without an
// expiry, or with one that cannot be parsed, is treated as permanent.
func (us *UserService) IsBanned(user *models.User) bool {
	if user.Status != models.UserStatusBanned {
		return false
	}
	if user.StatusData.BanTo == "" {
		return true
	}
	banTo, err := time.Parse(time.RFC3339, user.StatusData.BanTo)
	if err != nil {
		return true
	}
	return time.Now().UTC().Before(banTo)
}

func unmarshalUser(attrs map[string]types.AttributeValue, out *models.User) error {
	if err := unmarshalItem(attrs, out); err != nil {
		return models.NewStorageError("failed to decode user record", err)
	}
	return nil
}
