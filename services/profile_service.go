package services

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"vibe_server/models"
	"vibe_server/utils"
)

// ProfileService owns the profile level of the ID hierarchy: profile CRUD
// plus the allocated/active bookkeeping for both profile slots (on the user
// record) and media slots (on the profile record).
//
// Ownership is structural: a caller owns a profile iff the profile ID is in
// the caller's allocated set. There is no separate ACL.
type ProfileService struct {
	Dynamo   *DynamoService
	IDs      *IDService
	Users    *UserService
	MaxMedia int
}

// ValidateProfileID checks that profileID is well formed and allocated to
// the user; with requireExisting it must also be active (created). The same
// ownership error is returned whether the ID is malformed, unknown, or
// someone else's.
func (ps *ProfileService) ValidateProfileID(ctx context.Context, userID, profileID string, requireExisting bool) (*models.User, error) {
	user, err := ps.Users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ps.IDs.ValidateID(profileID) {
		return nil, models.NewOwnershipError()
	}
	if !slices.Contains(user.AllocatedProfileIDs, profileID) {
		return nil, models.NewOwnershipError()
	}
	if requireExisting && !slices.Contains(user.ActiveProfileIDs, profileID) {
		return nil, models.NewOwnershipError()
	}
	return user, nil
}

// NextAvailableProfileID returns the lowest-index allocated profile slot not
// yet active, or false when the pool is exhausted.
func (ps *ProfileService) NextAvailableProfileID(user *models.User) (string, bool) {
	return nextAvailableSlot(user.AllocatedProfileIDs, user.ActiveProfileIDs)
}

// CreateProfile activates a profile slot: writes the profile record with its
// full pre-computed media ID pool, the owner→profile lookup item, and the
// updated user active set, all in one transaction. The not-exists condition
// on the profile item makes duplicate creation a ConflictError.
func (ps *ProfileService) CreateProfile(ctx context.Context, user *models.User, profileID string, update *models.ProfileUpdate) (*models.Profile, error) {
	if slices.Contains(user.ActiveProfileIDs, profileID) {
		return nil, models.NewConflictError("profile already created")
	}
	if err := validateProfileUpdate(update); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	profile := &models.Profile{
		PK:                models.ProfileKeyPrefix + profileID,
		SK:                models.MetadataSK,
		ProfileID:         profileID,
		UserID:            user.UserID,
		AllocatedMediaIDs: ps.IDs.AllocateIDs(profileID, ps.MaxMedia),
		ActiveMediaIDs:    []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	applyProfileUpdate(profile, update, now)

	lookup := &models.ProfileLookup{
		PK:        models.UserKeyPrefix + user.UserID,
		SK:        models.ProfileKeyPrefix + profileID,
		ProfileID: profileID,
		CreatedAt: now,
	}

	profilePut, err := ps.Dynamo.ConditionalPut(profile, "attribute_not_exists(PK)")
	if err != nil {
		return nil, err
	}
	lookupPut, err := ps.Dynamo.ConditionalPut(lookup, "")
	if err != nil {
		return nil, err
	}

	newActive := append(slices.Clone(user.ActiveProfileIDs), profileID)
	activate := ps.Dynamo.TransactUpdate(
		models.UserKeyPrefix+user.UserID, models.MetadataSK,
		"SET activeProfileIds = :active, updatedAt = :ua",
		map[string]types.AttributeValue{
			":active": utils.StringListValue(newActive),
			":ua":     &types.AttributeValueMemberS{Value: now},
			":prev":   utils.StringListValue(user.ActiveProfileIDs),
		},
		nil,
		"activeProfileIds = :prev",
	)

	if err := ps.Dynamo.TransactWrite(ctx, profilePut, lookupPut, activate); err != nil {
		if IsConditionalCheckFailed(err) {
			return nil, models.NewConflictError("profile already exists")
		}
		return nil, models.NewStorageError("failed to create profile", err)
	}

	user.ActiveProfileIDs = newActive
	log.Printf("Created profile %s for user %s", profileID, user.UserID)
	return profile, nil
}

// UpdateProfile applies the caller-editable fields to an existing profile.
func (ps *ProfileService) UpdateProfile(ctx context.Context, profileID string, update *models.ProfileUpdate) (*models.Profile, error) {
	if err := validateProfileUpdate(update); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	parts := []string{"updatedAt = :ua"}
	values := map[string]types.AttributeValue{
		":ua": &types.AttributeValueMemberS{Value: now},
	}
	names := map[string]string{}

	for field, value := range profileUpdateFields(update) {
		placeholder := ":" + field
		name := "#" + field
		parts = append(parts, fmt.Sprintf("%s = %s", name, placeholder))
		values[placeholder] = &types.AttributeValueMemberS{Value: value}
		names[name] = field
	}

	// Guarded by existence so an update racing a delete cannot upsert a
	// ghost profile record.
	attrs, err := ps.Dynamo.UpdateItem(ctx,
		models.ProfileKeyPrefix+profileID, models.MetadataSK,
		"SET "+strings.Join(parts, ", "), values, names, "attribute_exists(PK)")
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return nil, models.NewNotFoundError("profile not found")
		}
		return nil, models.NewStorageError("failed to update profile", err)
	}

	var profile models.Profile
	if err := unmarshalItem(attrs, &profile); err != nil {
		return nil, models.NewStorageError("failed to decode profile record", err)
	}
	return &profile, nil
}

// UpsertProfile creates the profile if the slot is not yet active, otherwise
// updates it.
func (ps *ProfileService) UpsertProfile(ctx context.Context, user *models.User, profileID string, update *models.ProfileUpdate) (*models.Profile, bool, error) {
	if slices.Contains(user.ActiveProfileIDs, profileID) {
		profile, err := ps.UpdateProfile(ctx, profileID, update)
		return profile, false, err
	}
	profile, err := ps.CreateProfile(ctx, user, profileID, update)
	return profile, true, err
}

// GetProfile fetches one profile record.
func (ps *ProfileService) GetProfile(ctx context.Context, profileID string) (*models.Profile, error) {
	var profile models.Profile
	found, err := ps.Dynamo.GetItemAs(ctx, models.ProfileKeyPrefix+profileID, models.MetadataSK, &profile)
	if err != nil {
		return nil, models.NewStorageError("failed to fetch profile", err)
	}
	if !found {
		return nil, models.NewNotFoundError("profile not found")
	}
	return &profile, nil
}

// DeleteProfile deactivates a profile slot: deletes the record and lookup
// item and shrinks the user's active set, transactionally. The slot stays
// allocated and can be re-created later.
func (ps *ProfileService) DeleteProfile(ctx context.Context, user *models.User, profileID string) error {
	if !slices.Contains(user.ActiveProfileIDs, profileID) {
		return models.NewNotFoundError("profile not created")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	newActive := slices.DeleteFunc(slices.Clone(user.ActiveProfileIDs), func(id string) bool {
		return id == profileID
	})
	deactivate := ps.Dynamo.TransactUpdate(
		models.UserKeyPrefix+user.UserID, models.MetadataSK,
		"SET activeProfileIds = :active, updatedAt = :ua",
		map[string]types.AttributeValue{
			":active": utils.StringListValue(newActive),
			":ua":     &types.AttributeValueMemberS{Value: now},
			":prev":   utils.StringListValue(user.ActiveProfileIDs),
		},
		nil,
		"activeProfileIds = :prev",
	)

	err := ps.Dynamo.TransactWrite(ctx,
		ps.Dynamo.TransactDelete(models.ProfileKeyPrefix+profileID, models.MetadataSK),
		ps.Dynamo.TransactDelete(models.UserKeyPrefix+user.UserID, models.ProfileKeyPrefix+profileID),
		deactivate,
	)
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return models.NewConflictError("profile changed concurrently, retry")
		}
		return models.NewStorageError("failed to delete profile", err)
	}

	user.ActiveProfileIDs = newActive
	log.Printf("Deleted profile %s for user %s", profileID, user.UserID)
	return nil
}

// ListProfiles returns the user's active profile records in creation order.
func (ps *ProfileService) ListProfiles(ctx context.Context, user *models.User) ([]*models.Profile, error) {
	profiles := make([]*models.Profile, 0, len(user.ActiveProfileIDs))
	for _, profileID := range user.ActiveProfileIDs {
		profile, err := ps.GetProfile(ctx, profileID)
		if err != nil {
			if models.IsKind(err, models.ErrNotFound) {
				log.Printf("Active profile %s has no record, skipping", profileID)
				continue
			}
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// --- media slot bookkeeping on the profile record ---

// ValidateMediaID checks allocation (and activity, when requireExisting) of
// a media ID against the profile's sets.
func (ps *ProfileService) ValidateMediaID(profile *models.Profile, mediaID string, requireExisting bool) error {
	if !ps.IDs.ValidateID(mediaID) || !slices.Contains(profile.AllocatedMediaIDs, mediaID) {
		return models.NewOwnershipError()
	}
	if requireExisting && !slices.Contains(profile.ActiveMediaIDs, mediaID) {
		return models.NewOwnershipError()
	}
	return nil
}

// NextAvailableMediaID returns the lowest-index allocated media slot not yet
// active, or false when the profile is at capacity.
func (ps *ProfileService) NextAvailableMediaID(profile *models.Profile) (string, bool) {
	return nextAvailableSlot(profile.AllocatedMediaIDs, profile.ActiveMediaIDs)
}

// TransactActivateMedia builds the transact update that appends mediaID to
// the profile's active set, guarded by the previous value so a concurrent
// mutation fails the whole transaction instead of losing the update.
func (ps *ProfileService) TransactActivateMedia(profile *models.Profile, mediaID, now string) (types.TransactWriteItem, []string, error) {
	if !slices.Contains(profile.AllocatedMediaIDs, mediaID) {
		return types.TransactWriteItem{}, nil, models.NewOwnershipError()
	}
	if slices.Contains(profile.ActiveMediaIDs, mediaID) {
		return types.TransactWriteItem{}, nil, models.NewConflictError("media ID already active")
	}
	newActive := append(slices.Clone(profile.ActiveMediaIDs), mediaID)
	item := ps.Dynamo.TransactUpdate(
		models.ProfileKeyPrefix+profile.ProfileID, models.MetadataSK,
		"SET activeMediaIds = :active, updatedAt = :ua",
		map[string]types.AttributeValue{
			":active": utils.StringListValue(newActive),
			":ua":     &types.AttributeValueMemberS{Value: now},
			":prev":   utils.StringListValue(profile.ActiveMediaIDs),
		},
		nil,
		"activeMediaIds = :prev",
	)
	return item, newActive, nil
}

// TransactDeactivateMedia builds the transact update that removes mediaID
// from the profile's active set, with the same optimistic guard.
func (ps *ProfileService) TransactDeactivateMedia(profile *models.Profile, mediaID, now string) (types.TransactWriteItem, []string, error) {
	if !slices.Contains(profile.ActiveMediaIDs, mediaID) {
		return types.TransactWriteItem{}, nil, models.NewConflictError("media ID not active")
	}
	newActive := slices.DeleteFunc(slices.Clone(profile.ActiveMediaIDs), func(id string) bool {
		return id == mediaID
	})
	item := ps.Dynamo.TransactUpdate(
		models.ProfileKeyPrefix+profile.ProfileID, models.MetadataSK,
		"SET activeMediaIds = :active, updatedAt = :ua",
		map[string]types.AttributeValue{
			":active": utils.StringListValue(newActive),
			":ua":     &types.AttributeValueMemberS{Value: now},
			":prev":   utils.StringListValue(profile.ActiveMediaIDs),
		},
		nil,
		"activeMediaIds = :prev",
	)
	return item, newActive, nil
}

// ReorderActiveMedia replaces the active media sequence. The new order must
// be exactly the current active set: any added, dropped or duplicated ID is
// rejected and the stored order is left untouched.
func (ps *ProfileService) ReorderActiveMedia(ctx context.Context, profile *models.Profile, newOrder []string) error {
	if !sameIDSet(newOrder, profile.ActiveMediaIDs) {
		return models.NewValidationError("sortedMediaIds must contain exactly the current active media IDs")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := ps.Dynamo.UpdateItem(ctx,
		models.ProfileKeyPrefix+profile.ProfileID, models.MetadataSK,
		"SET activeMediaIds = :active, updatedAt = :ua",
		map[string]types.AttributeValue{
			":active": utils.StringListValue(newOrder),
			":ua":     &types.AttributeValueMemberS{Value: now},
			":prev":   utils.StringListValue(profile.ActiveMediaIDs),
		},
		nil,
		"activeMediaIds = :prev",
	)
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return models.NewConflictError("media set changed concurrently, retry")
		}
		return models.NewStorageError("failed to reorder media", err)
	}
	profile.ActiveMediaIDs = newOrder
	return nil
}

// nextAvailableSlot picks the lowest-index allocated slot not in the active
// set. Deterministic ordering keeps allocation testable and repeatable.
func nextAvailableSlot(allocated, active []string) (string, bool) {
	for _, id := range allocated {
		if !slices.Contains(active, id) {
			return id, true
		}
	}
	return "", false
}

// sameIDSet reports whether a is a permutation of b with no duplicates.
func sameIDSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, id := range a {
		if seen[id] {
			return false
		}
		seen[id] = true
	}
	for _, id := range b {
		if !seen[id] {
			return false
		}
	}
	return true
}

// --- profile field validation ---

func validateProfileUpdate(update *models.ProfileUpdate) error {
	if update == nil {
		return nil
	}
	checks := []struct {
		value   *string
		allowed []string
		field   string
	}{
		{update.BodyType, models.BodyTypes, "bodyType"},
		{update.Sexuality, models.Sexualities, "sexuality"},
		{update.Hosting, models.HostingTypes, "hosting"},
		{update.TravelDistance, models.TravelDistances, "travelDistance"},
		{update.MeetingTime, models.MeetingTimes, "meetingTime"},
		{update.ChatStatus, models.ChatStatuses, "chatStatus"},
	}
	for _, check := range checks {
		if check.value != nil && *check.value != "" && !slices.Contains(check.allowed, *check.value) {
			return models.NewValidationError("invalid %s: %q", check.field, *check.value)
		}
	}
	return nil
}

func applyProfileUpdate(profile *models.Profile, update *models.ProfileUpdate, now string) {
	if update == nil {
		return
	}
	for field, value := range profileUpdateFields(update) {
		switch field {
		case "nickName":
			profile.NickName = value
		case "aboutMe":
			profile.AboutMe = value
		case "age":
			profile.Age = value
		case "bodyType":
			profile.BodyType = value
		case "sexuality":
			profile.Sexuality = value
		case "hosting":
			profile.Hosting = value
		case "travelDistance":
			profile.TravelDistance = value
		case "meetingTime":
			profile.MeetingTime = value
		case "chatStatus":
			profile.ChatStatus = value
		}
	}
	profile.UpdatedAt = now
}

// profileUpdateFields flattens the set fields of an update into
// attribute-name → value pairs. Free-text fields are trimmed.
func profileUpdateFields(update *models.ProfileUpdate) map[string]string {
	fields := map[string]string{}
	if update == nil {
		return fields
	}
	set := func(name string, value *string, trim bool) {
		if value == nil {
			return
		}
		v := *value
		if trim {
			v = strings.TrimSpace(v)
		}
		fields[name] = v
	}
	set("nickName", update.NickName, true)
	set("aboutMe", update.AboutMe, true)
	set("age", update.Age, false)
	set("bodyType", update.BodyType, false)
	set("sexuality", update.Sexuality, false)
	set("hosting", update.Hosting, false)
	set("travelDistance", update.TravelDistance, false)
	set("meetingTime", update.MeetingTime, false)
	set("chatStatus", update.ChatStatus, false)
	return fields
}
