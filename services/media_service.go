package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"vibe_server/models"
)

// estimatedProcessingSeconds is the hint returned after a validated upload
// completion; the terminal transition happens out-of-band.
const estimatedProcessingSeconds = 30

// MediaService coordinates the media lifecycle: issuing upload credentials,
// validating client-reported completions, and keeping the profile's
// allocated/active invariant intact across the PENDING → PROCESSING →
// READY/ERROR state machine.
type MediaService struct {
	Dynamo   *DynamoService
	S3       *S3Service
	Profiles *ProfileService

	MaxFileSize    int64
	AllowedFormats []string
	UploadExpiry   time.Duration
}

// UploadObjectKey is where the client uploads the raw file. IDs use the
// base64 alphabet, which includes '/', so every ID segment is path-escaped
// to keep the key's directory structure intact.
func UploadObjectKey(date, userID, profileID, mediaID, ext string) string {
	return fmt.Sprintf("uploads/%s/%s/%s/%s.%s",
		date, url.PathEscape(userID), url.PathEscape(profileID), url.PathEscape(mediaID), ext)
}

// OriginalObjectKey and ThumbObjectKey are the processed derivatives.
func OriginalObjectKey(mediaID string) string { return fmt.Sprintf("original/%s.jpg", mediaID) }
func ThumbObjectKey(mediaID string) string    { return fmt.Sprintf("thumb/%s.jpg", mediaID) }

// RequestUpload validates the descriptor, claims the next free media slot,
// issues a scoped upload credential and persists the PENDING record. The
// slot is not activated yet; activation happens only on confirmed
// completion.
func (ms *MediaService) RequestUpload(ctx context.Context, userID, profileID string, req *models.UploadRequest) (*models.UploadCredential, error) {
	if _, err := ms.Profiles.ValidateProfileID(ctx, userID, profileID, true); err != nil {
		return nil, err
	}
	format, err := ms.validateUploadRequest(req)
	if err != nil {
		return nil, err
	}

	profile, err := ms.Profiles.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	mediaID, ok := ms.Profiles.NextAvailableMediaID(profile)
	if !ok {
		return nil, models.NewCapacityError("no available media slots for this profile")
	}

	now := time.Now().UTC()
	nowISO := now.Format(time.RFC3339)
	nowTag := now.Format("20060102150405")
	key := UploadObjectKey(now.Format("20060102"), userID, profileID, mediaID, format)

	uploadURL, headers, err := ms.S3.PresignUpload(ctx, key, req.MediaType, req.MediaSize, ms.UploadExpiry)
	if err != nil {
		return nil, models.NewStorageError("failed to issue upload credential", err)
	}

	media := &models.Media{
		PK:         models.ProfileKeyPrefix + profileID,
		SK:         models.MediaKeyPrefix + mediaID,
		GSI1PK:     models.MediaKeyPrefix + mediaID,
		GSI1SK:     models.ProfileKeyPrefix + profileID,
		GSI2PK:     models.TimeKeyPrefix + nowTag[:8],
		GSI2SK:     fmt.Sprintf("%s#%s%s", nowTag, models.MediaKeyPrefix, mediaID),
		MediaID:    mediaID,
		ProfileID:  profileID,
		UserID:     userID,
		Status:     models.MediaStatusPending,
		S3Key:      key,
		MediaType:  req.MediaType,
		Size:       req.MediaSize,
		Dimensions: req.Dimensions,
		Duration:   req.Duration,
		CreatedAt:  nowISO,
		UpdatedAt:  nowISO,
	}
	if err := ms.Dynamo.PutItem(ctx, media); err != nil {
		return nil, models.NewStorageError("failed to store pending media record", err)
	}

	log.Printf("Issued upload credential for media %s (profile %s)", mediaID, profileID)
	return &models.UploadCredential{
		MediaID:       mediaID,
		UploadURL:     uploadURL,
		UploadMethod:  "PUT",
		UploadHeaders: headers,
		ExpiresAt:     now.Add(ms.UploadExpiry).Format(time.RFC3339),
	}, nil
}

// CompleteUpload validates the client's completion report against the
// pending record and advances it to PROCESSING while activating the slot —
// both effects in one transaction, so a crash or replay can never leave the
// status and the active set disagreeing. A replayed completion fails the
// status condition and surfaces as a conflict, not a second activation.
func (ms *MediaService) CompleteUpload(ctx context.Context, userID, profileID, mediaID string, report *models.CompletionReport) (*models.CompletionResult, error) {
	if !report.UploadSuccess {
		return nil, models.NewValidationError("upload was not successful")
	}
	if _, err := ms.Profiles.ValidateProfileID(ctx, userID, profileID, true); err != nil {
		return nil, err
	}
	profile, err := ms.Profiles.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if err := ms.Profiles.ValidateMediaID(profile, mediaID, false); err != nil {
		return nil, err
	}

	media, err := ms.getMedia(ctx, profileID, mediaID)
	if err != nil {
		return nil, err
	}
	if media.Status != models.MediaStatusPending {
		return nil, models.NewConflictError("media is not pending upload")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	statusUpdate := ms.Dynamo.TransactUpdate(
		models.ProfileKeyPrefix+profileID, models.MediaKeyPrefix+mediaID,
		"SET #status = :status, uploadedAt = :uploadedAt, updatedAt = :ua",
		map[string]types.AttributeValue{
			":status":     &types.AttributeValueMemberS{Value: models.MediaStatusProcessing},
			":uploadedAt": &types.AttributeValueMemberS{Value: now},
			":ua":         &types.AttributeValueMemberS{Value: now},
			":pending":    &types.AttributeValueMemberS{Value: models.MediaStatusPending},
		},
		map[string]string{"#status": "status"},
		"#status = :pending",
	)
	activate, newActive, err := ms.Profiles.TransactActivateMedia(profile, mediaID, now)
	if err != nil {
		return nil, err
	}

	if err := ms.Dynamo.TransactWrite(ctx, statusUpdate, activate); err != nil {
		if IsConditionalCheckFailed(err) {
			return nil, models.NewConflictError("upload already completed")
		}
		return nil, models.NewStorageError("failed to complete upload", err)
	}

	profile.ActiveMediaIDs = newActive
	log.Printf("Media %s moved to processing (profile %s)", mediaID, profileID)
	return &models.CompletionResult{
		MediaID:                 mediaID,
		Status:                  models.MediaStatusProcessing,
		EstimatedProcessingTime: estimatedProcessingSeconds,
	}, nil
}

// GetMediaStatus returns one media record for its owner.
func (ms *MediaService) GetMediaStatus(ctx context.Context, userID, profileID, mediaID string) (*models.Media, error) {
	if _, err := ms.Profiles.ValidateProfileID(ctx, userID, profileID, true); err != nil {
		return nil, err
	}
	profile, err := ms.Profiles.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if err := ms.Profiles.ValidateMediaID(profile, mediaID, false); err != nil {
		return nil, err
	}
	return ms.getMedia(ctx, profileID, mediaID)
}

// ListProfileMedia returns all media records for a profile, active ones
// first in the caller-controlled order.
func (ms *MediaService) ListProfileMedia(ctx context.Context, userID, profileID string) ([]*models.Media, error) {
	if _, err := ms.Profiles.ValidateProfileID(ctx, userID, profileID, true); err != nil {
		return nil, err
	}
	profile, err := ms.Profiles.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	items, err := ms.Dynamo.QueryPrefix(ctx, models.ProfileKeyPrefix+profileID, models.MediaKeyPrefix)
	if err != nil {
		return nil, models.NewStorageError("failed to list media", err)
	}
	byID := make(map[string]*models.Media, len(items))
	for _, item := range items {
		var media models.Media
		if err := unmarshalItem(item, &media); err != nil {
			return nil, models.NewStorageError("failed to decode media record", err)
		}
		byID[media.MediaID] = &media
	}

	ordered := make([]*models.Media, 0, len(byID))
	for _, id := range profile.ActiveMediaIDs {
		if media, ok := byID[id]; ok {
			ordered = append(ordered, media)
			delete(byID, id)
		}
	}
	for _, id := range profile.AllocatedMediaIDs {
		if media, ok := byID[id]; ok {
			ordered = append(ordered, media)
		}
	}
	return ordered, nil
}

// DeleteMedia removes the record and its storage objects. Object deletion is
// best effort: a storage failure is logged and the record delete proceeds.
// The slot returns to the available pool.
func (ms *MediaService) DeleteMedia(ctx context.Context, userID, profileID, mediaID string) error {
	if _, err := ms.Profiles.ValidateProfileID(ctx, userID, profileID, true); err != nil {
		return err
	}
	profile, err := ms.Profiles.GetProfile(ctx, profileID)
	if err != nil {
		return err
	}
	if err := ms.Profiles.ValidateMediaID(profile, mediaID, false); err != nil {
		return err
	}

	media, err := ms.getMedia(ctx, profileID, mediaID)
	if err != nil {
		return err
	}

	keys := []string{ThumbObjectKey(mediaID), OriginalObjectKey(mediaID)}
	if media.S3Key != "" {
		keys = append(keys, media.S3Key)
	}
	if err := ms.S3.DeleteObjects(ctx, keys); err != nil {
		log.Printf("Warning: failed to delete storage objects for media %s: %v", mediaID, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if slices.Contains(profile.ActiveMediaIDs, mediaID) {
		deactivate, newActive, err := ms.Profiles.TransactDeactivateMedia(profile, mediaID, now)
		if err != nil {
			return err
		}
		err = ms.Dynamo.TransactWrite(ctx,
			ms.Dynamo.TransactDelete(models.ProfileKeyPrefix+profileID, models.MediaKeyPrefix+mediaID),
			deactivate,
		)
		if err != nil {
			if IsConditionalCheckFailed(err) {
				return models.NewConflictError("media set changed concurrently, retry")
			}
			return models.NewStorageError("failed to delete media", err)
		}
		profile.ActiveMediaIDs = newActive
	} else {
		if err := ms.Dynamo.DeleteItem(ctx, models.ProfileKeyPrefix+profileID, models.MediaKeyPrefix+mediaID); err != nil {
			return models.NewStorageError("failed to delete media record", err)
		}
	}

	log.Printf("Deleted media %s (profile %s)", mediaID, profileID)
	return nil
}

// ReorderMedia replaces the active media order after an exact set check.
func (ms *MediaService) ReorderMedia(ctx context.Context, userID, profileID string, newOrder []string) (*models.Profile, error) {
	if _, err := ms.Profiles.ValidateProfileID(ctx, userID, profileID, true); err != nil {
		return nil, err
	}
	profile, err := ms.Profiles.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if err := ms.Profiles.ReorderActiveMedia(ctx, profile, newOrder); err != nil {
		return nil, err
	}
	return profile, nil
}

func (ms *MediaService) getMedia(ctx context.Context, profileID, mediaID string) (*models.Media, error) {
	var media models.Media
	found, err := ms.Dynamo.GetItemAs(ctx, models.ProfileKeyPrefix+profileID, models.MediaKeyPrefix+mediaID, &media)
	if err != nil {
		return nil, models.NewStorageError("failed to fetch media record", err)
	}
	if !found {
		return nil, models.NewNotFoundError("media record not found")
	}
	return &media, nil
}

// validateUploadRequest enforces the descriptor limits and returns the file
// format (the subtype of the media type).
func (ms *MediaService) validateUploadRequest(req *models.UploadRequest) (string, error) {
	if req == nil || req.MediaType == "" {
		return "", models.NewValidationError("mediaType is required")
	}
	class, format, ok := strings.Cut(req.MediaType, "/")
	if !ok || format == "" {
		return "", models.NewValidationError("mediaType must be <class>/<format>")
	}
	if class != "image" {
		return "", models.NewValidationError("only image media is supported")
	}
	format = strings.ToLower(format)
	if !slices.Contains(ms.AllowedFormats, format) {
		return "", models.NewValidationError("unsupported format: %s", format)
	}
	if req.MediaSize <= 0 {
		return "", models.NewValidationError("mediaSize must be positive")
	}
	if req.MediaSize > ms.MaxFileSize {
		return "", models.NewValidationError("file size exceeds limit of %d bytes", ms.MaxFileSize)
	}
	return format, nil
}
