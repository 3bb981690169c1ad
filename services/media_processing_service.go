package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/disintegration/imaging"

	_ "golang.org/x/image/webp"

	"vibe_server/models"
)

const (
	minImageDimension = 100
	maxImageDimension = 4000

	thumbnailWidth  = 300
	thumbnailHeight = 400

	derivativeCacheControl = "public, max-age=31536000"
)

// MediaProcessingService handles bucket notifications for finished uploads:
// it validates the actual bytes, renders the serving derivatives and drives
// the record to its terminal READY or ERROR status.
type MediaProcessingService struct {
	Dynamo           *DynamoService
	S3               *S3Service
	CloudFrontDomain string
}

// ProcessEvent walks the notification records and processes every created
// object under the upload prefix. One bad object does not stop the rest.
func (ps *MediaProcessingService) ProcessEvent(ctx context.Context, event *models.S3Event) error {
	var errs []error
	for _, record := range event.Records {
		if !strings.HasPrefix(record.EventName, "ObjectCreated") {
			continue
		}
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			errs = append(errs, fmt.Errorf("undecodable object key %q: %w", record.S3.Object.Key, err))
			continue
		}
		if !strings.HasPrefix(key, "uploads/") {
			continue
		}
		if err := ps.ProcessObject(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ProcessObject validates one uploaded object and writes its derivatives.
// Validation failures mark the record ERROR; infrastructure failures are
// returned so the notification can be retried.
func (ps *MediaProcessingService) ProcessObject(ctx context.Context, key string) error {
	mediaID := mediaIDFromKey(key)
	if mediaID == "" {
		return fmt.Errorf("object key %q has no media ID", key)
	}

	media, err := ps.lookupMedia(ctx, mediaID)
	if err != nil {
		return err
	}
	if media == nil {
		log.Printf("Warning: no media record for uploaded object %s, skipping", key)
		return nil
	}

	data, err := ps.S3.GetObject(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to fetch upload for media %s: %w", mediaID, err)
	}

	img, dims, reason := decodeAndValidate(data)
	if reason != "" {
		log.Printf("Media %s failed validation: %s", mediaID, reason)
		return ps.markError(ctx, media, reason)
	}

	originalKey := OriginalObjectKey(mediaID)
	thumbKey := ThumbObjectKey(mediaID)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return ps.markError(ctx, media, "failed to encode image")
	}
	if err := ps.S3.PutObject(ctx, originalKey, buf.Bytes(), "image/jpeg", derivativeCacheControl); err != nil {
		return fmt.Errorf("failed to store original for media %s: %w", mediaID, err)
	}

	thumb := imaging.Fill(img, thumbnailWidth, thumbnailHeight, imaging.Center, imaging.Lanczos)
	buf.Reset()
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return ps.markError(ctx, media, "failed to encode thumbnail")
	}
	if err := ps.S3.PutObject(ctx, thumbKey, buf.Bytes(), "image/jpeg", derivativeCacheControl); err != nil {
		return fmt.Errorf("failed to store thumbnail for media %s: %w", mediaID, err)
	}

	if err := ps.markReady(ctx, media, originalKey, thumbKey, dims); err != nil {
		return err
	}
	log.Printf("Media %s processed (%dx%d)", mediaID, dims.Width, dims.Height)
	return nil
}

// lookupMedia resolves a media ID back to its record through the reverse
// lookup index. Returns nil when no record exists.
func (ps *MediaProcessingService) lookupMedia(ctx context.Context, mediaID string) (*models.Media, error) {
	items, err := ps.Dynamo.QueryIndex(ctx, models.MediaLookupIndex, "GSI1PK", models.MediaKeyPrefix+mediaID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up media %s: %w", mediaID, err)
	}
	if len(items) == 0 {
		return nil, nil
	}
	var media models.Media
	if err := unmarshalItem(items[0], &media); err != nil {
		return nil, fmt.Errorf("failed to decode media record %s: %w", mediaID, err)
	}
	return &media, nil
}

func (ps *MediaProcessingService) markReady(ctx context.Context, media *models.Media, originalKey, thumbKey string, dims models.MediaDimensions) error {
	now := time.Now().UTC().Format(time.RFC3339)
	dimsAttr := map[string]types.AttributeValue{
		"width":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", dims.Width)},
		"height": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", dims.Height)},
	}
	_, err := ps.Dynamo.UpdateItem(ctx,
		media.PK, media.SK,
		"SET #status = :status, originalUrl = :orig, thumbnailUrl = :thumb, dimensions = :dims, processedAt = :pa, updatedAt = :ua REMOVE errorMessage",
		map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: models.MediaStatusReady},
			":orig":   &types.AttributeValueMemberS{Value: ps.serveURL(originalKey)},
			":thumb":  &types.AttributeValueMemberS{Value: ps.serveURL(thumbKey)},
			":dims":   &types.AttributeValueMemberM{Value: dimsAttr},
			":pa":     &types.AttributeValueMemberS{Value: now},
			":ua":     &types.AttributeValueMemberS{Value: now},
		},
		map[string]string{"#status": "status"},
		"attribute_exists(PK)",
	)
	if err != nil {
		return fmt.Errorf("failed to mark media %s ready: %w", media.MediaID, err)
	}
	return nil
}

func (ps *MediaProcessingService) markError(ctx context.Context, media *models.Media, reason string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := ps.Dynamo.UpdateItem(ctx,
		media.PK, media.SK,
		"SET #status = :status, errorMessage = :msg, processedAt = :pa, updatedAt = :ua",
		map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: models.MediaStatusError},
			":msg":    &types.AttributeValueMemberS{Value: reason},
			":pa":     &types.AttributeValueMemberS{Value: now},
			":ua":     &types.AttributeValueMemberS{Value: now},
		},
		map[string]string{"#status": "status"},
		"attribute_exists(PK)",
	)
	if err != nil {
		return fmt.Errorf("failed to mark media %s errored: %w", media.MediaID, err)
	}
	return nil
}

func (ps *MediaProcessingService) serveURL(key string) string {
	return fmt.Sprintf("https://%s/%s", ps.CloudFrontDomain, key)
}

// decodeAndValidate decodes the uploaded bytes and checks format and
// dimensions. A non-empty reason means the content is rejected.
func decodeAndValidate(data []byte) (image.Image, models.MediaDimensions, string) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, models.MediaDimensions{}, "unrecognized image data"
	}
	switch format {
	case "jpeg", "png", "webp":
	default:
		return nil, models.MediaDimensions{}, fmt.Sprintf("unsupported image format: %s", format)
	}
	if config.Width < minImageDimension || config.Height < minImageDimension {
		return nil, models.MediaDimensions{}, fmt.Sprintf("image too small: %dx%d", config.Width, config.Height)
	}
	if config.Width > maxImageDimension || config.Height > maxImageDimension {
		return nil, models.MediaDimensions{}, fmt.Sprintf("image too large: %dx%d", config.Width, config.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, models.MediaDimensions{}, "failed to decode image"
	}
	bounds := img.Bounds()
	return img, models.MediaDimensions{Width: bounds.Dx(), Height: bounds.Dy()}, ""
}

// mediaIDFromKey extracts the media ID from an upload object key of the form
// uploads/<date>/<userId>/<profileId>/<mediaId>.<ext>, where the ID segment
// is path-escaped. '/' in an ID arrives as %2F, so the last path segment is
// always the whole escaped ID; unescaping restores the stored ID.
func mediaIDFromKey(key string) string {
	base := path.Base(key)
	id, _, _ := strings.Cut(base, ".")
	decoded, err := url.PathUnescape(id)
	if err != nil {
		return ""
	}
	return decoded
}
