package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibe_server/models"
)

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 10 {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 50, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// uploadedTestMedia walks a media record to PROCESSING and plants the upload
// bytes in the fake bucket, returning the record.
func uploadedTestMedia(t *testing.T, env *testEnv, platformID string, data []byte) *models.Media {
	t.Helper()
	ctx := context.Background()
	user := createTestUser(t, env, platformID)
	profile := createTestProfile(t, env, user)
	credential := requestTestUpload(t, env, user, profile)
	completeTestUpload(t, env, user, profile, credential.MediaID)

	media, err := env.media.GetMediaStatus(ctx, user.UserID, profile.ProfileID, credential.MediaID)
	require.NoError(t, err)
	env.s3Fake.put(media.S3Key, data)
	return media
}

func TestProcessObjectGeneratesDerivatives(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	media := uploadedTestMedia(t, env, "3001", encodeTestPNG(t, 800, 600))

	require.NoError(t, env.processing.ProcessObject(ctx, media.S3Key))

	var updated models.Media
	found, err := env.dynamo.GetItemAs(ctx, media.PK, media.SK, &updated)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, models.MediaStatusReady, updated.Status)
	assert.Equal(t, "https://cdn.vibe.test/original/"+media.MediaID+".jpg", updated.OriginalURL)
	assert.Equal(t, "https://cdn.vibe.test/thumb/"+media.MediaID+".jpg", updated.ThumbnailURL)
	require.NotNil(t, updated.Dimensions)
	assert.Equal(t, 800, updated.Dimensions.Width)
	assert.Equal(t, 600, updated.Dimensions.Height)
	assert.NotEmpty(t, updated.ProcessedAt)
	assert.Empty(t, updated.ErrorMessage)

	originalData, ok := env.s3Fake.get(OriginalObjectKey(media.MediaID))
	require.True(t, ok)
	original, err := imaging.Decode(bytes.NewReader(originalData))
	require.NoError(t, err)
	assert.Equal(t, 800, original.Bounds().Dx())

	thumbData, ok := env.s3Fake.get(ThumbObjectKey(media.MediaID))
	require.True(t, ok)
	thumb, err := imaging.Decode(bytes.NewReader(thumbData))
	require.NoError(t, err)
	assert.Equal(t, thumbnailWidth, thumb.Bounds().Dx())
	assert.Equal(t, thumbnailHeight, thumb.Bounds().Dy())

	assert.Equal(t, "image/jpeg", env.s3Fake.contentTypes[ThumbObjectKey(media.MediaID)])
	assert.Equal(t, derivativeCacheControl, env.s3Fake.cacheControls[ThumbObjectKey(media.MediaID)])
}

func TestProcessObjectRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	media := uploadedTestMedia(t, env, "3002", []byte("this is not an image"))

	require.NoError(t, env.processing.ProcessObject(ctx, media.S3Key))

	var updated models.Media
	found, err := env.dynamo.GetItemAs(ctx, media.PK, media.SK, &updated)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, models.MediaStatusError, updated.Status)
	assert.Equal(t, "unrecognized image data", updated.ErrorMessage)

	_, ok := env.s3Fake.get(OriginalObjectKey(media.MediaID))
	assert.False(t, ok, "no derivatives for rejected media")
}

func TestProcessObjectRejectsBadDimensions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	small := uploadedTestMedia(t, env, "3003", encodeTestPNG(t, 50, 50))
	require.NoError(t, env.processing.ProcessObject(ctx, small.S3Key))

	var updated models.Media
	found, err := env.dynamo.GetItemAs(ctx, small.PK, small.SK, &updated)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.MediaStatusError, updated.Status)
	assert.Contains(t, updated.ErrorMessage, "image too small")

	wide := uploadedTestMedia(t, env, "3004", encodeTestPNG(t, 4500, 200))
	require.NoError(t, env.processing.ProcessObject(ctx, wide.S3Key))

	found, err = env.dynamo.GetItemAs(ctx, wide.PK, wide.SK, &updated)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.MediaStatusError, updated.Status)
	assert.Contains(t, updated.ErrorMessage, "image too large")
}

func TestProcessObjectUnknownMediaSkipped(t *testing.T) {
	env := newTestEnv(t)
	key := "uploads/20260828/someuser/someprof/unknown1.jpeg"
	env.s3Fake.put(key, encodeTestPNG(t, 200, 200))

	assert.NoError(t, env.processing.ProcessObject(context.Background(), key))
}

func TestProcessEventHandlesEncodedKeysAndFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	media := uploadedTestMedia(t, env, "3005", encodeTestPNG(t, 400, 400))

	event := &models.S3Event{Records: []models.S3EventRecord{
		{EventName: "ObjectRemoved:Delete", S3: models.S3EventEntity{Object: models.S3EventObject{Key: media.S3Key}}},
		{EventName: "ObjectCreated:Put", S3: models.S3EventEntity{Object: models.S3EventObject{Key: "original/ignored1.jpg"}}},
		{EventName: "ObjectCreated:Put", S3: models.S3EventEntity{Object: models.S3EventObject{Key: url.QueryEscape(media.S3Key)}}},
	}}
	require.NoError(t, env.processing.ProcessEvent(ctx, event))

	var updated models.Media
	found, err := env.dynamo.GetItemAs(ctx, media.PK, media.SK, &updated)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.MediaStatusReady, updated.Status)
}

// plantedTestMedia writes a PROCESSING record for a fixed media ID and plants
// the upload bytes under its object key. The allocator draws IDs from the full
// base64 alphabet, so fixed IDs let tests pin down '/' and '+'.
func plantedTestMedia(t *testing.T, env *testEnv, mediaID string, data []byte) *models.Media {
	t.Helper()
	const userID, profileID = "u/ser+AB", "pr/of+AB"
	key := UploadObjectKey("20260828", userID, profileID, mediaID, "png")
	media := &models.Media{
		PK:        models.ProfileKeyPrefix + profileID,
		SK:        models.MediaKeyPrefix + mediaID,
		GSI1PK:    models.MediaKeyPrefix + mediaID,
		GSI1SK:    models.ProfileKeyPrefix + profileID,
		MediaID:   mediaID,
		ProfileID: profileID,
		UserID:    userID,
		Status:    models.MediaStatusProcessing,
		S3Key:     key,
	}
	require.NoError(t, env.dynamo.PutItem(context.Background(), media))
	env.s3Fake.put(key, data)
	return media
}

func TestProcessObjectHandlesSlashAndPlusInIDs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	media := plantedTestMedia(t, env, "E+9/9M/i", encodeTestPNG(t, 400, 400))

	assert.Contains(t, media.S3Key, "%2F", "slashes in IDs must not open new key segments")
	assert.Equal(t, media.MediaID, mediaIDFromKey(media.S3Key))

	require.NoError(t, env.processing.ProcessObject(ctx, media.S3Key))

	var updated models.Media
	found, err := env.dynamo.GetItemAs(ctx, media.PK, media.SK, &updated)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.MediaStatusReady, updated.Status)

	_, ok := env.s3Fake.get(OriginalObjectKey(media.MediaID))
	assert.True(t, ok)
}

func TestProcessEventDecodesEscapedIDKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	media := plantedTestMedia(t, env, "a+B/c9/Z", encodeTestPNG(t, 300, 300))

	event := &models.S3Event{Records: []models.S3EventRecord{
		{EventName: "ObjectCreated:Put", S3: models.S3EventEntity{Object: models.S3EventObject{Key: url.QueryEscape(media.S3Key)}}},
	}}
	require.NoError(t, env.processing.ProcessEvent(ctx, event))

	var updated models.Media
	found, err := env.dynamo.GetItemAs(ctx, media.PK, media.SK, &updated)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.MediaStatusReady, updated.Status)
}

func TestMediaIDFromKey(t *testing.T) {
	assert.Equal(t, "aB3x9Zq1", mediaIDFromKey("uploads/20260828/user1/prof1/aB3x9Zq1.jpeg"))
	assert.Equal(t, "aB3x9Zq1", mediaIDFromKey("uploads/20260828/user1/prof1/aB3x9Zq1.png"))
	assert.Equal(t, "noext", mediaIDFromKey("uploads/20260828/user1/prof1/noext"))
	assert.Equal(t, "E+9/9M/i", mediaIDFromKey("uploads/20260828/user1/prof1/E+9%2F9M%2Fi.jpeg"))
	assert.Equal(t, "", mediaIDFromKey("uploads/20260828/user1/prof1/bad%zz.jpeg"))
}
