package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3PresignAPI is the presigning slice of the S3 client.
type S3PresignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var _ S3PresignAPI = (*s3.PresignClient)(nil)

// S3Service wraps the media bucket: presigned upload credentials for direct
// client uploads, plus the object operations the processing step needs.
type S3Service struct {
	Client    S3API
	Presigner S3PresignAPI
	Bucket    string
}

// PresignUpload issues a time-limited PUT credential bound to the declared
// content type and content length. The client can neither change the type
// nor upload a different size without invalidating the signature.
func (ss *S3Service) PresignUpload(ctx context.Context, key, contentType string, size int64, ttl time.Duration) (string, map[string]string, error) {
	input := &s3.PutObjectInput{
		Bucket:        &ss.Bucket,
		Key:           &key,
		ContentType:   &contentType,
		ContentLength: aws.Int64(size),
	}
	request, err := ss.Presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", nil, fmt.Errorf("failed to presign upload for %s: %w", key, err)
	}

	headers := map[string]string{
		"Content-Type":   contentType,
		"Content-Length": strconv.FormatInt(size, 10),
	}
	for name, values := range request.SignedHeader {
		if len(values) > 0 {
			headers[name] = values[0]
		}
	}
	return request.URL, headers, nil
}

// DeleteObjects removes the given keys in one quiet batch call.
func (ss *S3Service) DeleteObjects(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	objects := make([]s3types.ObjectIdentifier, 0, len(keys))
	for i := range keys {
		objects = append(objects, s3types.ObjectIdentifier{Key: &keys[i]})
	}
	_, err := ss.Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: &ss.Bucket,
		Delete: &s3types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete %d objects: %w", len(keys), err)
	}
	return nil
}

// GetObject downloads one object fully into memory.
func (ss *S3Service) GetObject(ctx context.Context, key string) ([]byte, error) {
	output, err := ss.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &ss.Bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

// PutObject uploads one object with the given content type and cache policy.
func (ss *S3Service) PutObject(ctx context.Context, key string, body []byte, contentType, cacheControl string) error {
	input := &s3.PutObjectInput{
		Bucket:      &ss.Bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	}
	if cacheControl != "" {
		input.CacheControl = &cacheControl
	}
	if _, err := ss.Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}
