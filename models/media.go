package models

// MediaDimensions holds pixel dimensions reported by the client or measured
// during processing.
type MediaDimensions struct {
	Width  int `dynamodbav:"width" json:"width"`
	Height int `dynamodbav:"height" json:"height"`
}

// Media is one media record, keyed PROFILE#<profileId>/MEDIA#<mediaId>.
// A record exists only for IDs in the owning profile's allocated set and
// joins the active set once its status has left PENDING.
type Media struct {
	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`

	// GSI1 gives reverse lookup by media ID (used by the processing step,
	// which only knows the upload object key). GSI2 buckets media by upload
	// day for operational queries.
	GSI1PK string `dynamodbav:"GSI1PK" json:"-"`
	GSI1SK string `dynamodbav:"GSI1SK" json:"-"`
	GSI2PK string `dynamodbav:"GSI2PK,omitempty" json:"-"`
	GSI2SK string `dynamodbav:"GSI2SK,omitempty" json:"-"`

	MediaID   string `dynamodbav:"mediaId" json:"mediaId"`
	ProfileID string `dynamodbav:"profileId" json:"profileId"`
	UserID    string `dynamodbav:"userId" json:"userId"`

	Status     string           `dynamodbav:"status" json:"status"`
	S3Key      string           `dynamodbav:"s3Key" json:"-"`
	MediaType  string           `dynamodbav:"mediaType,omitempty" json:"mediaType,omitempty"`
	Size       int64            `dynamodbav:"size,omitempty" json:"size,omitempty"`
	Dimensions *MediaDimensions `dynamodbav:"dimensions,omitempty" json:"dimensions,omitempty"`
	Duration   float64          `dynamodbav:"duration,omitempty" json:"duration,omitempty"`

	OriginalURL  string `dynamodbav:"originalUrl,omitempty" json:"originalUrl,omitempty"`
	ThumbnailURL string `dynamodbav:"thumbnailUrl,omitempty" json:"thumbnailUrl,omitempty"`
	ErrorMessage string `dynamodbav:"errorMessage,omitempty" json:"errorMessage,omitempty"`

	CreatedAt   string `dynamodbav:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt   string `dynamodbav:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	UploadedAt  string `dynamodbav:"uploadedAt,omitempty" json:"uploadedAt,omitempty"`
	ProcessedAt string `dynamodbav:"processedAt,omitempty" json:"processedAt,omitempty"`
}

// UploadRequest is the client's declaration of the file it intends to upload.
type UploadRequest struct {
	MediaType  string           `json:"mediaType"`
	MediaSize  int64            `json:"mediaSize"`
	Dimensions *MediaDimensions `json:"dimensions,omitempty"`
	Duration   float64          `json:"duration,omitempty"`
}

// UploadCredential is the scoped, time-limited authorization returned to the
// client for a direct-to-S3 upload.
type UploadCredential struct {
	MediaID       string            `json:"mediaId"`
	UploadURL     string            `json:"uploadUrl"`
	UploadMethod  string            `json:"uploadMethod"`
	UploadHeaders map[string]string `json:"uploadHeaders"`
	ExpiresAt     string            `json:"expiresAt"`
}

// CompletionReport is the client's account of how the direct upload went.
type CompletionReport struct {
	UploadSuccess bool   `json:"uploadSuccess"`
	ActualSize    int64  `json:"actualSize,omitempty"`
	ObjectETag    string `json:"objectETag,omitempty"`
}

// CompletionResult is returned after a validated completion; the terminal
// READY/ERROR transition happens out-of-band.
type CompletionResult struct {
	MediaID                 string `json:"mediaId"`
	Status                  string `json:"status"`
	EstimatedProcessingTime int    `json:"estimatedProcessingTime"`
}
