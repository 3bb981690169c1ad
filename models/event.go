package models

// S3Event is the notification payload delivered when objects land in the
// media bucket.
type S3Event struct {
	Records []S3EventRecord `json:"Records"`
}

// S3EventRecord is one object-level notification.
type S3EventRecord struct {
	EventName string        `json:"eventName"`
	S3        S3EventEntity `json:"s3"`
}

type S3EventEntity struct {
	Bucket S3EventBucket `json:"bucket"`
	Object S3EventObject `json:"object"`
}

type S3EventBucket struct {
	Name string `json:"name"`
}

type S3EventObject struct {
	// Key arrives URL-encoded in notifications.
	Key  string `json:"key"`
	Size int64  `json:"size"`
}
