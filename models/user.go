package models

// UserStatusData carries ban bookkeeping for a user account.
type UserStatusData struct {
	BanFrom       string                   `dynamodbav:"banFrom,omitempty" json:"banFrom,omitempty"`
	BanTo         string                   `dynamodbav:"banTo,omitempty" json:"banTo,omitempty"`
	BanReason     string                   `dynamodbav:"banReason,omitempty" json:"banReason,omitempty"`
	BanHistory    []map[string]interface{} `dynamodbav:"banHistory,omitempty" json:"banHistory,omitempty"`
	BanCount      int                      `dynamodbav:"banCount" json:"banCount"`
	ReportedCount int                      `dynamodbav:"reportedCount" json:"reportedCount"`
}

// User is the metadata record for one account, keyed USER#<userId>/METADATA.
// AllocatedProfileIDs is computed once at first sight and never resized;
// ActiveProfileIDs is always a subset of it, in creation order.
type User struct {
	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`

	UserID           string                 `dynamodbav:"userId" json:"userId"`
	Platform         string                 `dynamodbav:"platform" json:"platform"`
	PlatformID       string                 `dynamodbav:"platformId" json:"platformId"`
	PlatformMetadata map[string]interface{} `dynamodbav:"platformMetadata,omitempty" json:"platformMetadata,omitempty"`

	AllocatedProfileIDs []string `dynamodbav:"allocatedProfileIds" json:"allocatedProfileIds"`
	ActiveProfileIDs    []string `dynamodbav:"activeProfileIds" json:"activeProfileIds"`

	Status      string                 `dynamodbav:"status" json:"status"`
	StatusData  UserStatusData         `dynamodbav:"statusData" json:"statusData"`
	Preferences map[string]interface{} `dynamodbav:"preferences,omitempty" json:"preferences,omitempty"`

	LoginCount   int    `dynamodbav:"loginCount" json:"loginCount"`
	LastActiveAt string `dynamodbav:"lastActiveAt,omitempty" json:"lastActiveAt,omitempty"`
	CreatedAt    string `dynamodbav:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt    string `dynamodbav:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// PlatformLookup maps an external platform identity to the derived user ID,
// keyed PLATFORM#<platform>:<platformId>/METADATA. The mapping is redundant
// with deterministic derivation but makes reverse queries cheap.
type PlatformLookup struct {
	PK        string `dynamodbav:"PK" json:"-"`
	SK        string `dynamodbav:"SK" json:"-"`
	UserID    string `dynamodbav:"userId" json:"userId"`
	CreatedAt string `dynamodbav:"createdAt" json:"createdAt"`
}
