package models

// Composite-key prefixes for the single application table. Every entity lives
// under PK = <prefix><id> with SK = MetadataSK for the entity record itself,
// or a child prefix for parent→child lookup items.
const (
	UserKeyPrefix     = "USER#"
	ProfileKeyPrefix  = "PROFILE#"
	MediaKeyPrefix    = "MEDIA#"
	PlatformKeyPrefix = "PLATFORM#"
	TimeKeyPrefix     = "TIME#"

	MetadataSK = "METADATA"
)

// Secondary indexes on the application table.
const (
	MediaLookupIndex = "GSI1" // GSI1PK=MEDIA#<id> → owning profile item
	TimeBucketIndex  = "GSI2" // GSI2PK=TIME#<yyyymmdd> → media by upload day
)

// User statuses
const (
	UserStatusActive = "active"
	UserStatusBanned = "banned"
)

// Media statuses. A record moves PENDING → PROCESSING exactly once on a
// validated upload completion, then to READY or ERROR out-of-band. READY and
// ERROR are terminal.
const (
	MediaStatusPending    = "pending"
	MediaStatusProcessing = "processing"
	MediaStatusReady      = "ready"
	MediaStatusError      = "error"
)

// Supported authentication platforms.
const (
	PlatformTelegram = "telegram"
)
