package models

// Profile is the metadata record for one dating profile, keyed
// PROFILE#<profileId>/METADATA. AllocatedMediaIDs is fixed at creation;
// ActiveMediaIDs is a caller-ordered subset of it.
type Profile struct {
	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`

	ProfileID string `dynamodbav:"profileId" json:"profileId"`
	UserID    string `dynamodbav:"userId" json:"userId"`

	NickName       string `dynamodbav:"nickName,omitempty" json:"nickName,omitempty"`
	AboutMe        string `dynamodbav:"aboutMe,omitempty" json:"aboutMe,omitempty"`
	Age            string `dynamodbav:"age,omitempty" json:"age,omitempty"`
	BodyType       string `dynamodbav:"bodyType,omitempty" json:"bodyType,omitempty"`
	Sexuality      string `dynamodbav:"sexuality,omitempty" json:"sexuality,omitempty"`
	Hosting        string `dynamodbav:"hosting,omitempty" json:"hosting,omitempty"`
	TravelDistance string `dynamodbav:"travelDistance,omitempty" json:"travelDistance,omitempty"`
	MeetingTime    string `dynamodbav:"meetingTime,omitempty" json:"meetingTime,omitempty"`
	ChatStatus     string `dynamodbav:"chatStatus,omitempty" json:"chatStatus,omitempty"`

	AllocatedMediaIDs []string `dynamodbav:"allocatedMediaIds" json:"allocatedMediaIds"`
	ActiveMediaIDs    []string `dynamodbav:"activeMediaIds" json:"activeMediaIds"`

	CreatedAt string `dynamodbav:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt string `dynamodbav:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// ProfileLookup is the owner→profile child item, keyed
// USER#<userId>/PROFILE#<profileId>, used to list a user's active profiles
// without scanning.
type ProfileLookup struct {
	PK        string `dynamodbav:"PK" json:"-"`
	SK        string `dynamodbav:"SK" json:"-"`
	ProfileID string `dynamodbav:"profileId" json:"profileId"`
	CreatedAt string `dynamodbav:"createdAt" json:"createdAt"`
}

// ProfileUpdate is the caller-editable subset of a profile record.
type ProfileUpdate struct {
	NickName       *string `json:"nickName,omitempty"`
	AboutMe        *string `json:"aboutMe,omitempty"`
	Age            *string `json:"age,omitempty"`
	BodyType       *string `json:"bodyType,omitempty"`
	Sexuality      *string `json:"sexuality,omitempty"`
	Hosting        *string `json:"hosting,omitempty"`
	TravelDistance *string `json:"travelDistance,omitempty"`
	MeetingTime    *string `json:"meetingTime,omitempty"`
	ChatStatus     *string `json:"chatStatus,omitempty"`
}

// Enumerated preference values accepted on a profile.
var (
	BodyTypes       = []string{"petite", "slim", "average", "fit", "muscular", "stocky", "chubby", "large"}
	Sexualities     = []string{"gay", "bisexual", "curious", "trans", "fluid"}
	HostingTypes    = []string{"hostAndTravel", "hostOnly", "travelOnly"}
	TravelDistances = []string{"none", "block", "neighbourhood", "city", "metropolitan", "state"}
	MeetingTimes    = []string{"now", "today", "whenever"}
	ChatStatuses    = []string{"online", "busy", "offline"}
)
