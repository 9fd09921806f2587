package types

import "time"

// Profile is the off-chain user profile keyed by wallet address. Addresses
// are stored lowercased; comparisons elsewhere are case-insensitive.
type Profile struct {
	Address   string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:64"`
	Bio       string `gorm:"size:512"`
	AvatarURL string `gorm:"size:256"`
	Location  string `gorm:"size:64"`
	Website   string `gorm:"size:256"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Publish request bodies

type PublishSivRequest struct {
	Body           string `json:"body"`
	Attachment     string `json:"attachment"` // base64 file bytes, optional
	AttachmentMime string `json:"attachmentMime"`
}

type PublishPollRequest struct {
	Question string   `json:"question" binding:"required"`
	Options  []string `json:"options" binding:"required"`
}

type VoteRequest struct {
	Option string `json:"option" binding:"required"`
}

type UpdateProfileRequest struct {
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl"`
	Location  string `json:"location"`
	Website   string `json:"website"`
}
