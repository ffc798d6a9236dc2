package models

// MirroredUser is a denormalized profile row synced from the profile service.
// Standings and trophy responses join against it for display names.
type MirroredUser struct {
	ExternalUserID    string  `json:"external_user_id" gorm:"primaryKey"`
	Username          string  `json:"username" gorm:"index"`
	Avatar            string  `json:"avatar" gorm:"default:'avatar1'"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`

	Timestamps
}
