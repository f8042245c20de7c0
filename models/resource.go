package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Resource is a shared file or link reachable through its access token until it expires or is deleted.
type Resource struct {
	ID             string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name           string         `gorm:"size:255;not null" json:"name"`
	ResourceURL    string         `gorm:"column:resource_url;size:2048;not null" json:"resourceUrl"`
	AccessToken    string         `gorm:"size:64;not null;uniqueIndex" json:"accessToken"`
	ExpirationTime time.Time      `gorm:"not null;index" json:"expirationTime"`
	IsExpired      bool           `gorm:"not null;default:false" json:"isExpired"`
	OwnerID        string         `gorm:"type:varchar(36);not null;index" json:"ownerId"`
	CreatedAt      time.Time      `gorm:"not null" json:"createdAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Populated only for uploaded files.
	FileKey  *string `gorm:"size:255" json:"fileKey"`
	FileName *string `gorm:"size:255" json:"fileName"`
	FileSize *int64  `json:"fileSize"`
	MimeType *string `gorm:"size:255" json:"mimeType"`

	Owner *User `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (r *Resource) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// HasFile reports whether the resource is backed by an uploaded blob.
func (r *Resource) HasFile() bool {
	return r.FileKey != nil && *r.FileKey != ""
}

// DownloadName is the file name presented to anonymous downloaders.
func (r *Resource) DownloadName() string {
	if r.FileName != nil && *r.FileName != "" {
		return *r.FileName
	}
	if r.FileKey != nil {
		return *r.FileKey
	}
	return r.Name
}

// IsAccessible reports whether r may be served through its access token at now.
// The live time check applies even when the sweep has not flagged the row yet.
// Accessible is the query form of the same predicate.
func (r *Resource) IsAccessible(now time.Time) bool {
	return !r.DeletedAt.Valid && !r.IsExpired && r.ExpirationTime.After(now)
}

// IsDue reports whether the expiry sweep should flag r at now. DueForExpiry is its query form.
func (r *Resource) IsDue(now time.Time) bool {
	return !r.DeletedAt.Valid && !r.IsExpired && r.ExpirationTime.Before(now)
}

// Accessible restricts a query to resources servable through their token at now.
// Soft-deleted rows are excluded by gorm for every query on Resource.
func Accessible(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("is_expired = ? AND expiration_time > ?", false, now)
	}
}

// DueForExpiry restricts a query to unflagged resources whose expiration time has passed.
func DueForExpiry(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("expiration_time < ? AND is_expired = ?", now, false)
	}
}

// OwnedBy restricts a query to resources of a single owner.
func OwnedBy(ownerID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("owner_id = ?", ownerID)
	}
}
