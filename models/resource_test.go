package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestResourcePredicates(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		resource   Resource
		accessible bool
		due        bool
	}{
		{
			name:       "active",
			resource:   Resource{ExpirationTime: now.Add(time.Hour)},
			accessible: true,
		},
		{
			name:     "time passed but not flagged",
			resource: Resource{ExpirationTime: now.Add(-time.Second)},
			due:      true,
		},
		{
			name:     "flagged",
			resource: Resource{ExpirationTime: now.Add(-time.Hour), IsExpired: true},
		},
		{
			name:     "flagged while time remains",
			resource: Resource{ExpirationTime: now.Add(time.Hour), IsExpired: true},
		},
		{
			name:     "expires exactly now",
			resource: Resource{ExpirationTime: now},
		},
		{
			name: "soft deleted",
			resource: Resource{
				ExpirationTime: now.Add(-time.Hour),
				DeletedAt:      gorm.DeletedAt{Time: now, Valid: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.accessible, tt.resource.IsAccessible(now))
			assert.Equal(t, tt.due, tt.resource.IsDue(now))
		})
	}
}

func TestDownloadName(t *testing.T) {
	key := "1700000000000-abc.pdf"
	name := "report.pdf"

	assert.Equal(t, name, (&Resource{FileKey: &key, FileName: &name}).DownloadName())
	assert.Equal(t, key, (&Resource{FileKey: &key}).DownloadName())
	assert.True(t, (&Resource{FileKey: &key}).HasFile())
	assert.False(t, (&Resource{ResourceURL: "https://example.com"}).HasFile())
}
