package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/sharelink/models"
	"github.com/cppla/sharelink/storage"
	"github.com/cppla/sharelink/utils"
)

// List filters accepted by ResourceService.List. Any other value lists everything.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// UploadsPathPrefix is the resourceUrl prefix recorded for uploaded files.
const UploadsPathPrefix = "/uploads/"

// ResourceService manages the lifecycle of shared resources: creation, owner queries,
// token gated access, soft deletion and the expiry transition.
type ResourceService struct {
	db            *gorm.DB
	blobs         storage.Store
	defaultExpiry time.Duration
	now           func() time.Time
}

// NewResourceService creates a ResourceService. Resources created without an explicit
// expiration time live for defaultExpiry.
func NewResourceService(db *gorm.DB, blobs storage.Store, defaultExpiry time.Duration) *ResourceService {
	return &ResourceService{
		db:            db,
		blobs:         blobs,
		defaultExpiry: defaultExpiry,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Upload is a file submitted for sharing.
type Upload struct {
	Reader       io.Reader
	OriginalName string
	Size         int64
	MimeType     string
}

// CreateInput describes a new resource. Exactly one of File or ResourceURL supplies the content;
// File wins when both are present.
type CreateInput struct {
	OwnerID        string
	Name           string
	ResourceURL    string
	ExpirationTime *time.Time
	File           *Upload
}

// AccessResult is what an anonymous token holder receives: the resource and, for uploads,
// the opened blob. Callers must close Object.Body.
type AccessResult struct {
	Resource *models.Resource
	Object   *storage.Object
}

// Create persists a new resource with a fresh access token.
func (s *ResourceService) Create(ctx context.Context, in CreateInput) (*models.Resource, error) {
	if in.File == nil && in.ResourceURL == "" {
		return nil, ErrContentRequired
	}

	token, err := utils.NewAccessToken()
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	now := s.now()
	res := &models.Resource{
		Name:           resolveName(in),
		ResourceURL:    in.ResourceURL,
		AccessToken:    token,
		ExpirationTime: now.Add(s.defaultExpiry),
		OwnerID:        in.OwnerID,
	}
	if in.ExpirationTime != nil {
		res.ExpirationTime = in.ExpirationTime.UTC()
	}

	if in.File != nil {
		key, err := s.blobs.Save(ctx, in.File.OriginalName, in.File.Reader, in.File.Size, in.File.MimeType)
		if err != nil {
			return nil, fmt.Errorf("store upload: %w", err)
		}
		size := in.File.Size
		res.ResourceURL = UploadsPathPrefix + key
		res.FileKey = &key
		res.FileName = &in.File.OriginalName
		res.FileSize = &size
		if in.File.MimeType != "" {
			res.MimeType = &in.File.MimeType
		}
	}

	if err := s.db.WithContext(ctx).Create(res).Error; err != nil {
		if res.FileKey != nil {
			s.discardBlob(*res.FileKey)
		}
		if isUniqueViolation(err) {
			return nil, ErrTokenConflict.Wrap(err)
		}
		return nil, fmt.Errorf("create resource: %w", err)
	}
	return res, nil
}

// List returns the caller's resources in creation order, optionally narrowed by status.
func (s *ResourceService) List(ctx context.Context, ownerID, status string) ([]models.Resource, error) {
	q := s.db.WithContext(ctx).Scopes(models.OwnedBy(ownerID))
	switch status {
	case StatusActive:
		q = q.Scopes(models.Accessible(s.now()))
	case StatusExpired:
		// trusts the flag maintained by the sweep
		q = q.Where("is_expired = ?", true)
	}

	resources := make([]models.Resource, 0)
	if err := q.Order("created_at ASC").Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return resources, nil
}

// Get returns one of the caller's resources.
func (s *ResourceService) Get(ctx context.Context, ownerID, id string) (*models.Resource, error) {
	var res models.Resource
	err := s.db.WithContext(ctx).Scopes(models.OwnedBy(ownerID)).Where("id = ?", id).First(&res).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("get resource: %w", err)
	}
	return &res, nil
}

// Access resolves an access token for an anonymous caller. Unknown, deleted and expired
// resources, as well as uploads whose blob is gone, all yield ErrResourceNotFound.
func (s *ResourceService) Access(ctx context.Context, token string) (*AccessResult, error) {
	if token == "" {
		return nil, ErrResourceNotFound
	}
	now := s.now()

	var res models.Resource
	err := s.db.WithContext(ctx).Scopes(models.Accessible(now)).Where("access_token = ?", token).First(&res).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("find resource by token: %w", err)
	}
	if !res.IsAccessible(now) {
		return nil, ErrResourceNotFound
	}

	if !res.HasFile() {
		return &AccessResult{Resource: &res}, nil
	}

	obj, err := s.blobs.Open(ctx, *res.FileKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			utils.Logger.Warn("blob missing for resource", zap.String("resource_id", res.ID), zap.String("file_key", *res.FileKey))
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return &AccessResult{Resource: &res, Object: obj}, nil
}

// Delete soft-deletes one of the caller's resources. The row and any blob are kept.
func (s *ResourceService) Delete(ctx context.Context, ownerID, id string) error {
	result := s.db.WithContext(ctx).
		Scopes(models.OwnedBy(ownerID)).
		Where("id = ?", id).
		Delete(&models.Resource{})
	if result.Error != nil {
		return fmt.Errorf("delete resource: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrResourceNotFound
	}
	return nil
}

// MarkExpired flags every live resource whose expiration time has passed and returns how many
// rows changed. Running it again without new expirations changes nothing.
func (s *ResourceService) MarkExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Resource{}).
		Scopes(models.DueForExpiry(s.now())).
		Update("is_expired", true)
	if result.Error != nil {
		return 0, fmt.Errorf("mark expired resources: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// discardBlob removes a blob whose resource row could not be written.
func (s *ResourceService) discardBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.blobs.Remove(ctx, key); err != nil {
		utils.Logger.Error("failed to remove orphaned upload", zap.String("file_key", key), zap.Error(err))
	}
}

func resolveName(in CreateInput) string {
	if name := utils.SanitizeName(in.Name); name != "" {
		return name
	}
	if in.File != nil && in.File.OriginalName != "" {
		return in.File.OriginalName
	}
	return "Untitled_Resource_" + uuid.NewString()
}
