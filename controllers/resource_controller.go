package controllers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/sharelink/middleware"
	"github.com/cppla/sharelink/models"
	"github.com/cppla/sharelink/services"
	"github.com/cppla/sharelink/utils"
)

// AccessPathPrefix is the public route under which access tokens are served.
const AccessPathPrefix = "/resources/access/"

var (
	errInvalidExpiration = utils.BadRequest(40011, "expirationTime must be an RFC 3339 timestamp")
	errInvalidMultipart  = utils.BadRequest(40030, "invalid multipart body")
)

// ResourceController exposes the resource lifecycle over HTTP.
type ResourceController struct {
	resources      *services.ResourceService
	maxUploadBytes int64
}

// NewResourceController creates a new ResourceController. Uploads above maxUploadBytes are rejected.
func NewResourceController(resources *services.ResourceService, maxUploadBytes int64) *ResourceController {
	return &ResourceController{resources: resources, maxUploadBytes: maxUploadBytes}
}

type createResourceRequest struct {
	Name           string     `json:"name"`
	ResourceURL    string     `json:"resourceUrl"`
	ExpirationTime *time.Time `json:"expirationTime"`
}

type resourceResponse struct {
	*models.Resource
	AccessURL string `json:"accessUrl"`
}

// CreateResource stores an uploaded file or a link for the current user.
func (r *ResourceController) CreateResource(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		_ = ctx.Error(services.ErrNotAuthorized)
		return
	}

	in := services.CreateInput{OwnerID: user.ID}
	if ctx.ContentType() == gin.MIMEMultipartPOSTForm {
		if !r.bindMultipart(ctx, &in) {
			return
		}
		if in.File != nil {
			if closer, ok := in.File.Reader.(interface{ Close() error }); ok {
				defer closer.Close()
			}
		}
	} else {
		var req createResourceRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			_ = ctx.Error(errInvalidPayload.Wrap(err))
			return
		}
		in.Name = req.Name
		in.ResourceURL = strings.TrimSpace(req.ResourceURL)
		in.ExpirationTime = req.ExpirationTime
	}

	res, err := r.resources.Create(ctx.Request.Context(), in)
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	utils.Created(ctx, "Resource created successfully", r.view(ctx, res))
}

// bindMultipart fills in from a multipart form. It reports false after pushing an error.
func (r *ResourceController) bindMultipart(ctx *gin.Context, in *services.CreateInput) bool {
	// leave headroom for the text fields around the file part
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, r.maxUploadBytes+1<<20)

	file, header, err := ctx.Request.FormFile("file")
	switch {
	case err == nil:
		if header.Size > r.maxUploadBytes {
			_ = file.Close()
			_ = ctx.Error(r.errTooLarge())
			return false
		}
		in.File = &services.Upload{
			Reader:       file,
			OriginalName: header.Filename,
			Size:         header.Size,
			MimeType:     header.Header.Get("Content-Type"),
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = ctx.Error(r.errTooLarge().Wrap(err))
		} else {
			_ = ctx.Error(errInvalidMultipart.Wrap(err))
		}
		return false
	}

	in.Name = ctx.PostForm("name")
	in.ResourceURL = strings.TrimSpace(ctx.PostForm("resourceUrl"))
	if raw := strings.TrimSpace(ctx.PostForm("expirationTime")); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			if in.File != nil {
				_ = file.Close()
			}
			_ = ctx.Error(errInvalidExpiration.Wrap(err))
			return false
		}
		in.ExpirationTime = &at
	}
	return true
}

func (r *ResourceController) errTooLarge() *utils.AppError {
	return utils.BadRequest(40032, fmt.Sprintf("file size exceeds %dMB", r.maxUploadBytes>>20))
}

// ListResources returns the current user's resources, optionally filtered by ?status=active|expired.
func (r *ResourceController) ListResources(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		_ = ctx.Error(services.ErrNotAuthorized)
		return
	}

	list, err := r.resources.List(ctx.Request.Context(), user.ID, strings.TrimSpace(ctx.Query("status")))
	if err != nil {
		_ = ctx.Error(err)
		return
	}

	items := make([]resourceResponse, 0, len(list))
	for i := range list {
		items = append(items, r.view(ctx, &list[i]))
	}
	utils.Success(ctx, gin.H{"resources": items})
}

// GetResource returns one of the current user's resources.
func (r *ResourceController) GetResource(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		_ = ctx.Error(services.ErrNotAuthorized)
		return
	}

	res, err := r.resources.Get(ctx.Request.Context(), user.ID, ctx.Param("id"))
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	utils.Success(ctx, gin.H{"resource": r.view(ctx, res)})
}

// DeleteResource soft-deletes one of the current user's resources.
func (r *ResourceController) DeleteResource(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		_ = ctx.Error(services.ErrNotAuthorized)
		return
	}

	if err := r.resources.Delete(ctx.Request.Context(), user.ID, ctx.Param("id")); err != nil {
		_ = ctx.Error(err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// AccessResource serves a resource to anyone holding its access token.
// Uploads are streamed as attachments; links are returned as data without redirecting.
func (r *ResourceController) AccessResource(ctx *gin.Context) {
	result, err := r.resources.Access(ctx.Request.Context(), ctx.Param("token"))
	if err != nil {
		_ = ctx.Error(err)
		return
	}

	res := result.Resource
	if result.Object == nil {
		utils.Success(ctx, gin.H{"resource": gin.H{
			"name":           res.Name,
			"resourceUrl":    res.ResourceURL,
			"expirationTime": res.ExpirationTime,
		}})
		return
	}

	obj := result.Object
	defer obj.Body.Close()

	contentType := "application/octet-stream"
	if res.MimeType != nil && *res.MimeType != "" {
		contentType = *res.MimeType
	} else if obj.ContentType != "" {
		contentType = obj.ContentType
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": res.DownloadName()})
	if disposition == "" {
		disposition = "attachment"
	}

	ctx.DataFromReader(http.StatusOK, obj.Size, contentType, obj.Body, map[string]string{
		"Content-Disposition": disposition,
	})
}

func (r *ResourceController) view(ctx *gin.Context, res *models.Resource) resourceResponse {
	return resourceResponse{Resource: res, AccessURL: accessURL(ctx, res.AccessToken)}
}

// accessURL builds the public URL for token from the current request.
func accessURL(ctx *gin.Context, token string) string {
	scheme := "http"
	if ctx.Request.TLS != nil {
		scheme = "https"
	}
	if proto := ctx.GetHeader("X-Forwarded-Proto"); proto != "" {
		switch p := strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0])); p {
		case "http", "https":
			scheme = p
		}
	}
	return scheme + "://" + ctx.Request.Host + AccessPathPrefix + token
}
