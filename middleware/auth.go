package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/sharelink/models"
	"github.com/cppla/sharelink/services"
	"github.com/cppla/sharelink/utils"
)

const (
	// ContextUserKey stores the authenticated *models.User inside Gin context.
	ContextUserKey = "user"
	// ContextClaimsKey stores the verified *utils.Claims.
	ContextClaimsKey = "claims"
	// ContextTokenKey stores the raw bearer token, used by logout.
	ContextTokenKey = "token"
)

var (
	errHeaderMissing = utils.Unauthorized(40101, "Not authorized to access this route")
	errHeaderFormat  = utils.Unauthorized(40102, "invalid authorization header format")
	errEmptyBearer   = utils.Unauthorized(40103, "empty bearer token")
)

// AuthRequired resolves the bearer token to an existing user before the handler runs.
func AuthRequired(auth *services.AuthService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			abort(ctx, errHeaderMissing)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(ctx, errHeaderFormat)
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abort(ctx, errEmptyBearer)
			return
		}

		user, claims, err := auth.Authenticate(ctx.Request.Context(), tokenString)
		if err != nil {
			abort(ctx, err)
			return
		}

		ctx.Set(ContextUserKey, user)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Next()
	}
}

// CurrentUser returns the user stored by AuthRequired.
func CurrentUser(ctx *gin.Context) (*models.User, bool) {
	v, ok := ctx.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

// CurrentClaims returns the claims and raw token stored by AuthRequired.
func CurrentClaims(ctx *gin.Context) (*utils.Claims, string) {
	claims, _ := ctx.Get(ContextClaimsKey)
	c, _ := claims.(*utils.Claims)
	return c, ctx.GetString(ContextTokenKey)
}

func abort(ctx *gin.Context, err error) {
	_ = ctx.Error(err)
	ctx.Abort()
}
