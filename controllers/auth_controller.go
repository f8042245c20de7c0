package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/sharelink/middleware"
	"github.com/cppla/sharelink/models"
	"github.com/cppla/sharelink/services"
	"github.com/cppla/sharelink/utils"
)

var errInvalidPayload = utils.BadRequest(40001, "invalid request payload")

// AuthController handles registration, login and session endpoints.
type AuthController struct {
	auth *services.AuthService
}

// NewAuthController creates a new AuthController.
func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Register creates an account and returns a session token.
func (a *AuthController) Register(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		_ = ctx.Error(errInvalidPayload.Wrap(err))
		return
	}

	sess, err := a.auth.Register(ctx.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	utils.WithToken(ctx, http.StatusCreated, sess.Token, gin.H{"user": toUserResponse(sess.User)})
}

// Login verifies credentials and returns a session token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		_ = ctx.Error(errInvalidPayload.Wrap(err))
		return
	}

	sess, err := a.auth.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = ctx.Error(err)
		return
	}
	utils.WithToken(ctx, http.StatusOK, sess.Token, gin.H{"user": toUserResponse(sess.User)})
}

// Logout revokes the bearer token the request was made with.
func (a *AuthController) Logout(ctx *gin.Context) {
	claims, token := middleware.CurrentClaims(ctx)
	a.auth.Logout(claims, token)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user.
func (a *AuthController) Me(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		_ = ctx.Error(services.ErrNotAuthorized)
		return
	}
	utils.Success(ctx, gin.H{"user": toUserResponse(user)})
}
