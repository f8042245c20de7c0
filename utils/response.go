package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Status  string      `json:"status"`
	Code    int         `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Token   string      `json:"token,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, body JSONResponse) {
	ctx.JSON(status, body)
}

// Success returns a standard 200 response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, JSONResponse{Status: statusSuccess, Data: data})
}

// Created returns a standard 201 response.
func Created(ctx *gin.Context, message string, data interface{}) {
	Respond(ctx, http.StatusCreated, JSONResponse{Status: statusSuccess, Message: message, Data: data})
}

// WithToken returns a response carrying a freshly issued session token next to the payload.
func WithToken(ctx *gin.Context, status int, token string, data interface{}) {
	Respond(ctx, status, JSONResponse{Status: statusSuccess, Token: token, Data: data})
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, JSONResponse{Status: statusError, Code: code, Message: message})
}
