package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-booking-server/internal/apperr"
)

// ResponseData represents the structure of a standard API response.
type ResponseData struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// Success sends a standard success response.
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, ResponseData{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Created sends a standard resource created response.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, ResponseData{
		Status:  http.StatusCreated,
		Message: message,
		Data:    data,
	})
}

// Error sends a standard error response.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.JSON(statusCode, ResponseData{
		Status:  statusCode,
		Message: "An error occurred",
		Error:   errorMessage,
	})
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// InternalServerError sends a 500 Internal Server Error response.
func InternalServerError(c *gin.Context, errorMessage string) {
	Error(c, http.StatusInternalServerError, errorMessage)
}

// StatusFor maps an application error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindPastDate, apperr.KindInvalidMethod,
		apperr.KindInvalidStatus, apperr.KindAlreadyPaid, apperr.KindInvalidState,
		apperr.KindDuplicateAccount:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated, apperr.KindInvalidCredentials:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err using the standard envelope. Internal errors are
// recorded on the gin context for the request logger and never leak their
// cause to the client.
func RespondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, ResponseData{
		Status:  status,
		Message: "An error occurred",
		Error:   apperr.MessageOf(err),
		Code:    string(kind),
	})
}
