package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/animuse/animuse/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// fromDomainError maps AppError codes onto HTTP statuses.
func fromDomainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case apperrors.CodeInvalidInput:
		status = http.StatusBadRequest
		code = "invalid_request"
	case apperrors.CodeUnauthorized, apperrors.CodeInvalidToken:
		status = http.StatusUnauthorized
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeFetchInProgress:
		status = http.StatusConflict
	case apperrors.CodeFetchFailed, apperrors.CodeLLMError:
		status = http.StatusBadGateway
	case "":
		code = "internal_error"
	}
	return NewHTTPError(status, code, errMessage(err), err)
}
