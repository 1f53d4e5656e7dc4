package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNetworkFailure    = errors.New("network failure")
	ErrServiceError      = errors.New("service error")
	ErrEmptyResult       = errors.New("empty result")
	ErrCapabilityMissing = errors.New("rendering capability missing")
	ErrRenderFailure     = errors.New("render failure")
	ErrLayerNotFound     = errors.New("layer not found")
	ErrFeatureNotFound   = errors.New("feature not found")
	ErrPlaceholderLayer  = errors.New("placeholder layer carries no geometry")
)

// ServiceError is an explicit error payload returned by a feature service
// with a successful HTTP status. The resource exists but is inaccessible.
type ServiceError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service error %d: %s", e.Code, e.Message)
}

func (e *ServiceError) Is(target error) bool {
	return target == ErrServiceError
}

func (e *ServiceError) AuthRequired() bool {
	return e.Code == 403 || strings.Contains(strings.ToLower(e.Message), "permissions")
}

func (e *ServiceError) InvalidURL() bool {
	return e.Code == 400
}

// Reason maps an error onto the short label used in fallback logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCapabilityMissing):
		return "capability missing"
	case errors.Is(err, ErrServiceError):
		return "service error"
	case errors.Is(err, ErrEmptyResult):
		return "empty result"
	case errors.Is(err, ErrNetworkFailure):
		return "network error"
	case errors.Is(err, ErrRenderFailure):
		return "render failure"
	}
	return "unknown"
}
