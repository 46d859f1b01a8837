package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failure reported by a remote provider.
type Kind string

const (
	KindRateLimit     Kind = "rate_limit"
	KindQuotaExceeded Kind = "quota_exceeded"
	KindAuth          Kind = "auth_error"
	KindService       Kind = "service_error"
)

// Actionable reports whether the kind is one the caller must surface as a
// typed failure rather than degrade to an inline error.
func (k Kind) Actionable() bool {
	switch k {
	case KindRateLimit, KindQuotaExceeded, KindAuth:
		return true
	default:
		return false
	}
}

// Service names the remote capability that failed.
type Service string

const (
	ServiceAzureSpeech Service = "azure"
	ServiceOpenAI      Service = "openai"
	ServiceAzureOpenAI Service = "azure_openai"
	ServiceGemini      Service = "gemini"
)

// userMessages holds the fixed, non-leaking text shown for each failure.
var userMessages = map[Service]map[Kind]string{
	ServiceAzureSpeech: {
		KindRateLimit:     "Azure Speech API rate limit exceeded. Please wait a moment and try again.",
		KindQuotaExceeded: "Azure Speech API quota exceeded. The monthly limit has been reached. Please contact the app administrator.",
		KindAuth:          "Azure Speech API authentication failed. Please contact the app administrator.",
		KindService:       "Azure Speech service error. Please try again later.",
	},
	ServiceOpenAI: {
		KindRateLimit:     "OpenAI API rate limit exceeded. Please wait a moment and try again.",
		KindQuotaExceeded: "OpenAI API quota exceeded. The billing limit has been reached. Please contact the app administrator.",
		KindAuth:          "OpenAI API authentication failed. Please contact the app administrator.",
		KindService:       "OpenAI service error. Please try again later.",
	},
	ServiceAzureOpenAI: {
		KindRateLimit:     "Azure OpenAI rate limit exceeded. Please wait a moment and try again.",
		KindQuotaExceeded: "Azure OpenAI quota exceeded. Please contact the app administrator.",
		KindAuth:          "Azure OpenAI authentication failed. Please contact the app administrator.",
		KindService:       "Azure OpenAI service error. Please try again later.",
	},
	ServiceGemini: {
		KindRateLimit:     "Gemini API rate limit exceeded. Please wait a moment and try again.",
		KindQuotaExceeded: "Gemini API quota exceeded. Please contact the app administrator.",
		KindAuth:          "Gemini API authentication failed. Please contact the app administrator.",
		KindService:       "Gemini service error. Please try again later.",
	},
}

// ProviderError is a classified remote provider failure. Message is always one
// of the fixed user-facing texts; the raw provider text is kept in Details for
// operators.
type ProviderError struct {
	Service Service `json:"service"`
	Kind    Kind    `json:"error_type"`
	Message string  `json:"message"`
	Details string  `json:"-"`
}

// NewProviderError builds a ProviderError carrying the fixed message for
// service and kind.
func NewProviderError(service Service, kind Kind, details string) *ProviderError {
	msg, ok := userMessages[service][kind]
	if !ok {
		msg = fmt.Sprintf("%s provider error. Please try again later.", service)
	}
	return &ProviderError{
		Service: service,
		Kind:    kind,
		Message: msg,
		Details: details,
	}
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Service, e.Kind, e.Message)
}

// Code maps the kind onto the application error codes.
func (e *ProviderError) Code() ErrorCode {
	switch e.Kind {
	case KindRateLimit:
		return ErrRateLimit
	case KindQuotaExceeded:
		return ErrQuotaExceeded
	case KindAuth:
		return ErrProviderAuth
	default:
		return ErrAIService
	}
}

// HTTPStatus returns the transport status for the failure. Credential problems
// are ours, not the client's, so they surface as 502 rather than 401.
func (e *ProviderError) HTTPStatus() int {
	switch e.Kind {
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindAuth:
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

// AsProviderError unwraps err into a *ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if stderrors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// AsAppError unwraps err into an *AppError.
func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	if stderrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Classify maps a raw provider message onto a Kind using case-insensitive
// substring rules. The first matching rule wins.
func Classify(raw string) Kind {
	msg := strings.ToLower(raw)
	switch {
	case containsAny(msg, "429", "rate limit", "too many requests"):
		return KindRateLimit
	case containsAny(msg, "quota", "exceeded", "limit"):
		return KindQuotaExceeded
	case containsAny(msg, "401", "403", "unauthorized", "invalid"):
		return KindAuth
	default:
		return KindService
	}
}

// ClassifyCoaching classifies a failed language-model API call by its HTTP
// status. A 429 mentioning quota or billing is a spent quota, not a transient
// rate limit. Other statuses fall back to the message rules of Classify, so a
// 400 "API key not valid" is still an auth failure.
func ClassifyCoaching(status int, message string) Kind {
	msg := strings.ToLower(message)
	switch {
	case status == http.StatusTooManyRequests:
		if containsAny(msg, "quota", "exceeded", "billing") {
			return KindQuotaExceeded
		}
		return KindRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	default:
		return Classify(message)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
