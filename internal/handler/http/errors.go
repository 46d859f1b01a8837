package http

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/accent_coach/internal/errors"
	"github.com/windfall/accent_coach/pkg/response"
)

// writeError renders err with the status its type maps to. Unknown errors
// are logged and hidden behind a generic 500.
func writeError(log zerolog.Logger, w http.ResponseWriter, err error) {
	if pe, ok := errors.AsProviderError(err); ok {
		log.Warn().
			Str("service", string(pe.Service)).
			Str("error_type", string(pe.Kind)).
			Str("details", pe.Details).
			Msg("Provider failure")
		response.Provider(w, pe)
		return
	}
	if appErr, ok := errors.AsAppError(err); ok {
		if appErr.HTTPStatus() >= http.StatusInternalServerError {
			log.Error().Err(err).Msg("Request failed")
		}
		response.Error(w, appErr.HTTPStatus(), appErr)
		return
	}
	log.Error().Err(err).Msg("Internal server error")
	response.Error(w, http.StatusInternalServerError, errors.Internal("internal server error"))
}
