package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/accent_coach/internal/errors"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestProvider_RendersKindAndService(t *testing.T) {
	rec := httptest.NewRecorder()
	Provider(rec, errors.NewProviderError(errors.ServiceOpenAI, errors.KindQuotaExceeded, "insufficient_quota: billing"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeBody(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "QUOTA_EXCEEDED", resp.Error.Code)
	assert.Equal(t, "quota_exceeded", resp.Error.Details["error_type"])
	assert.Equal(t, "openai", resp.Error.Details["service"])
	assert.NotContains(t, resp.Error.Message, "insufficient_quota")
}

func TestError_AppErrorUsesItsMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	appErr := errors.Validation("reference_text is required")
	Error(rec, appErr.HTTPStatus(), appErr)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Equal(t, "reference_text is required", resp.Error.Message)
}

func TestJSONWithMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONWithMeta(rec, http.StatusOK, []int{1, 2}, &Meta{Total: 2})

	resp := decodeBody(t, rec)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Total)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
