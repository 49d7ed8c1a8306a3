package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/glance/internal/api/middleware"
)

// SetupTestRouter returns a gin engine in test mode with the error
// middleware the real router uses
func SetupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.ErrorHandler(false))
	return r
}

// CreateTestContext returns a bare gin context writing to a recorder
func CreateTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

// CreateTestRequest builds a request; a non-nil body is sent as JSON
func CreateTestRequest(method, url string, body any) *http.Request {
	var rd io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, url, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "response is not JSON: %s", w.Body.String())
	return body
}

// AssertJSONResponse checks the status and that the JSON body holds every
// key of want with an equal value
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, status int, want map[string]any) {
	t.Helper()
	assert.Equal(t, status, w.Code, "status")
	if want == nil {
		return
	}
	body := decodeJSON(t, w)
	for key, value := range want {
		if assert.Contains(t, body, key) {
			assert.Equal(t, value, body[key], "value of %q", key)
		}
	}
}

// AssertErrorResponse checks the status and the code and message fields
// every API error carries
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	assert.Equal(t, status, w.Code, "status")
	body := decodeJSON(t, w)
	assert.Contains(t, body, "code")
	assert.Contains(t, body, "message")
}
