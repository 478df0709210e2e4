package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSuccess(t *testing.T) {
	c, w := setupContext()

	Success(c, gin.H{"job_id": 42})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.NotNil(t, resp.Data)
}

func TestSuccessPage(t *testing.T) {
	c, w := setupContext()

	SuccessPage(c, 25, 2, 10, []string{"a", "b"})

	resp := decode(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(25), data["total"])
	assert.Equal(t, float64(2), data["page"])
}

func TestError_DefaultMessages(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*gin.Context, string)
		code int
	}{
		{"param", ParamError, CodeParamError},
		{"auth", AuthError, CodeAuthFailed},
		{"permission", PermissionError, CodePermissionDenied},
		{"not found", NotFoundError, CodeResourceNotFound},
		{"conflict", ConflictError, CodeConflict},
		{"server", ServerError, CodeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := setupContext()
			tt.fn(c, "")

			resp := decode(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, codeMessages[tt.code], resp.Message)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestError_CustomMessage(t *testing.T) {
	c, w := setupContext()

	NotFoundError(c, "job not found")

	resp := decode(t, w)
	assert.Equal(t, CodeResourceNotFound, resp.Code)
	assert.Equal(t, "job not found", resp.Message)
}
