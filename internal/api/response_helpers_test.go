// internal/api/response_helpers_test.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/stillhouse/shotlist/internal/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func recordResponse(handler func(c *gin.Context)) (*httptest.ResponseRecorder, APIResponse) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/test", nil)

	handler(c)

	var body APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestAppErrorStatusMapping(t *testing.T) {
	rh := NewResponseHelper()

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation maps to 400", apperrors.NewValidationError("标题不能为空", nil), http.StatusBadRequest},
		{"missing input maps to 400", apperrors.NewMissingInputError("项目没有剧本文本", nil), http.StatusBadRequest},
		{"not found maps to 404", apperrors.NewNotFoundError("项目不存在", nil), http.StatusNotFound},
		{"no candidates maps to 404", apperrors.NewNoCandidatesError("没有候选", nil), http.StatusNotFound},
		{"no selection maps to 404", apperrors.NewNoSelectionError("没有可用选择", nil), http.StatusNotFound},
		{"unauthorized maps to 401", apperrors.NewUnauthorizedError("未认证", nil), http.StatusUnauthorized},
		{"generation failure maps to 502", apperrors.NewGenerationFailureError("模型失败", nil), http.StatusBadGateway},
		{"processing maps to 500", apperrors.NewProcessingError("写入失败", nil), http.StatusInternalServerError},
		{"plain error maps to 500", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := recordResponse(func(c *gin.Context) {
				rh.AppError(c, tt.err)
			})

			assert.Equal(t, tt.expected, w.Code)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestAppErrorCarriesErrorCode(t *testing.T) {
	rh := NewResponseHelper()

	_, body := recordResponse(func(c *gin.Context) {
		rh.AppError(c, apperrors.NewMissingInputError("镜头没有可用的搜索词", nil))
	})

	require.NotNil(t, body.Error)
	assert.Equal(t, "MISSING_INPUT", body.Error.Code)
	assert.Equal(t, "镜头没有可用的搜索词", body.Error.Message)
}

func TestSanitizeErrorMessage(t *testing.T) {
	rh := NewResponseHelper()

	_, body := recordResponse(func(c *gin.Context) {
		rh.InternalError(c, "invalid api_key provided")
	})

	require.NotNil(t, body.Error)
	assert.Equal(t, "An internal error occurred", body.Error.Message)
}

func TestSuccessEnvelope(t *testing.T) {
	rh := NewResponseHelper()

	w, body := recordResponse(func(c *gin.Context) {
		rh.Success(c, gin.H{"projects": []string{}}, "ok")
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "ok", body.Message)
	assert.Nil(t, body.Error)
	assert.False(t, body.Timestamp.IsZero())
}

func TestFileResponse(t *testing.T) {
	rh := NewResponseHelper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/export", nil)

	rh.FileResponse(c, []byte("scene_number,shot_code\n"), "Night Shift.csv", "text/csv; charset=utf-8")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Night Shift.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "scene_number,shot_code\n", w.Body.String())
}
