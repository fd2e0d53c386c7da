package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/pkg/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/json"
	"github.com/kart-io/sentinel-rag/pkg/utils/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(lang string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if lang != "" {
		c.Request.Header.Set("Accept-Language", lang)
	}
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestFail(t *testing.T) {
	c, w := newContext("")
	c.Writer.Header().Set(HeaderXRequestID, "req-1")

	Fail(c, errors.ErrRouteNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, c.IsAborted())
	resp := decode(t, w)
	assert.Equal(t, errors.ErrRouteNotFound.Code, resp.Code)
	assert.Equal(t, "Route not found", resp.Message)
	assert.Equal(t, "req-1", resp.RequestID)
}

func TestFailWithLang(t *testing.T) {
	c, w := newContext("zh-CN")
	Fail(c, errors.ErrRAGEmptyDocument)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "文档没有文本内容", decode(t, w).Message)
}

func TestFailWithError(t *testing.T) {
	c, w := newContext("")
	FailWithError(c, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.ErrInternal.Code, decode(t, w).Code)
}

func TestFailWithBindOrValidation(t *testing.T) {
	type req struct {
		Question string `json:"question" validate:"required"`
	}

	c, w := newContext("")
	FailWithBindOrValidation(c, validator.Global().Validate(&req{}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, errors.ErrValidationFailed.Code, resp.Code)
	assert.Contains(t, resp.Message, "question")

	c, w = newContext("")
	FailWithBindOrValidation(c, assert.AnError)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrInvalidParam.Code, decode(t, w).Code)
}
