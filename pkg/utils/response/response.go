// Package response provides the error envelope used by the HTTP transport.
// Successful pipeline results are written as-is; transport level failures
// (binding, validation, unknown routes, panics) use Response.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/sentinel-rag/pkg/errors"
	"github.com/kart-io/sentinel-rag/pkg/utils/validator"
)

// HeaderXRequestID is the response header carrying the request id.
const HeaderXRequestID = "X-Request-ID"

// Response is the unified error envelope.
type Response struct {
	// Code is the business error code (0 = success)
	Code int `json:"code"`

	// Message is a human-readable message
	Message string `json:"message"`

	// Data contains optional details, such as validation errors
	Data interface{} `json:"data,omitempty"`

	// RequestID is the unique request identifier for tracing
	RequestID string `json:"request_id,omitempty"`
}

// Err creates an error response from an Errno.
func Err(e *errors.Errno, lang string) *Response {
	return &Response{
		Code:    e.Code,
		Message: e.Message(lang),
	}
}

// Lang returns the preferred message language of the request.
func Lang(c *gin.Context) string {
	return c.GetHeader("Accept-Language")
}

// JSON writes v with status code.
func JSON(c *gin.Context, code int, v interface{}) {
	c.JSON(code, v)
}

// OK writes v with 200.
func OK(c *gin.Context, v interface{}) {
	c.JSON(http.StatusOK, v)
}

// Fail writes e as an error envelope and aborts the handler chain.
func Fail(c *gin.Context, e *errors.Errno) {
	resp := Err(e, Lang(c))
	resp.RequestID = c.Writer.Header().Get(HeaderXRequestID)
	c.AbortWithStatusJSON(e.HTTPStatus(), resp)
}

// FailWithError converts err to an Errno and writes it.
func FailWithError(c *gin.Context, err error) {
	Fail(c, errors.FromError(err))
}

// FailWithValidation writes translated validation errors with 400.
func FailWithValidation(c *gin.Context, verr *validator.ValidationErrors) {
	c.AbortWithStatusJSON(http.StatusBadRequest, &Response{
		Code:      errors.ErrValidationFailed.Code,
		Message:   verr.First(),
		Data:      verr.ToMap(),
		RequestID: c.Writer.Header().Get(HeaderXRequestID),
	})
}

// FailWithBindOrValidation handles errors returned by ShouldBind. Validation
// failures are translated; anything else is reported as an invalid parameter.
func FailWithBindOrValidation(c *gin.Context, err error) {
	if verr := validator.Global().Translate(err, Lang(c)); verr != nil && verr.Errors[0].Tag != "unknown" {
		FailWithValidation(c, verr)
		return
	}
	Fail(c, errors.ErrInvalidParam.WithMessage("invalid request body: "+err.Error()))
}
