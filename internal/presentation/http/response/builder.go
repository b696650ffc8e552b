package response

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/pkg/errorbank"
)

// ErrorBody is the payload rendered for failed requests.
type ErrorBody struct {
	Error    string                `json:"error"`
	Message  string                `json:"message,omitempty"`
	Detalhes []errorbank.Violation `json:"detalhes,omitempty"`
}

// Builder helps construct consistent HTTP responses. Success payloads are
// written as-is; errors are rendered as ErrorBody.
type Builder struct {
	ctx         echo.Context
	status      int
	data        any
	err         error
	logger      *zap.Logger
	contentType string
	filename    string
	blob        []byte
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the response status code.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches a success payload.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithLogger enables logging of server-side failures.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAttachment sends content as a downloadable file instead of JSON.
func (b *Builder) WithAttachment(contentType, filename string, content []byte) *Builder {
	b.contentType = contentType
	b.filename = filename
	b.blob = content
	return b
}

// Build finalises and emits the HTTP response.
func (b *Builder) Build() error {
	if b.err != nil {
		return b.buildError()
	}
	if b.contentType != "" {
		return b.buildAttachment()
	}
	return b.buildSuccess()
}

func (b *Builder) buildSuccess() error {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.ctx.JSON(b.status, b.data)
}

func (b *Builder) buildAttachment() error {
	if b.filename != "" {
		b.ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", b.filename))
	}
	return b.ctx.Blob(b.status, b.contentType, b.blob)
}

func (b *Builder) buildError() error {
	appErr := errorbank.From(b.err)
	status := b.status
	if status < 400 {
		status = appErr.StatusCode()
	}

	body := ErrorBody{
		Error:    appErr.Message(),
		Detalhes: appErr.Violations(),
	}
	if status >= http.StatusInternalServerError {
		if cause := appErr.Cause(); cause != nil {
			body.Message = cause.Error()
		}
		if b.logger != nil {
			req := b.ctx.Request()
			b.logger.Error("request failed",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", status),
				zap.Error(b.err),
			)
		}
	}

	return b.ctx.JSON(status, body)
}
