package response_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/servicedesk/internal/presentation/http/response"
	"github.com/Additional-Code/servicedesk/pkg/errorbank"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/ordens-servico", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestBuildSuccessIsBare(t *testing.T) {
	c, rec := newContext()

	err := response.New(c).WithStatus(http.StatusCreated).WithData(map[string]int{"id": 1}).Build()
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":1}`, rec.Body.String())
}

func TestBuildValidationError(t *testing.T) {
	c, rec := newContext()

	appErr := errorbank.Validation("Erro de validação", []errorbank.Violation{{Field: "body.setor", Message: "Campo obrigatório: setor"}})
	require.NoError(t, response.New(c).WithError(appErr).Build())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Erro de validação","detalhes":[{"campo":"body.setor","mensagem":"Campo obrigatório: setor"}]}`, rec.Body.String())
}

func TestBuildInternalErrorExposesCause(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, response.New(c).WithLogger(zap.NewNop()).WithError(errors.New("connection refused")).Build())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Erro interno do servidor","message":"connection refused"}`, rec.Body.String())
}

func TestBuildNotFoundHidesCause(t *testing.T) {
	c, rec := newContext()

	err := errorbank.NotFound("Ordem de serviço não encontrada", errorbank.WithCause(errors.New("sql: no rows")))
	require.NoError(t, response.New(c).WithError(err).Build())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Ordem de serviço não encontrada"}`, rec.Body.String())
}

func TestBuildAttachment(t *testing.T) {
	c, rec := newContext()

	require.NoError(t, response.New(c).WithAttachment("application/pdf", "OS-1027.pdf", []byte("%PDF-1.3")).Build())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "attachment; filename=OS-1027.pdf", rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, "%PDF-1.3", rec.Body.String())
}
