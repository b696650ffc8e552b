package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/servicedesk/internal/dto"
	"github.com/Additional-Code/servicedesk/pkg/errorbank"
)

func violationsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	appErr := errorbank.From(err)
	require.Equal(t, errorbank.KindBadRequest, appErr.Kind())
	assert.Equal(t, Message, appErr.Message())

	out := make(map[string]string)
	for _, v := range appErr.Violations() {
		out[v.Field] = v.Message
	}
	return out
}

func TestCreateRequest(t *testing.T) {
	v := New()

	valid := dto.CreateServiceOrderRequest{
		Requester:          "Ana",
		Unit:               "Central",
		Department:         "TI",
		ProblemDescription: "Impressora travada",
		OpenedAt:           "15/03/2024",
	}
	require.NoError(t, v.Validate(&valid))

	empty := ""
	withBlankClose := valid
	withBlankClose.ClosedAt = &empty
	assert.NoError(t, v.Validate(&withBlankClose))

	spaces := "   "
	withSpacesClose := valid
	withSpacesClose.ClosedAt = &spaces
	assert.NoError(t, v.Validate(&withSpacesClose))

	missing := dto.CreateServiceOrderRequest{OpenedAt: "2024/03/15", Status: "fechado"}
	got := violationsOf(t, v.Validate(&missing))
	assert.Equal(t, "Campo obrigatório: solicitante", got["body.solicitante"])
	assert.Equal(t, "Campo obrigatório: Unidade", got["body.ubs"])
	assert.Equal(t, "Campo obrigatório: setor", got["body.setor"])
	assert.Equal(t, "Campo obrigatório: descrição do problema", got["body.descricao_problema"])
	assert.Equal(t, "Data de abertura deve estar no formato DD/MM/YYYY ou YYYY-MM-DD", got["body.data_abertura"])
	assert.Equal(t, "Status deve ser: aberto, em_andamento ou finalizado", got["body.status"])
}

func TestCreateRequestLength(t *testing.T) {
	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	req := dto.CreateServiceOrderRequest{
		Requester:          string(long),
		Unit:               "Central",
		Department:         "TI",
		ProblemDescription: "x",
		OpenedAt:           "2024-03-15",
	}
	got := violationsOf(t, New().Validate(&req))
	assert.Equal(t, "solicitante deve ter no máximo 255 caracteres", got["body.solicitante"])
}

func TestUpdateRequest(t *testing.T) {
	v := New()

	var ok dto.UpdateServiceOrderRequest
	require.NoError(t, json.Unmarshal([]byte(`{"status":"finalizado","data_fechamento":null,"servico_realizado":""}`), &ok))
	ok.Normalize()
	assert.NoError(t, v.Validate(&ok))

	var bad dto.UpdateServiceOrderRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"solicitante": "  ",
		"setor": null,
		"data_abertura": "ontem",
		"status": "pausado",
		"data_fechamento": "31/02/2024x"
	}`), &bad))
	bad.Normalize()

	got := violationsOf(t, v.Validate(&bad))
	assert.Equal(t, "Solicitante não pode estar vazio", got["body.solicitante"])
	assert.Equal(t, "Setor não pode ser nulo", got["body.setor"])
	assert.Equal(t, "Data de abertura deve estar no formato DD/MM/YYYY ou YYYY-MM-DD", got["body.data_abertura"])
	assert.Equal(t, "Status deve ser: aberto, em_andamento ou finalizado", got["body.status"])
	assert.Equal(t, "Data de fechamento deve estar no formato DD/MM/YYYY ou YYYY-MM-DD", got["body.data_fechamento"])
	assert.NotContains(t, got, "body.ubs")
}

func TestImpossibleCalendarDates(t *testing.T) {
	v := New()

	closed := "30/02/2024"
	create := dto.CreateServiceOrderRequest{
		Requester:          "Ana",
		Unit:               "Central",
		Department:         "TI",
		ProblemDescription: "Sem rede",
		OpenedAt:           "2023-02-29",
		ClosedAt:           &closed,
	}
	got := violationsOf(t, v.Validate(&create))
	assert.Contains(t, got, "body.data_abertura")
	assert.Contains(t, got, "body.data_fechamento")

	update := dto.UpdateServiceOrderRequest{OpenedAt: dto.SomeString("31/02/2024")}
	got = violationsOf(t, v.Validate(&update))
	assert.Equal(t, "Data de abertura deve estar no formato DD/MM/YYYY ou YYYY-MM-DD", got["body.data_abertura"])
}

func TestUpdateRequestRejectsBlankStatus(t *testing.T) {
	req := dto.UpdateServiceOrderRequest{Status: dto.SomeString("")}
	got := violationsOf(t, New().Validate(&req))
	assert.Equal(t, "Status deve ser: aberto, em_andamento ou finalizado", got["body.status"])
}

func TestReportQuery(t *testing.T) {
	v := New()

	require.NoError(t, v.Validate(&dto.ReportQuery{Status: "todos", Day: "5", Month: "12", Year: "2024"}))
	require.NoError(t, v.Validate(&dto.ReportQuery{StartDate: "2024-01-01", EndDate: "2024-01-31"}))

	got := violationsOf(t, v.Validate(&dto.ReportQuery{
		Status:    "arquivado",
		Day:       "123",
		Month:     "x",
		Year:      "24",
		StartDate: "01/01/2024",
		EndDate:   "2024-13-01",
	}))
	assert.Equal(t, "Status deve ser: todos, aberto, em_andamento ou finalizado", got["query.status"])
	assert.Equal(t, "Dia deve ser um número de 1 a 31", got["query.dia"])
	assert.Equal(t, "Mês deve ser um número de 1 a 12", got["query.mes"])
	assert.Equal(t, "Ano deve ter 4 dígitos", got["query.ano"])
	assert.Equal(t, "Data de início deve estar no formato YYYY-MM-DD", got["query.dataInicio"])
	assert.Equal(t, "Data de fim deve estar no formato YYYY-MM-DD", got["query.dataFim"])
}
