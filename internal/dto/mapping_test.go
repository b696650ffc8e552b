package dto_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/servicedesk/internal/dto"
	"github.com/Additional-Code/servicedesk/internal/entity"
)

func TestNewServiceOrderResponse(t *testing.T) {
	closed := time.Date(2024, time.March, 8, 12, 0, 0, 0, time.UTC)
	performed := "Cabo trocado"
	order := &entity.ServiceOrder{
		ID:                 1,
		Number:             1027,
		Requester:          "Maria",
		Unit:               "UBS Centro",
		Department:         "TI",
		ProblemDescription: "Sem rede",
		OpenedAt:           time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC),
		ServicePerformed:   &performed,
		Status:             entity.StatusClosed,
		ClosedAt:           &closed,
	}

	raw, err := json.Marshal(dto.NewServiceOrderResponse(order))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 1,
		"numero_os": 1027,
		"solicitante": "Maria",
		"ubs": "UBS Centro",
		"setor": "TI",
		"descricao_problema": "Sem rede",
		"data_abertura": "05/03/2024",
		"servico_realizado": "Cabo trocado",
		"status": "finalizado",
		"data_fechamento": "08/03/2024"
	}`, string(raw))
}

func TestNewServiceOrderResponseNulls(t *testing.T) {
	order := &entity.ServiceOrder{ID: 2, Number: 1028, Status: entity.StatusOpen}

	resp := dto.NewServiceOrderResponse(order)
	assert.Nil(t, resp.OpenedAt)
	assert.Nil(t, resp.ClosedAt)
	assert.Nil(t, resp.ServicePerformed)
}

func TestNewServiceOrderResponsesEmpty(t *testing.T) {
	raw, err := json.Marshal(dto.NewServiceOrderResponses(nil))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestOptionalStringPresence(t *testing.T) {
	var req dto.UpdateServiceOrderRequest
	require.NoError(t, json.Unmarshal([]byte(`{"status":"finalizado","data_fechamento":null,"unidade":" UBS Sul "}`), &req))
	req.Normalize()

	assert.True(t, req.Status.Set())
	assert.Equal(t, "finalizado", req.Status.Value)
	assert.True(t, req.ClosedAt.Present)
	assert.True(t, req.ClosedAt.Null)
	assert.False(t, req.Requester.Present)
	assert.Equal(t, "UBS Sul", req.Unit.Value)
	assert.False(t, req.Empty())

	var empty dto.UpdateServiceOrderRequest
	require.NoError(t, json.Unmarshal([]byte(`{"outro":1}`), &empty))
	assert.True(t, empty.Empty())
}
