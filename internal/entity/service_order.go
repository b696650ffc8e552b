package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Status is the lifecycle state of a service order.
type Status string

const (
	StatusOpen       Status = "aberto"
	StatusInProgress Status = "em_andamento"
	StatusClosed     Status = "finalizado"
)

// Statuses lists every valid status in lifecycle order.
var Statuses = []Status{StatusOpen, StatusInProgress, StatusClosed}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// Label returns the display label used in documents.
func (s Status) Label() string {
	switch s {
	case StatusOpen:
		return "Aberto"
	case StatusInProgress:
		return "Em Andamento"
	case StatusClosed:
		return "Finalizado"
	default:
		return string(s)
	}
}

// ServiceOrder is a help-desk ticket stored in the relational database.
type ServiceOrder struct {
	bun.BaseModel `bun:"table:ordens_servico,alias:os"`

	ID                 int64      `bun:"id,pk,autoincrement"`
	Number             int64      `bun:"numero_os,notnull,unique"`
	Requester          string     `bun:"solicitante,notnull"`
	Unit               string     `bun:"ubs,notnull"`
	Department         string     `bun:"setor,notnull"`
	ProblemDescription string     `bun:"descricao_problema,notnull"`
	OpenedAt           time.Time  `bun:"data_abertura,notnull"`
	ServicePerformed   *string    `bun:"servico_realizado"`
	Status             Status     `bun:"status,notnull,default:'aberto'"`
	ClosedAt           *time.Time `bun:"data_fechamento"`
	CreatedAt          time.Time  `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time  `bun:"updated_at,nullzero"`
}

// NumberSequence is the single-row high-water mark of issued order numbers.
// It never decreases, so deleting the newest order does not free its number.
type NumberSequence struct {
	bun.BaseModel `bun:"table:ordens_servico_numeracao,alias:seq"`

	ID         int64 `bun:"id,pk"`
	LastNumber int64 `bun:"ultimo_numero,notnull"`
}

// NumberSequenceID is the primary key of the only NumberSequence row.
const NumberSequenceID = 1
