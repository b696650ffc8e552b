package dto

import "strings"

// ServiceOrderResponse is the wire representation of a service order. Dates
// are rendered as DD/MM/YYYY.
type ServiceOrderResponse struct {
	ID                 int64   `json:"id"`
	Number             int64   `json:"numero_os"`
	Requester          string  `json:"solicitante"`
	Unit               string  `json:"ubs"`
	Department         string  `json:"setor"`
	ProblemDescription string  `json:"descricao_problema"`
	OpenedAt           *string `json:"data_abertura"`
	ServicePerformed   *string `json:"servico_realizado"`
	Status             string  `json:"status"`
	ClosedAt           *string `json:"data_fechamento"`
}

// CreateServiceOrderRequest is the body accepted by POST.
type CreateServiceOrderRequest struct {
	Requester          string  `json:"solicitante" label:"solicitante" validate:"required,max=255"`
	Unit               string  `json:"ubs" label:"Unidade" validate:"required,max=255"`
	UnitAlias          string  `json:"unidade" validate:"-"`
	Department         string  `json:"setor" label:"setor" validate:"required,max=255"`
	ProblemDescription string  `json:"descricao_problema" label:"descrição do problema" validate:"required"`
	OpenedAt           string  `json:"data_abertura" label:"Data de abertura" validate:"required,brdate"`
	ServicePerformed   *string `json:"servico_realizado"`
	Status             string  `json:"status" label:"Status" validate:"omitempty,oneof=aberto em_andamento finalizado"`
	ClosedAt           *string `json:"data_fechamento" label:"Data de fechamento" validate:"omitempty,brdate_optional"`
}

// Normalize trims text fields and folds the "unidade" alias into Unit.
func (r *CreateServiceOrderRequest) Normalize() {
	r.Requester = strings.TrimSpace(r.Requester)
	r.Unit = strings.TrimSpace(r.Unit)
	if r.Unit == "" {
		r.Unit = strings.TrimSpace(r.UnitAlias)
	}
	r.UnitAlias = ""
	r.Department = strings.TrimSpace(r.Department)
	r.ProblemDescription = strings.TrimSpace(r.ProblemDescription)
	r.OpenedAt = strings.TrimSpace(r.OpenedAt)
	if r.ClosedAt != nil {
		v := strings.TrimSpace(*r.ClosedAt)
		r.ClosedAt = &v
		if v == "" {
			r.ClosedAt = nil
		}
	}
}

// UpdateServiceOrderRequest is the body accepted by PUT. Every field is
// optional; absent keys leave the stored value untouched.
type UpdateServiceOrderRequest struct {
	Requester          OptionalString `json:"solicitante" label:"Solicitante" validate:"omitempty,min=1,max=255"`
	Unit               OptionalString `json:"ubs" label:"Unidade" validate:"omitempty,min=1,max=255"`
	UnitAlias          OptionalString `json:"unidade" validate:"-"`
	Department         OptionalString `json:"setor" label:"Setor" validate:"omitempty,min=1,max=255"`
	ProblemDescription OptionalString `json:"descricao_problema" label:"Descrição do problema" validate:"omitempty,min=1"`
	OpenedAt           OptionalString `json:"data_abertura" label:"Data de abertura" validate:"omitempty,brdate"`
	ServicePerformed   OptionalString `json:"servico_realizado"`
	Status             OptionalString `json:"status" label:"Status" validate:"omitempty,oneof=aberto em_andamento finalizado"`
	ClosedAt           OptionalString `json:"data_fechamento" label:"Data de fechamento" validate:"omitempty,brdate"`
}

// Normalize trims text fields and folds the "unidade" alias into Unit.
func (r *UpdateServiceOrderRequest) Normalize() {
	r.Requester = r.Requester.Trimmed()
	if !r.Unit.Present && r.UnitAlias.Present {
		r.Unit = r.UnitAlias
	}
	r.UnitAlias = OptionalString{}
	r.Unit = r.Unit.Trimmed()
	r.Department = r.Department.Trimmed()
	r.ProblemDescription = r.ProblemDescription.Trimmed()
	r.OpenedAt = r.OpenedAt.Trimmed()
	r.ClosedAt = r.ClosedAt.Trimmed()
	r.Status = r.Status.Trimmed()
}

// Empty reports whether no updatable field was sent.
func (r *UpdateServiceOrderRequest) Empty() bool {
	return !r.Requester.Present && !r.Unit.Present && !r.Department.Present &&
		!r.ProblemDescription.Present && !r.OpenedAt.Present && !r.ServicePerformed.Present &&
		!r.Status.Present && !r.ClosedAt.Present
}

// ReportQuery carries the report filters from the query string.
type ReportQuery struct {
	Status    string `query:"status" msg:"Status deve ser: todos, aberto, em_andamento ou finalizado" validate:"omitempty,oneof=todos aberto em_andamento finalizado"`
	Search    string `query:"search"`
	Day       string `query:"dia" msg:"Dia deve ser um número de 1 a 31" validate:"omitempty,numeric,max=2"`
	Month     string `query:"mes" msg:"Mês deve ser um número de 1 a 12" validate:"omitempty,numeric,max=2"`
	Year      string `query:"ano" msg:"Ano deve ter 4 dígitos" validate:"omitempty,numeric,len=4"`
	StartDate string `query:"dataInicio" msg:"Data de início deve estar no formato YYYY-MM-DD" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"dataFim" msg:"Data de fim deve estar no formato YYYY-MM-DD" validate:"omitempty,datetime=2006-01-02"`
}

// Normalize trims every parameter.
func (q *ReportQuery) Normalize() {
	q.Status = strings.TrimSpace(q.Status)
	q.Search = strings.TrimSpace(q.Search)
	q.Day = strings.TrimSpace(q.Day)
	q.Month = strings.TrimSpace(q.Month)
	q.Year = strings.TrimSpace(q.Year)
	q.StartDate = strings.TrimSpace(q.StartDate)
	q.EndDate = strings.TrimSpace(q.EndDate)
}

// MessageResponse is returned by operations with no entity payload.
type MessageResponse struct {
	Message string `json:"message"`
}
