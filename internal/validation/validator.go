// Package validation adapts go-playground/validator to echo and renders
// failures as errorbank violations with Portuguese messages.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Additional-Code/servicedesk/internal/dto"
	"github.com/Additional-Code/servicedesk/pkg/brdate"
	"github.com/Additional-Code/servicedesk/pkg/errorbank"
)

// Message is the top-level error text for rejected requests.
const Message = errorbank.MsgValidation

// Validator implements echo.Validator.
type Validator struct {
	validate *validator.Validate
}

// New builds a Validator with the domain rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)

	_ = v.RegisterValidation("brdate", func(fl validator.FieldLevel) bool {
		return brdate.Valid(fl.Field().String())
	})
	// Nullable dates on create: a blank string means "no date".
	_ = v.RegisterValidation("brdate_optional", func(fl validator.FieldLevel) bool {
		value := strings.TrimSpace(fl.Field().String())
		return value == "" || brdate.Valid(value)
	})

	v.RegisterCustomTypeFunc(optionalValue, dto.OptionalString{})
	v.RegisterStructValidation(validateUpdate, dto.UpdateServiceOrderRequest{})

	return &Validator{validate: v}
}

// Validate checks i against its struct tags. Rule failures come back as a
// bad request listing every offending field.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errorbank.Internal("Erro interno ao validar dados", errorbank.WithCause(err))
	}

	typ := reflect.TypeOf(i)
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	violations := make([]errorbank.Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, toViolation(typ, fe))
	}
	return errorbank.Validation(Message, violations)
}

func toViolation(typ reflect.Type, fe validator.FieldError) errorbank.Violation {
	sf, ok := typ.FieldByName(fe.StructField())
	if !ok {
		return errorbank.Violation{Field: fe.Field(), Message: "Campo inválido"}
	}

	prefix := "body."
	if _, isQuery := sf.Tag.Lookup("query"); isQuery {
		prefix = "query."
	}

	if msg := sf.Tag.Get("msg"); msg != "" {
		return errorbank.Violation{Field: prefix + fe.Field(), Message: msg}
	}

	label := sf.Tag.Get("label")
	if label == "" {
		label = fe.Field()
	}

	return errorbank.Violation{Field: prefix + fe.Field(), Message: message(label, fe.Tag(), fe.Param())}
}

func message(label, tag, param string) string {
	switch tag {
	case "required":
		return "Campo obrigatório: " + label
	case "min":
		return label + " não pode estar vazio"
	case "notnull":
		return label + " não pode ser nulo"
	case "max":
		return label + " deve ter no máximo " + param + " caracteres"
	case "brdate", "brdate_optional":
		return label + " deve estar no formato DD/MM/YYYY ou YYYY-MM-DD"
	case "datetime":
		return label + " deve estar no formato YYYY-MM-DD"
	case "oneof":
		return label + " deve ser: " + humanList(strings.Fields(param))
	default:
		return label + " inválido"
	}
}

func humanList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " ou " + items[len(items)-1]
}

func fieldName(sf reflect.StructField) string {
	for _, key := range []string{"json", "query", "param"} {
		name := strings.SplitN(sf.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return sf.Name
}

// optionalValue exposes only non-blank values to tag rules; blanks are
// handled by validateUpdate.
func optionalValue(field reflect.Value) any {
	opt, ok := field.Interface().(dto.OptionalString)
	if !ok || !opt.Set() || opt.Value == "" {
		return nil
	}
	return opt.Value
}

func validateUpdate(sl validator.StructLevel) {
	req, ok := sl.Current().Interface().(dto.UpdateServiceOrderRequest)
	if !ok {
		return
	}

	checks := []struct {
		value      dto.OptionalString
		name       string
		structName string
		tag        string
	}{
		{req.Requester, "solicitante", "Requester", "min"},
		{req.Unit, "ubs", "Unit", "min"},
		{req.Department, "setor", "Department", "min"},
		{req.ProblemDescription, "descricao_problema", "ProblemDescription", "min"},
		{req.OpenedAt, "data_abertura", "OpenedAt", "brdate"},
		{req.Status, "status", "Status", "oneof"},
	}

	for _, c := range checks {
		if !c.value.Present {
			continue
		}
		switch {
		case c.value.Null:
			sl.ReportError(c.value, c.name, c.structName, "notnull", "")
		case c.value.Value == "":
			param := ""
			if c.tag == "oneof" {
				param = "aberto em_andamento finalizado"
			}
			sl.ReportError(c.value, c.name, c.structName, c.tag, param)
		}
	}
}
