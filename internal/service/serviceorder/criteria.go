package serviceorder

import (
	"strconv"
	"time"

	"github.com/Additional-Code/servicedesk/internal/dto"
	"github.com/Additional-Code/servicedesk/internal/entity"
	"github.com/Additional-Code/servicedesk/internal/report"
	repo "github.com/Additional-Code/servicedesk/internal/repository/serviceorder"
	"github.com/Additional-Code/servicedesk/pkg/brdate"
	"github.com/Additional-Code/servicedesk/pkg/errorbank"
)

const statusAll = "todos"

// ReportCriteria resolves report query parameters into the criteria printed
// on the document and the store filter. An explicit dataInicio/dataFim range
// overrides dia/mes/ano; dia and mes are ignored without ano.
func ReportCriteria(q dto.ReportQuery) (report.Criteria, repo.Filter, error) {
	q.Normalize()

	var (
		criteria   report.Criteria
		filter     repo.Filter
		violations errorbank.Violations
	)

	if q.Status != "" && q.Status != statusAll {
		status := entity.Status(q.Status)
		if !status.Valid() {
			return criteria, filter, errorbank.BadRequest(MsgInvalidStatus)
		}
		criteria.Status = &status
		filter.Status = &status
	}

	criteria.Search = q.Search
	filter.Search = q.Search

	criteria.Day = boundedInt(q.Day, 1, 31, "query.dia", "Dia deve ser um número de 1 a 31", &violations)
	criteria.Month = boundedInt(q.Month, 1, 12, "query.mes", "Mês deve ser um número de 1 a 12", &violations)
	criteria.Year = boundedInt(q.Year, 1000, 9999, "query.ano", "Ano deve ter 4 dígitos", &violations)

	if q.StartDate != "" {
		from, err := brdate.ParseISO(q.StartDate)
		if err != nil {
			violations.Add("query.dataInicio", "Data de início deve estar no formato YYYY-MM-DD")
		} else {
			criteria.RangeFrom = &from
		}
	}
	if q.EndDate != "" {
		to, err := brdate.ParseISO(q.EndDate)
		if err != nil {
			violations.Add("query.dataFim", "Data de fim deve estar no formato YYYY-MM-DD")
		} else {
			end := brdate.EndOfDay(to)
			criteria.RangeTo = &end
		}
	}

	if err := violations.Err(); err != nil {
		return report.Criteria{}, repo.Filter{}, err
	}

	switch {
	case criteria.HasRange():
		filter.OpenedFrom = criteria.RangeFrom
		filter.OpenedTo = criteria.RangeTo
	case criteria.Year > 0:
		from, to := calendarBounds(criteria.Year, criteria.Month, criteria.Day)
		filter.OpenedFrom = &from
		filter.OpenedTo = &to
	}

	return criteria, filter, nil
}

// calendarBounds returns the inclusive bounds of a year, narrowed to a month
// when month is set and to a day when both month and day are set.
func calendarBounds(year, month, day int) (time.Time, time.Time) {
	if month == 0 {
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return from, brdate.EndOfDay(time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC))
	}
	if day == 0 {
		from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return from, brdate.EndOfDay(from.AddDate(0, 1, -1))
	}
	// Days past the end of the month roll into the next one.
	from := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return from, brdate.EndOfDay(from)
}

func boundedInt(raw string, lo, hi int, field, message string, violations *errorbank.Violations) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		violations.Add(field, message)
		return 0
	}
	return n
}
