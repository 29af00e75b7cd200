package processors

import (
	"context"
	"strconv"
	"strings"

	"quadra_financeiro/internal/apperr"
	"quadra_financeiro/internal/models"

	"go.uber.org/zap"
)

type RentalsProcessor struct {
	*BaseProcessor
}

func (p RentalsProcessor) Type() string { return string(models.CollectionRentals) }

func (p *RentalsProcessor) ProcessBatch(ctx context.Context, batch []map[string]string) error {
	if err := CheckDeps(p); err != nil {
		return err
	}
	log := p.Log.With(zap.String("proc", p.Type()))
	log.Info("[PROC][alugueis][START]", zap.Int("rows", len(batch)))

	type pending struct {
		row      map[string]string
		warnings []string
	}
	var (
		rentals []models.Rental
		rows    []pending
		failed  int
	)

	for i, m := range batch {
		r, warnings, err := rentalFromRow(m)
		if err != nil {
			failed++
			log.Warn("[PROC][alugueis][SKIP]", zap.Int("row", i), zap.Error(err))
			p.logItem(ctx, p.Type(), "", m, err, nil)
			continue
		}
		rentals = append(rentals, r)
		rows = append(rows, pending{row: m, warnings: warnings})
	}

	if len(rentals) == 0 {
		log.Info("[PROC][alugueis][DONE] no valid rows", zap.Int("failed", failed))
		return nil
	}

	ids, errs := p.Ledger.AddRentals(ctx, rentals)
	inserted := 0
	for i, pr := range rows {
		if errs[i] != nil {
			failed++
			p.logItem(ctx, p.Type(), "", pr.row, errs[i], nil)
			if apperr.KindOf(errs[i]) == apperr.KindUnavailable {
				return errs[i]
			}
			continue
		}
		inserted++
		p.logItem(ctx, p.Type(), strconv.FormatInt(ids[i], 10), pr.row, nil, pr.warnings)
	}

	log.Info("[PROC][alugueis][DONE]", zap.Int("total", len(batch)), zap.Int("inserted", inserted), zap.Int("failed", failed))
	return nil
}

func rentalFromRow(m map[string]string) (models.Rental, []string, error) {
	var warnings []string

	hours, ok := normalizeAmount(field(m, "horas_alugadas", "horas"))
	if !ok {
		return models.Rental{}, nil, apperr.Invalid("horas_alugadas", "not a number")
	}
	amount, ok := normalizeAmount(field(m, "valor", "valor_total"))
	if !ok {
		return models.Rental{}, nil, apperr.Invalid("valor", "not a number")
	}
	status := field(m, "status", "situacao")
	if status == "" {
		status = string(models.StatusDue)
		warnings = append(warnings, "missing status -> "+status)
	}

	r := models.Rental{
		Weekday:        field(m, "dia_semana", "dia_da_semana", "dia"),
		ReferenceMonth: referenceMonth(field(m, "mes_referencia", "mes", "referencia")),
		StartTime:      startTime(field(m, "horario_inicio", "horario", "inicio")),
		Hours:          hours,
		Client:         field(m, "cliente_time", "cliente", "time"),
		Amount:         amount,
		Status:         models.RentalStatus(status),
	}.Normalize()

	// a missing weekday is derived from a booking date when the sheet has one
	if strings.TrimSpace(r.Weekday) == "" {
		if d := parseDateStrict(field(m, "data", "data_aluguel")); d != "" {
			if t, err := parseISODate(d); err == nil {
				r.Weekday = models.WeekdayOf(t)
				warnings = append(warnings, "weekday derived from date")
			}
		}
	}
	if err := r.Validate(); err != nil {
		return models.Rental{}, nil, err
	}
	return r, warnings, nil
}
