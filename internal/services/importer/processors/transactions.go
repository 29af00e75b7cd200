package processors

import (
	"context"
	"strconv"
	"time"

	"quadra_financeiro/internal/apperr"
	"quadra_financeiro/internal/models"

	"go.uber.org/zap"
)

type TransactionsProcessor struct {
	*BaseProcessor
}

func (p TransactionsProcessor) Type() string { return string(models.CollectionTransactions) }

func (p *TransactionsProcessor) ProcessBatch(ctx context.Context, batch []map[string]string) error {
	if err := CheckDeps(p); err != nil {
		return err
	}
	log := p.Log.With(zap.String("proc", p.Type()))
	log.Info("[PROC][transacoes][START]", zap.Int("rows", len(batch)))

	success, failed := 0, 0
	for i, m := range batch {
		t, err := transactionFromRow(m)
		if err != nil {
			failed++
			log.Warn("[PROC][transacoes][SKIP]", zap.Int("row", i), zap.Error(err))
			p.logItem(ctx, p.Type(), "", m, err, nil)
			continue
		}

		id, err := p.Ledger.AddTransaction(ctx, t)
		if err != nil {
			failed++
			log.Error("[PROC][transacoes][ERR]", zap.Int("row", i), zap.Error(err))
			p.logItem(ctx, p.Type(), "", m, err, nil)
			if apperr.KindOf(err) == apperr.KindUnavailable {
				return err
			}
			continue
		}
		success++
		p.logItem(ctx, p.Type(), strconv.FormatInt(id, 10), m, nil, nil)
	}

	log.Info("[PROC][transacoes][DONE]", zap.Int("total", len(batch)), zap.Int("success", success), zap.Int("failed", failed))
	return nil
}

func transactionFromRow(m map[string]string) (models.Transaction, error) {
	raw := field(m, "data_transacao", "data")
	date := parseDateStrict(raw)
	if date == "" {
		return models.Transaction{}, apperr.Invalid("data_transacao", "unreadable date "+strconv.Quote(raw))
	}
	amount, ok := normalizeAmount(field(m, "valor"))
	if !ok {
		return models.Transaction{}, apperr.Invalid("valor", "not a number")
	}
	t := models.Transaction{
		Date:        date,
		Type:        models.TransactionType(field(m, "tipo")),
		Description: field(m, "descricao", "description"),
		Amount:      amount,
		Note:        field(m, "observacao", "obs"),
	}.Normalize()
	if err := t.Validate(); err != nil {
		return models.Transaction{}, err
	}
	return t, nil
}

func parseISODate(s string) (time.Time, error) {
	return time.Parse(models.DateLayout, s)
}
