package processors

import (
	"quadra_financeiro/internal/models"
	"quadra_financeiro/internal/ports"
)

// Registry maps import types to their processors.
func Registry(base *BaseProcessor) map[string]ports.Processor {
	return map[string]ports.Processor{
		string(models.CollectionRentals):      &RentalsProcessor{BaseProcessor: base},
		string(models.CollectionTransactions): &TransactionsProcessor{BaseProcessor: base},
	}
}
