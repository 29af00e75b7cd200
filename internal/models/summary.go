package models

import "github.com/shopspring/decimal"

type RentalSummary struct {
	TotalPaid float64 `json:"total_pago"`
	TotalDue  float64 `json:"total_a_pagar"`
	Count     int     `json:"total_alugueis"`
	Hours     float64 `json:"total_horas"`
}

type TransactionSummary struct {
	TotalInflow  float64 `json:"total_entradas"`
	TotalOutflow float64 `json:"total_saidas"`
	Count        int     `json:"total_transacoes"`
}

// Balance folds paid rentals into inflows, as the dashboard shows them.
type Balance struct {
	TotalIn  float64 `json:"total_entradas"`
	TotalOut float64 `json:"total_saidas"`
	Final    float64 `json:"saldo_final"`
}

type Summary struct {
	Year         int                `json:"ano"`
	Month        int                `json:"mes"`
	Rentals      RentalSummary      `json:"alugueis"`
	Transactions TransactionSummary `json:"transacoes"`
	Balance      Balance            `json:"saldo"`
}

// Summarize totals one month of rows. Amounts are summed as decimals so that
// total_pago + total_a_pagar equals the sum of every rental amount.
func Summarize(year, month int, rentals []Rental, txs []Transaction) Summary {
	var paid, due, hours, in, out decimal.Decimal
	for _, r := range rentals {
		v := decimal.NewFromFloat(r.Amount)
		if r.Status == StatusPaid {
			paid = paid.Add(v)
		} else {
			due = due.Add(v)
		}
		hours = hours.Add(decimal.NewFromFloat(r.Hours))
	}
	for _, t := range txs {
		v := decimal.NewFromFloat(t.Amount)
		switch t.Type {
		case TypeInflow:
			in = in.Add(v)
		case TypeOutflow:
			out = out.Add(v)
		}
	}
	s := Summary{
		Year:  year,
		Month: month,
		Rentals: RentalSummary{
			TotalPaid: paid.InexactFloat64(),
			TotalDue:  due.InexactFloat64(),
			Count:     len(rentals),
			Hours:     hours.InexactFloat64(),
		},
		Transactions: TransactionSummary{
			TotalInflow:  in.InexactFloat64(),
			TotalOutflow: out.InexactFloat64(),
			Count:        len(txs),
		},
	}
	s.Balance = BalanceOf(s.Rentals, s.Transactions)
	return s
}

func BalanceOf(r RentalSummary, t TransactionSummary) Balance {
	in := decimal.NewFromFloat(r.TotalPaid).Add(decimal.NewFromFloat(t.TotalInflow))
	out := decimal.NewFromFloat(t.TotalOutflow)
	return Balance{
		TotalIn:  in.InexactFloat64(),
		TotalOut: out.InexactFloat64(),
		Final:    in.Sub(out).InexactFloat64(),
	}
}
