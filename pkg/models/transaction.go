package models

import "github.com/shopspring/decimal"

// Transaction is one card movement in the shape Wallet imports.
// Date is the source timestamp kept verbatim: the dedup step reads its first
// 16 characters as YYYY-MM-DDTHH:MM.
type Transaction struct {
	Date   string
	Note   string
	Amount decimal.Decimal
}

func (t *Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// Inflow is the amount column: the amount for income, zero otherwise.
func (t *Transaction) Inflow() decimal.Decimal {
	if t.IsExpense() {
		return decimal.Zero
	}
	return t.Amount
}

// Outflow is the expense column: the (negative) amount for expenses, zero
// otherwise.
func (t *Transaction) Outflow() decimal.Decimal {
	if t.IsExpense() {
		return t.Amount
	}
	return decimal.Zero
}
