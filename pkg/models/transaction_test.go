package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransactionColumns(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		expense bool
		inflow  string
		outflow string
	}{
		{name: "income", amount: "50", inflow: "50", outflow: "0"},
		{name: "zero is income", amount: "0", inflow: "0", outflow: "0"},
		{name: "expense", amount: "-20.35", expense: true, inflow: "0", outflow: "-20.35"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{Amount: decimal.RequireFromString(tt.amount)}
			assert.Equal(t, tt.expense, tx.IsExpense())
			assert.Equal(t, tt.inflow, tx.Inflow().String())
			assert.Equal(t, tt.outflow, tx.Outflow().String())
		})
	}
}
