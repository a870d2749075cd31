package model

import "slices"

// CategoryOther is the fallback category present in every vocabulary.
const CategoryOther = "Lainnya"

var (
	incomeCategories = []string{
		"Gaji",
		"Freelance",
		"Investasi",
		"Bonus",
		CategoryOther,
	}

	expenseCategories = []string{
		"Makanan",
		"Transport",
		"Hiburan",
		"Belanja",
		"Tagihan",
		"Kesehatan",
		"Pendidikan",
		CategoryOther,
	}

	savingsCategories = []string{
		"Tabungan Rutin",
		"Dana Darurat",
		"Investasi",
		"Target Khusus",
		CategoryOther,
	}
)

// Categories returns the fixed category vocabulary for a transaction type.
func Categories(t TransactionType) []string {
	switch t {
	case TypeIncome:
		return slices.Clone(incomeCategories)
	case TypeExpense:
		return slices.Clone(expenseCategories)
	case TypeSavings:
		return slices.Clone(savingsCategories)
	}
	return nil
}

// ValidCategory reports whether category belongs to the vocabulary of t.
func ValidCategory(t TransactionType, category string) bool {
	switch t {
	case TypeIncome:
		return slices.Contains(incomeCategories, category)
	case TypeExpense:
		return slices.Contains(expenseCategories, category)
	case TypeSavings:
		return slices.Contains(savingsCategories, category)
	}
	return false
}
