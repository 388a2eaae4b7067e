package core

import "github.com/shopspring/decimal"

// CategoryTotal is the summed amount of one category.
type CategoryTotal struct {
	Category Category
	Amount   decimal.Decimal
}

// CategoryShare is a CategoryTotal with its rounded percentage of the total.
type CategoryShare struct {
	CategoryTotal
	Percent int
}

// Breakdown groups expenses by category. ByCategory follows the order in
// which each category first appears; categories without expenses are absent.
type Breakdown struct {
	ByCategory []CategoryTotal
	Total      decimal.Decimal
}

// Aggregate computes the per-category totals and the grand total in a single
// pass.
func Aggregate(expenses []Expense) Breakdown {
	b := Breakdown{Total: decimal.Zero}
	pos := make(map[Category]int, 4)
	for _, e := range expenses {
		i, ok := pos[e.Category]
		if !ok {
			i = len(b.ByCategory)
			pos[e.Category] = i
			b.ByCategory = append(b.ByCategory, CategoryTotal{Category: e.Category, Amount: decimal.Zero})
		}
		b.ByCategory[i].Amount = b.ByCategory[i].Amount.Add(e.Amount)
		b.Total = b.Total.Add(e.Amount)
	}
	return b
}

// Map returns the totals keyed by category.
func (b Breakdown) Map() map[Category]decimal.Decimal {
	m := make(map[Category]decimal.Decimal, len(b.ByCategory))
	for _, ct := range b.ByCategory {
		m[ct.Category] = ct.Amount
	}
	return m
}

// Shares returns each category with its share of the total as a whole
// percentage clamped to 0..100. A zero total yields 0 for every category.
func (b Breakdown) Shares() []CategoryShare {
	hundred := decimal.NewFromInt(100)
	out := make([]CategoryShare, 0, len(b.ByCategory))
	for _, ct := range b.ByCategory {
		pct := 0
		if !b.Total.IsZero() {
			pct = int(ct.Amount.Mul(hundred).Div(b.Total).Round(0).IntPart())
		}
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		out = append(out, CategoryShare{CategoryTotal: ct, Percent: pct})
	}
	return out
}
