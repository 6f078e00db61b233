package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Summary is the dashboard aggregate for one user's expense set.
type Summary struct {
	Total       Money
	PerCategory map[string]Money
	Count       int
	OverBudget  bool
}

// Summarize computes the dashboard aggregate from a set of expenses and a
// budget ceiling. Categories group by the stored string exactly; "Food" and
// "food" are distinct. OverBudget is strict: a total equal to the ceiling
// is not an alert. An empty set yields a zero total and no alert.
func Summarize(expenses []Expense, ceiling Money) Summary {
	s := Summary{
		PerCategory: make(map[string]Money, len(expenses)),
		Count:       len(expenses),
	}
	for _, e := range expenses {
		s.Total.Cents += e.Amount.Cents
		c := s.PerCategory[e.Category]
		c.Cents += e.Amount.Cents
		s.PerCategory[e.Category] = c
	}
	s.OverBudget = s.Total.Cents > ceiling.Cents
	return s
}

// Categories returns the per-category breakdown sorted by descending amount,
// ties broken by name, for stable template rendering.
func (s Summary) Categories() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(s.PerCategory))
	for name, amount := range s.PerCategory {
		out = append(out, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}
