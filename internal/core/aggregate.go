package core

import "github.com/shopspring/decimal"

// RangeTotals is the income/expense/savings summary for a date range.
type RangeTotals struct {
	Income      decimal.Decimal
	Expense     decimal.Decimal
	SavingsRate int64 // whole percent
}

// GoalProgress is the budget-goal progress line for one expense category.
type GoalProgress struct {
	Category   string
	Target     decimal.Decimal
	Spent      decimal.Decimal
	Percent    decimal.Decimal // clamped to [0,100]
	OverBudget bool
}

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.New(5, -1)
)

// AggregateRange sums income and expense over the records whose calendar
// date falls inside the range, inclusive on both ends. The savings rate is
// round((income-expense)/income*100), defined as 0 when income is zero so
// an empty range never divides by zero. The function is pure; the full
// result is recomputed on every call.
func AggregateRange(records []Record, r DateRange) RangeTotals {
	totals := RangeTotals{Income: decimal.Zero, Expense: decimal.Zero}

	for _, rec := range records {
		if !DateOf(rec.CreatedAt).In(r) {
			continue
		}
		if rec.Kind == KindEarning {
			totals.Income = totals.Income.Add(rec.Amount)
		} else {
			totals.Expense = totals.Expense.Add(rec.Amount)
		}
	}

	if totals.Income.IsPositive() {
		rate := totals.Income.Sub(totals.Expense).Div(totals.Income).Mul(hundred)
		// Halves round toward positive infinity: -52.5 becomes -52, 52.5
		// becomes 53.
		totals.SavingsRate = rate.Add(half).Floor().IntPart()
	}

	return totals
}

// SpendByCategory sums expense amounts grouped by the denormalized
// category name over the entire record slice. Earnings are ignored.
// Budget goals track all-time spend against the monthly target; the
// index deliberately never resets.
func SpendByCategory(records []Record) map[string]decimal.Decimal {
	spend := make(map[string]decimal.Decimal)
	for _, rec := range records {
		if rec.Kind != KindExpense {
			continue
		}
		spend[rec.Category] = spend[rec.Category].Add(rec.Amount)
	}
	return spend
}

// BudgetGoals evaluates goal progress for every expense category with a
// positive target. Percent is clamped to 100 even when spend exceeds the
// target; the OverBudget flag carries the overshoot for presentation.
func BudgetGoals(categories []Category, spend map[string]decimal.Decimal) []GoalProgress {
	var goals []GoalProgress
	for _, c := range categories {
		if !c.HasGoal() {
			continue
		}
		spent := spend[c.Name]
		percent := spent.Div(c.Target).Mul(hundred)
		if percent.GreaterThan(hundred) {
			percent = hundred
		}
		goals = append(goals, GoalProgress{
			Category:   c.Name,
			Target:     c.Target,
			Spent:      spent,
			Percent:    percent,
			OverBudget: spent.GreaterThan(c.Target),
		})
	}
	return goals
}

// NetWorth is the sum of all cached account balances.
func NetWorth(accounts []Account) decimal.Decimal {
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}
	return total
}
