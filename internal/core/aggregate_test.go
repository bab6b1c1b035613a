package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func rec(amount string, kind Kind, category string, at time.Time) Record {
	return Record{
		ID:        "r-" + amount,
		Amount:    decimal.RequireFromString(amount),
		Kind:      kind,
		Category:  category,
		AccountID: "acc-1",
		CreatedAt: at,
		Owner:     "user-1",
	}
}

func TestAggregateRangeBasic(t *testing.T) {
	d1 := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	records := []Record{
		rec("100", KindEarning, "Salary", d1),
		rec("40", KindExpense, "Food", d1),
	}
	r := DateRange{Start: DateOf(d1), End: DateOf(d1)}

	got := AggregateRange(records, r)
	if !got.Income.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("income = %s, want 100", got.Income)
	}
	if !got.Expense.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expense = %s, want 40", got.Expense)
	}
	if got.SavingsRate != 60 {
		t.Fatalf("savings rate = %d, want 60", got.SavingsRate)
	}
}

func TestAggregateRangeEmptyLedger(t *testing.T) {
	r := DateRange{Start: NewDate(2025, 1, 1), End: NewDate(2025, 12, 31)}
	got := AggregateRange(nil, r)
	if !got.Income.IsZero() || !got.Expense.IsZero() || got.SavingsRate != 0 {
		t.Fatalf("empty ledger should aggregate to zeros, got %+v", got)
	}
}

func TestAggregateRangeInvertedBounds(t *testing.T) {
	d := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	records := []Record{rec("55", KindEarning, "Salary", d)}
	r := DateRange{Start: NewDate(2025, 6, 20), End: NewDate(2025, 6, 10)}

	got := AggregateRange(records, r)
	if !got.Income.IsZero() || !got.Expense.IsZero() || got.SavingsRate != 0 {
		t.Fatalf("start > end must admit nothing, got %+v", got)
	}
}

func TestAggregateRangeNoIncomeNeverDividesByZero(t *testing.T) {
	d := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	records := []Record{
		rec("30", KindExpense, "Food", d),
		rec("70", KindExpense, "Transport", d),
	}
	r := DateRange{Start: DateOf(d), End: DateOf(d)}

	got := AggregateRange(records, r)
	if got.SavingsRate != 0 {
		t.Fatalf("savings rate with zero income = %d, want 0", got.SavingsRate)
	}
	if !got.Expense.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expense = %s, want 100", got.Expense)
	}
}

func TestAggregateRangeSavingsRateRounding(t *testing.T) {
	d := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	r := DateRange{Start: DateOf(d), End: DateOf(d)}

	tests := []struct {
		income, expense string
		want            int64
	}{
		{"100", "40", 60},
		{"3", "2", 33},    // 33.33 down
		{"3", "1", 67},    // 66.67 up
		{"4", "1.9", 53},  // 52.5, half goes up
		{"4", "6.1", -52}, // -52.5, half still goes up
		{"2", "3", -50},
	}
	for _, tt := range tests {
		records := []Record{
			rec(tt.income, KindEarning, "Salary", d),
			rec(tt.expense, KindExpense, "Food", d),
		}
		got := AggregateRange(records, r)
		if got.SavingsRate != tt.want {
			t.Errorf("income %s expense %s: savings rate = %d, want %d",
				tt.income, tt.expense, got.SavingsRate, tt.want)
		}
	}
}

func TestAggregateRangeInclusiveBounds(t *testing.T) {
	start := time.Date(2025, 4, 1, 23, 59, 0, 0, time.UTC)
	end := time.Date(2025, 4, 30, 0, 1, 0, 0, time.UTC)
	outside := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		rec("10", KindExpense, "Food", start),
		rec("20", KindExpense, "Food", end),
		rec("40", KindExpense, "Food", outside),
	}
	r := DateRange{Start: NewDate(2025, 4, 1), End: NewDate(2025, 4, 30)}

	got := AggregateRange(records, r)
	if !got.Expense.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expense = %s, want 30 (both bounds inclusive, outside excluded)", got.Expense)
	}
}

func TestAggregateRangeIdempotent(t *testing.T) {
	d := time.Date(2025, 2, 2, 12, 0, 0, 0, time.UTC)
	records := []Record{
		rec("100", KindEarning, "Salary", d),
		rec("33", KindExpense, "Food", d),
	}
	r := DateRange{Start: DateOf(d), End: DateOf(d)}

	first := AggregateRange(records, r)
	second := AggregateRange(records, r)
	if !first.Income.Equal(second.Income) || !first.Expense.Equal(second.Expense) || first.SavingsRate != second.SavingsRate {
		t.Fatalf("repeated aggregation differs: %+v vs %+v", first, second)
	}
}

func TestSpendByCategoryIgnoresEarnings(t *testing.T) {
	d := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	records := []Record{
		rec("150", KindExpense, "Food", d),
		rec("100", KindExpense, "Food", d),
		rec("999", KindEarning, "Food", d),
		rec("20", KindExpense, "Transport", d),
	}

	spend := SpendByCategory(records)
	if !spend["Food"].Equal(decimal.NewFromInt(250)) {
		t.Fatalf("Food spend = %s, want 250", spend["Food"])
	}
	if !spend["Transport"].Equal(decimal.NewFromInt(20)) {
		t.Fatalf("Transport spend = %s, want 20", spend["Transport"])
	}
	if _, ok := spend["Salary"]; ok {
		t.Fatalf("earnings must not appear in the spend index")
	}
}

func TestSpendByCategoryIsAllTime(t *testing.T) {
	// A record outside any analytics range still counts toward goals.
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		rec("80", KindExpense, "Food", old),
		rec("20", KindExpense, "Food", recent),
	}
	r := DateRange{Start: DateOf(recent), End: DateOf(recent)}

	totals := AggregateRange(records, r)
	if !totals.Expense.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("range expense = %s, want 20", totals.Expense)
	}
	spend := SpendByCategory(records)
	if !spend["Food"].Equal(decimal.NewFromInt(100)) {
		t.Fatalf("all-time Food spend = %s, want 100", spend["Food"])
	}
}

func TestBudgetGoalsClamped(t *testing.T) {
	categories := []Category{
		{ID: "c1", Name: "Food", Kind: KindExpense, Target: decimal.NewFromInt(200), Owner: "u"},
		{ID: "c2", Name: "Transport", Kind: KindExpense, Target: decimal.NewFromInt(100), Owner: "u"},
		{ID: "c3", Name: "Fun", Kind: KindExpense, Owner: "u"},            // no goal
		{ID: "c4", Name: "Salary", Kind: KindEarning, Target: decimal.NewFromInt(50), Owner: "u"}, // earnings never have goals
	}
	spend := map[string]decimal.Decimal{
		"Food":      decimal.NewFromInt(250),
		"Transport": decimal.NewFromInt(30),
	}

	goals := BudgetGoals(categories, spend)
	if len(goals) != 2 {
		t.Fatalf("got %d goals, want 2", len(goals))
	}

	food := goals[0]
	if food.Category != "Food" {
		t.Fatalf("first goal = %q, want Food", food.Category)
	}
	if !food.Percent.Equal(hundred) {
		t.Fatalf("Food percent = %s, want clamped 100", food.Percent)
	}
	if !food.OverBudget {
		t.Fatalf("Food should be over budget")
	}

	transport := goals[1]
	if !transport.Percent.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("Transport percent = %s, want 30", transport.Percent)
	}
	if transport.OverBudget {
		t.Fatalf("Transport should not be over budget")
	}
}

func TestBudgetGoalsPercentAlwaysInRange(t *testing.T) {
	target := decimal.NewFromInt(10)
	for _, spent := range []string{"0", "5", "10", "10.01", "100000"} {
		goals := BudgetGoals(
			[]Category{{Name: "Food", Kind: KindExpense, Target: target, Owner: "u"}},
			map[string]decimal.Decimal{"Food": decimal.RequireFromString(spent)},
		)
		p := goals[0].Percent
		if p.IsNegative() || p.GreaterThan(hundred) {
			t.Fatalf("spent=%s: percent %s outside [0,100]", spent, p)
		}
	}
}

func TestNetWorth(t *testing.T) {
	accounts := []Account{
		{ID: "a1", Name: "Cash", Balance: decimal.RequireFromString("120.50"), Owner: "u"},
		{ID: "a2", Name: "Bank", Balance: decimal.RequireFromString("-20.50"), Owner: "u"}, // overdraft allowed
	}
	if got := NetWorth(accounts); !got.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("net worth = %s, want 100", got)
	}
	if got := NetWorth(nil); !got.IsZero() {
		t.Fatalf("net worth of no accounts = %s, want 0", got)
	}
}
