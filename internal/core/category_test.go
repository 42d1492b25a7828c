package core

import "testing"

func TestIconFor(t *testing.T) {
	cases := map[string]Icon{
		"餐饮":    IconUtensils,
		"红包":    IconHeartPulse,
		"工资":    IconWallet,
		"其他":    IconMore,
		"Coffee": FallbackIcon,
		"":       FallbackIcon,
	}
	for cat, want := range cases {
		if got := IconFor(cat); got != want {
			t.Fatalf("%q: got %q want %q", cat, got, want)
		}
	}
}

func TestSuggestedCategories(t *testing.T) {
	inc := SuggestedCategories(Income)
	exp := SuggestedCategories(Expense)
	if len(inc) != 5 || len(exp) != 8 {
		t.Fatalf("unexpected sizes: %d %d", len(inc), len(exp))
	}
	if inc[len(inc)-1] != CategoryOther || exp[len(exp)-1] != CategoryOther {
		t.Fatalf("catch-all should be last")
	}
	inc[0] = "mutated"
	if SuggestedCategories(Income)[0] != "工资" {
		t.Fatalf("callers must not be able to mutate the suggested set")
	}
	if SuggestedCategories("other") != nil && len(SuggestedCategories("other")) != 0 {
		t.Fatalf("unknown type should have no suggestions")
	}
	for _, c := range CategoriesWithIcons(Expense) {
		if c.Icon == "" {
			t.Fatalf("missing icon for %q", c.Name)
		}
	}
}

func TestIDGenerators(t *testing.T) {
	seen := make(map[int64]bool)
	var g RandomIDGenerator
	for i := 0; i < 1000; i++ {
		id, err := g.NextID()
		if err != nil {
			t.Fatalf("next id: %v", err)
		}
		if id <= 0 {
			t.Fatalf("non-positive id %d", id)
		}
		if id > MaxID || int64(float64(id)) != id {
			t.Fatalf("id %d does not survive a JSON number round trip", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}

	seq := NewSequenceGenerator(10)
	a, _ := seq.NextID()
	b, _ := seq.NextID()
	if a != 11 || b != 12 {
		t.Fatalf("got %d %d", a, b)
	}
}
