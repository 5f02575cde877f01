package models

import (
	"fmt"
)

// Plan is one row of the pricing table.
type Plan struct {
	Name        PlanName `json:"name" yaml:"name"`
	Price       float64  `json:"price" yaml:"price"` // USD
	WordLimit   int      `json:"word_limit" yaml:"word_limit"`
	Description string   `json:"description" yaml:"description"`
}

// PlanTable is the ordered pricing table. It is built once at startup and never mutated.
type PlanTable []Plan

func DefaultPlans() PlanTable {
	return PlanTable{
		{Name: PlanFree, Price: 0, WordLimit: 500, Description: "Free tier with 500 words per round"},
		{Name: PlanBasic, Price: 20, WordLimit: 100, Description: "Basic plan with 100 words per round"},
		{Name: PlanPremium, Price: 50, WordLimit: 1000, Description: "Premium plan with 1000 words per round"},
	}
}

// ValidPlanName reports whether name is one of the known plans.
func ValidPlanName(name PlanName) bool {
	switch name {
	case PlanFree, PlanBasic, PlanPremium:
		return true
	}
	return false
}

func (t PlanTable) Lookup(name PlanName) (Plan, bool) {
	for _, p := range t {
		if p.Name == name {
			return p, true
		}
	}
	return Plan{}, false
}

// Get returns the named plan, falling back to Free for unknown names.
func (t PlanTable) Get(name PlanName) Plan {
	if p, ok := t.Lookup(name); ok {
		return p
	}
	p, _ := t.Lookup(PlanFree)
	return p
}

// WordLimit is the per-round ceiling for a plan.
func (t PlanTable) WordLimit(name PlanName) int {
	return t.Get(name).WordLimit
}

// Except lists every plan but the named one, in table order.
func (t PlanTable) Except(name PlanName) PlanTable {
	out := make(PlanTable, 0, len(t))
	for _, p := range t {
		if p.Name != name {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks a table loaded from outside the binary.
func (t PlanTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("pricing table is empty")
	}
	seen := make(map[PlanName]bool, len(t))
	for _, p := range t {
		if !ValidPlanName(p.Name) {
			return fmt.Errorf("unknown plan %q", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("plan %q listed twice", p.Name)
		}
		seen[p.Name] = true
		if p.Price < 0 || p.WordLimit < 0 {
			return fmt.Errorf("plan %q: price and word_limit must not be negative", p.Name)
		}
	}
	if !seen[PlanFree] {
		return fmt.Errorf("pricing table must include the %s plan", PlanFree)
	}
	return nil
}
