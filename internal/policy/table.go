package policy

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/angeloszaimis/resilience/internal/classifier"
)

// Table resolves effective policies. Build it with NewTable or
// DefaultTable and treat it as read-only afterwards.
type Table struct {
	categories map[classifier.Category]Policy
	operations []OperationOverride
}

// NewTable validates every category policy and copies its inputs. Missing
// categories fall back to the UNKNOWN policy, which therefore must exist.
func NewTable(categories map[classifier.Category]Policy, operations []OperationOverride) (*Table, error) {
	if _, ok := categories[classifier.CategoryUnknown]; !ok {
		return nil, fmt.Errorf("policy table: missing %s policy", classifier.CategoryUnknown)
	}

	errs := validation.Errors{}
	copied := make(map[classifier.Category]Policy, len(categories))
	for category, p := range categories {
		if !category.Valid() {
			errs[string(category)] = validation.NewError("validation_invalid_category", "unknown failure category")
			continue
		}
		if err := p.Validate(); err != nil {
			errs[string(category)] = err
			continue
		}
		copied[category] = p
	}
	if err := errs.Filter(); err != nil {
		return nil, fmt.Errorf("policy table: %w", err)
	}

	ops := make([]OperationOverride, len(operations))
	for i, op := range operations {
		keywords := make([]string, len(op.Keywords))
		for j, k := range op.Keywords {
			keywords[j] = strings.ToLower(k)
		}
		op.Keywords = keywords
		ops[i] = op
	}

	return &Table{categories: copied, operations: ops}, nil
}

func DefaultTable() *Table {
	t, err := NewTable(DefaultPolicies(), DefaultOperationOverrides())
	if err != nil {
		panic(err)
	}
	return t
}

// Category returns the default policy for category.
func (t *Table) Category(category classifier.Category) Policy {
	if p, ok := t.categories[category]; ok {
		return p
	}
	return t.categories[classifier.CategoryUnknown]
}

// MatchOperation returns the first override whose keywords appear in name.
func (t *Table) MatchOperation(name string) (OperationOverride, bool) {
	lowered := strings.ToLower(name)
	if lowered == "" {
		return OperationOverride{}, false
	}
	for _, op := range t.operations {
		for _, keyword := range op.Keywords {
			if keyword != "" && strings.Contains(lowered, keyword) {
				return op, true
			}
		}
	}
	return OperationOverride{}, false
}

// Resolve merges the category default, the operation-name override and
// the caller override, in that order.
func (t *Table) Resolve(category classifier.Category, name string, override *Override) Policy {
	p := t.Category(category)
	if op, ok := t.MatchOperation(name); ok {
		p = p.Apply(&op.Override)
	}
	p = p.Apply(override)
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	p.JitterFraction = min(max(p.JitterFraction, 0), 1)
	return p
}
