package vectorize

import (
	"fmt"
	"strconv"

	"github.com/esk1llz/ML-log-analysis/internal/config"
	"github.com/esk1llz/ML-log-analysis/internal/models"
)

// Rule decides whether a record of its category counts, and extracts the
// subcategory key it is counted under. Implementations are supplied as
// configuration so new log categories never touch the scoring engine.
type Rule interface {
	// Key returns the subcategory key for the record. keep=false means
	// the record was filtered out on purpose (not an error); keep=true
	// with an empty key means the record is malformed.
	Key(rec models.EventRecord) (key string, keep bool)
}

// FieldRule extracts the subcategory key from a top-level record field.
type FieldRule struct {
	KeyField string
}

// Key implements Rule.
func (r FieldRule) Key(rec models.EventRecord) (string, bool) {
	return coerceKey(rec.Fields[r.KeyField]), true
}

// NestedRule keeps only records whose filter field matches, then reads
// the subcategory key from a nested object (the suricata alert shape:
// event_type == "alert", key under the alert block).
type NestedRule struct {
	KeyField     string
	NestedField  string
	FilterField  string
	FilterEquals string
}

// Key implements Rule.
func (r NestedRule) Key(rec models.EventRecord) (string, bool) {
	if r.FilterField != "" {
		if coerceKey(rec.Fields[r.FilterField]) != r.FilterEquals {
			return "", false
		}
	}
	fields := rec.Fields
	if r.NestedField != "" {
		nested, ok := rec.Fields[r.NestedField].(map[string]any)
		if !ok {
			return "", true
		}
		fields = nested
	}
	return coerceKey(fields[r.KeyField]), true
}

// RuleSet maps category names to their normalization rules.
type RuleSet map[string]Rule

// NewRuleSet builds a RuleSet from category configuration.
func NewRuleSet(cfgs []config.CategoryConfig) (RuleSet, error) {
	set := make(RuleSet, len(cfgs))
	for _, c := range cfgs {
		if c.Name == "" || c.KeyField == "" {
			return nil, fmt.Errorf("category rule needs name and keyField")
		}
		if _, dup := set[c.Name]; dup {
			return nil, fmt.Errorf("duplicate category rule %q", c.Name)
		}
		if c.NestedField == "" && c.FilterField == "" {
			set[c.Name] = FieldRule{KeyField: c.KeyField}
			continue
		}
		set[c.Name] = NestedRule{
			KeyField:     c.KeyField,
			NestedField:  c.NestedField,
			FilterField:  c.FilterField,
			FilterEquals: c.FilterEquals,
		}
	}
	return set, nil
}

// coerceKey renders a JSON field value as a string subcategory key.
// Numeric rule ids and severity codes arrive as float64 from JSON.
func coerceKey(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
