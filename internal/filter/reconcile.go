package filter

import (
	"fmt"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"
)

// Submission carries the widget values of one interaction. Fields missing
// from both maps keep their current value.
type Submission struct {
	Selections map[string][]string `json:"selections"`
	Ranges     map[string]Range    `json:"ranges"`
}

// Reconcile applies a submission field by field in catalog order and returns
// the keys whose value changed. Nothing is applied if any field is invalid.
func Reconcile(table *dataset.Table, s State, sub Submission) (State, []string, error) {
	for key := range sub.Selections {
		if f, ok := Lookup(key); !ok || f.Numeric() {
			return s, nil, unknownFieldErr(key, ok)
		}
	}
	for key := range sub.Ranges {
		if f, ok := Lookup(key); !ok || !f.Numeric() {
			return s, nil, unknownFieldErr(key, ok)
		}
	}

	next := s
	var changed []string
	for _, f := range Fields {
		var (
			did bool
			err error
		)
		if f.Numeric() {
			r, ok := sub.Ranges[f.Key]
			if !ok {
				continue
			}
			next, did, err = ApplyRange(table, next, f.Key, r.Min, r.Max)
		} else {
			values, ok := sub.Selections[f.Key]
			if !ok {
				continue
			}
			next, did, err = ApplySelection(table, next, f.Key, values)
		}
		if err != nil {
			return s, nil, err
		}
		if did {
			changed = append(changed, f.Key)
		}
	}
	return next, changed, nil
}

func unknownFieldErr(key string, known bool) error {
	if !known {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	if f, _ := Lookup(key); f.Numeric() {
		return fmt.Errorf("%w: %q", ErrNotCategorical, key)
	}
	return fmt.Errorf("%w: %q", ErrNotNumeric, key)
}
