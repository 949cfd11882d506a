package domain

import (
	"errors"
	"fmt"
)

type FilterOperator string

const (
	FilterEq  FilterOperator = "=="
	FilterIn  FilterOperator = "in"
	FilterAnd FilterOperator = "AND"
	FilterOr  FilterOperator = "OR"
)

// Filter is a boolean predicate tree over document metadata. Leaf nodes
// (==, in) name a meta field and a value; composite nodes (AND, OR) hold
// conditions. The retrieval core only validates shape and passes filters
// through to the document store unchanged.
type Filter struct {
	Operator   FilterOperator `json:"operator"`
	Field      string         `json:"field,omitempty"`
	Value      any            `json:"value,omitempty"`
	Conditions []Filter       `json:"conditions,omitempty"`
}

func (f Filter) IsZero() bool {
	return f.Operator == "" && f.Field == "" && f.Value == nil && len(f.Conditions) == 0
}

func (f Filter) Validate() error {
	if f.IsZero() {
		return nil
	}
	switch f.Operator {
	case FilterEq:
		if f.Field == "" || f.Value == nil {
			return WrapError(ErrInvalidInput, "validate filter", errors.New("== requires field and value"))
		}
	case FilterIn:
		if f.Field == "" {
			return WrapError(ErrInvalidInput, "validate filter", errors.New("in requires field"))
		}
		if _, ok := f.Value.([]any); !ok {
			if _, ok := f.Value.([]string); !ok {
				return WrapError(ErrInvalidInput, "validate filter", errors.New("in requires a list value"))
			}
		}
	case FilterAnd, FilterOr:
		if len(f.Conditions) == 0 {
			return WrapError(ErrInvalidInput, "validate filter", fmt.Errorf("%s requires conditions", f.Operator))
		}
		for _, cond := range f.Conditions {
			if err := cond.Validate(); err != nil {
				return err
			}
		}
	default:
		return WrapError(ErrInvalidInput, "validate filter", fmt.Errorf("unknown operator %q", f.Operator))
	}
	return nil
}
