/*
 * DotAAS Part 1 | Metamodel
 *
 * Range element (IDTA-01001 v3.1.2).
 */

package model

// Range is a data element spanning a min/max interval.
type Range struct {
	ElementCommon
	ValueType string `json:"valueType"`
	Min       string `json:"min,omitempty"`
	Max       string `json:"max,omitempty"`
}

var rangeFields = elementFieldSet("valueType", "min", "max")

func (r *Range) ValidateElement(insideList bool) error {
	if err := r.validateCommon(insideList); err != nil {
		return err
	}
	if r.ValueType == "" {
		return newValidationError("Range requires a valueType")
	}
	return nil
}
