/*
 * DotAAS Part 1 | Metamodel
 *
 * ReferenceElement (IDTA-01001 v3.1.2).
 */

package model

// ReferenceElement is a data element whose value is a reference.
type ReferenceElement struct {
	ElementCommon
	Value *Reference `json:"value,omitempty"`
}

var referenceElementFields = elementFieldSet("value")

func (r *ReferenceElement) ValidateElement(insideList bool) error {
	return r.validateCommon(insideList)
}
