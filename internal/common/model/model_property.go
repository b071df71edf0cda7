/*
 * DotAAS Part 1 | Metamodel
 *
 * Property element (IDTA-01001 v3.1.2).
 */

package model

// Property is a data element with a single typed value.
type Property struct {
	ElementCommon
	ValueType string     `json:"valueType"`
	Value     string     `json:"value,omitempty"`
	ValueID   *Reference `json:"valueId,omitempty"`
}

var propertyFields = elementFieldSet("valueType", "value", "valueId")

// NewProperty creates a Property with the given value type.
func NewProperty(valueType string) *Property {
	return &Property{
		ElementCommon: ElementCommon{ModelType: "Property"},
		ValueType:     valueType,
	}
}

func (p *Property) ValidateElement(insideList bool) error {
	if err := p.validateCommon(insideList); err != nil {
		return err
	}
	if p.ValueType == "" {
		return newValidationError("Property requires a valueType")
	}
	return nil
}
