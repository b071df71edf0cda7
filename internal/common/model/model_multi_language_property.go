/*
 * DotAAS Part 1 | Metamodel
 *
 * MultiLanguageProperty element (IDTA-01001 v3.1.2).
 */

package model

// MultiLanguageProperty is a data element whose value is a list of
// language-tagged strings.
type MultiLanguageProperty struct {
	ElementCommon
	Value   []LangStringTextType `json:"value,omitempty"`
	ValueID *Reference           `json:"valueId,omitempty"`
}

var multiLanguagePropertyFields = elementFieldSet("value", "valueId")

func (m *MultiLanguageProperty) ValidateElement(insideList bool) error {
	return m.validateCommon(insideList)
}
