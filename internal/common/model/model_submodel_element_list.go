/*
 * DotAAS Part 1 | Metamodel
 *
 * SubmodelElementList (IDTA-01001 v3.1.2). Children are addressed by index;
 * they may omit the idShort.
 */

package model

import jsoniter "github.com/json-iterator/go"

// SubmodelElementList holds an ordered, index-addressed element sequence.
type SubmodelElementList struct {
	ElementCommon
	OrderRelevant         *bool             `json:"orderRelevant,omitempty"`
	SemanticIDListElement *Reference        `json:"semanticIdListElement,omitempty"`
	TypeValueListElement  string            `json:"typeValueListElement"`
	ValueTypeListElement  string            `json:"valueTypeListElement,omitempty"`
	Value                 []SubmodelElement `json:"value,omitempty"`
}

var submodelElementListFields = elementFieldSet(
	"orderRelevant", "semanticIdListElement", "typeValueListElement",
	"valueTypeListElement", "value",
)

func (l *SubmodelElementList) UnmarshalJSON(data []byte) error {
	type alias SubmodelElementList
	aux := struct {
		*alias
		Value jsoniter.RawMessage `json:"value,omitempty"`
	}{alias: (*alias)(l)}
	if err := jsonModel.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Value) > 0 {
		children, err := unmarshalElementSlice(aux.Value)
		if err != nil {
			return err
		}
		l.Value = children
	}
	return nil
}

func (l *SubmodelElementList) ValidateElement(insideList bool) error {
	if err := l.validateCommon(insideList); err != nil {
		return err
	}
	for _, child := range l.Value {
		if err := child.ValidateElement(true); err != nil {
			return err
		}
	}
	return nil
}
