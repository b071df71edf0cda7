/*
 * DotAAS Part 1 | Metamodel
 *
 * SubmodelElementCollection (IDTA-01001 v3.1.2). Children are addressed by
 * idShort; idShortPath name steps cross into collections.
 */

package model

import jsoniter "github.com/json-iterator/go"

// SubmodelElementCollection groups named submodel elements.
type SubmodelElementCollection struct {
	ElementCommon
	Value []SubmodelElement `json:"value,omitempty"`
}

var submodelElementCollectionFields = elementFieldSet("value")

func (c *SubmodelElementCollection) UnmarshalJSON(data []byte) error {
	type alias SubmodelElementCollection
	aux := struct {
		*alias
		Value jsoniter.RawMessage `json:"value,omitempty"`
	}{alias: (*alias)(c)}
	if err := jsonModel.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Value) > 0 {
		children, err := unmarshalElementSlice(aux.Value)
		if err != nil {
			return err
		}
		c.Value = children
	}
	return nil
}

func (c *SubmodelElementCollection) ValidateElement(insideList bool) error {
	if err := c.validateCommon(insideList); err != nil {
		return err
	}
	for _, child := range c.Value {
		if err := child.ValidateElement(false); err != nil {
			return err
		}
	}
	return nil
}
