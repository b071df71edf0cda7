/*
 * DotAAS Part 1 | Metamodel
 *
 * RelationshipElement and AnnotatedRelationshipElement (IDTA-01001 v3.1.2).
 */

package model

import jsoniter "github.com/json-iterator/go"

// RelationshipElement relates two referable entities.
type RelationshipElement struct {
	ElementCommon
	First  *Reference `json:"first"`
	Second *Reference `json:"second"`
}

var relationshipElementFields = elementFieldSet("first", "second")

func (r *RelationshipElement) ValidateElement(insideList bool) error {
	if err := r.validateCommon(insideList); err != nil {
		return err
	}
	if r.First == nil || r.Second == nil {
		return newValidationError("RelationshipElement requires first and second references")
	}
	return nil
}

// AnnotatedRelationshipElement is a relationship carrying data element
// annotations.
type AnnotatedRelationshipElement struct {
	ElementCommon
	First       *Reference        `json:"first"`
	Second      *Reference        `json:"second"`
	Annotations []SubmodelElement `json:"annotations,omitempty"`
}

var annotatedRelationshipElementFields = elementFieldSet("first", "second", "annotations")

func (a *AnnotatedRelationshipElement) UnmarshalJSON(data []byte) error {
	type alias AnnotatedRelationshipElement
	aux := struct {
		*alias
		Annotations jsoniter.RawMessage `json:"annotations,omitempty"`
	}{alias: (*alias)(a)}
	if err := jsonModel.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Annotations) > 0 {
		annotations, err := unmarshalElementSlice(aux.Annotations)
		if err != nil {
			return err
		}
		a.Annotations = annotations
	}
	return nil
}

func (a *AnnotatedRelationshipElement) ValidateElement(insideList bool) error {
	if err := a.validateCommon(insideList); err != nil {
		return err
	}
	if a.First == nil || a.Second == nil {
		return newValidationError("AnnotatedRelationshipElement requires first and second references")
	}
	for _, annotation := range a.Annotations {
		if err := annotation.ValidateElement(false); err != nil {
			return err
		}
	}
	return nil
}
