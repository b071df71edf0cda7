/*
 * DotAAS Part 1 | Metamodel
 *
 * Operation element and OperationVariable (IDTA-01001 v3.1.2).
 */

package model

import jsoniter "github.com/json-iterator/go"

// OperationVariable wraps a submodel element used as an operation argument.
type OperationVariable struct {
	Value SubmodelElement `json:"value"`
}

func (v *OperationVariable) UnmarshalJSON(data []byte) error {
	var aux struct {
		Value jsoniter.RawMessage `json:"value"`
	}
	if err := jsonModel.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Value) == 0 {
		return newValidationError("OperationVariable requires a value element")
	}
	element, err := UnmarshalSubmodelElement(aux.Value)
	if err != nil {
		return err
	}
	v.Value = element
	return nil
}

// Operation is an invocable element with declared input, output and
// inoutput variables.
type Operation struct {
	ElementCommon
	InputVariables    []OperationVariable `json:"inputVariables,omitempty"`
	OutputVariables   []OperationVariable `json:"outputVariables,omitempty"`
	InoutputVariables []OperationVariable `json:"inoutputVariables,omitempty"`
}

var operationFields = elementFieldSet("inputVariables", "outputVariables", "inoutputVariables")

func (o *Operation) ValidateElement(insideList bool) error {
	if err := o.validateCommon(insideList); err != nil {
		return err
	}
	for _, group := range [][]OperationVariable{o.InputVariables, o.OutputVariables, o.InoutputVariables} {
		for _, variable := range group {
			if variable.Value == nil {
				return newValidationError("OperationVariable requires a value element")
			}
			if err := variable.Value.ValidateElement(false); err != nil {
				return err
			}
		}
	}
	return nil
}
