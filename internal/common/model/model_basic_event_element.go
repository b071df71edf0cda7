/*
 * DotAAS Part 1 | Metamodel
 *
 * BasicEventElement (IDTA-01001 v3.1.2).
 */

package model

// BasicEventElement declares an event source or sink on a referable.
type BasicEventElement struct {
	ElementCommon
	Observed      *Reference `json:"observed"`
	Direction     string     `json:"direction"`
	State         string     `json:"state"`
	MessageTopic  string     `json:"messageTopic,omitempty"`
	MessageBroker *Reference `json:"messageBroker,omitempty"`
	LastUpdate    string     `json:"lastUpdate,omitempty"`
	MinInterval   string     `json:"minInterval,omitempty"`
	MaxInterval   string     `json:"maxInterval,omitempty"`
}

var basicEventElementFields = elementFieldSet(
	"observed", "direction", "state", "messageTopic", "messageBroker",
	"lastUpdate", "minInterval", "maxInterval",
)

func (b *BasicEventElement) ValidateElement(insideList bool) error {
	if err := b.validateCommon(insideList); err != nil {
		return err
	}
	if b.Observed == nil {
		return newValidationError("BasicEventElement requires an observed reference")
	}
	if b.Direction != "input" && b.Direction != "output" {
		return newValidationError("BasicEventElement direction must be input or output")
	}
	if b.State != "on" && b.State != "off" {
		return newValidationError("BasicEventElement state must be on or off")
	}
	return nil
}
