/*
 * DotAAS Part 1 | Metamodel
 *
 * Capability element (IDTA-01001 v3.1.2).
 */

package model

// Capability asserts the potential of an asset to achieve an effect.
type Capability struct {
	ElementCommon
}

var capabilityFields = elementFieldSet()

func (c *Capability) ValidateElement(insideList bool) error {
	return c.validateCommon(insideList)
}
