/*
 * DotAAS Part 1 | Metamodel
 *
 * Blob element (IDTA-01001 v3.1.2). A persisted Blob value is either inline
 * base64 (below the externalization threshold) or an internal /blobs/{id}
 * reference resolved by the attachment endpoint.
 */

package model

// Blob is a data element carrying binary content inline or by reference.
type Blob struct {
	ElementCommon
	ContentType string `json:"contentType"`
	Value       string `json:"value,omitempty"`
}

var blobFields = elementFieldSet("contentType", "value")

func (b *Blob) ValidateElement(insideList bool) error {
	if err := b.validateCommon(insideList); err != nil {
		return err
	}
	if b.ContentType == "" {
		return newValidationError("Blob requires a contentType")
	}
	if !ValidBlobValue(b.Value) {
		return newValidationError("Blob value must be base64, a base64 data URI, or an internal blob reference")
	}
	return nil
}
