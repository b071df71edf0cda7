/*
 * DotAAS Part 1 | Metamodel
 *
 * File element (IDTA-01001 v3.1.2). The value is a path or URL; data URIs
 * are accepted on write and externalized like Blob content.
 */

package model

// File is a data element referencing external binary content.
type File struct {
	ElementCommon
	ContentType string `json:"contentType"`
	Value       string `json:"value,omitempty"`
}

var fileFields = elementFieldSet("contentType", "value")

func (f *File) ValidateElement(insideList bool) error {
	if err := f.validateCommon(insideList); err != nil {
		return err
	}
	if f.ContentType == "" {
		return newValidationError("File requires a contentType")
	}
	return nil
}
