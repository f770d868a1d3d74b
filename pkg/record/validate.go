package record

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/jacoelho/xsd"
	xsderrors "github.com/jacoelho/xsd/errors"
)

// SchemaError reports one or more schema violations found in a generated XML
// record.
type SchemaError struct {
	Path       string
	Violations xsderrors.ValidationList
}

// Error renders each violation on its own line.
func (e *SchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is not valid against the schema:", e.Path)
	for i := range e.Violations {
		fmt.Fprintf(&b, "\n  - %s", e.Violations[i].Error())
	}
	return b.String()
}

// ValidateXMLFile validates a generated XML record against the XSD schema at
// xsdPath.
func ValidateXMLFile(xmlPath, xsdPath string) error {
	schema, err := xsd.LoadFile(xsdPath)
	if err != nil {
		return fmt.Errorf("load schema %s: %w", xsdPath, err)
	}

	if err := schema.ValidateFile(xmlPath); err != nil {
		var list xsderrors.ValidationList
		if stderrors.As(err, &list) {
			return &SchemaError{Path: xmlPath, Violations: list}
		}
		return fmt.Errorf("validate %s: %w", xmlPath, err)
	}
	return nil
}
