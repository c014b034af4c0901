package extract

import (
	"fmt"

	"wenshu-pipeline/internal/document"
)

// DefaultRequired are the fields a record needs to be complete.
var DefaultRequired = []string{
	document.FieldId,
	document.FieldCaseNumber,
	document.FieldCourt,
	document.FieldDate,
	document.FieldCaseType,
	document.FieldParties,
	document.FieldContent,
}

// Policy decides the status of a record from the fields that were found.
type Policy struct {
	required []string
}

func DefaultPolicy() Policy {
	return Policy{required: DefaultRequired}
}

// NewPolicy creates a policy with a custom required-field set, an empty set
// returns the default policy.
func NewPolicy(required []string) (Policy, error) {
	if len(required) == 0 {
		return DefaultPolicy(), nil
	}
	for _, field := range required {
		if !document.Known(field) {
			return Policy{}, fmt.Errorf("unknown required field %q", field)
		}
	}
	return Policy{required: append([]string(nil), required...)}, nil
}

func (p Policy) Required() []string {
	return append([]string(nil), p.required...)
}

// Classify returns the status of the record and its missing required fields.
func (p Policy) Classify(doc document.ParsedDocument) (document.Status, []string) {
	missing := []string{}
	for _, field := range p.required {
		if doc.Empty(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) == 0 {
		return document.StatusComplete, missing
	}

	if doc.Empty(document.FieldContent) {
		// header fields without a body cannot be used downstream
		return document.StatusFailed, missing
	}
	return document.StatusPartial, missing
}
