// Package document holds the structured record extracted from a judgement page.
package document

import "slices"

type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
	StatusFailed   Status = "failed"
)

// Field names, they are also the json keys of a ParsedDocument.
const (
	FieldId             = "id"
	FieldTitle          = "title"
	FieldCaseNumber     = "case_number"
	FieldCourt          = "court"
	FieldDate           = "date"
	FieldCaseType       = "case_type"
	FieldCause          = "cause"
	FieldParties        = "parties"
	FieldJudges         = "judges"
	FieldContent        = "content"
	FieldJudgmentResult = "judgment_result"
	FieldKeywords       = "keywords"
	FieldLawsReferenced = "laws_referenced"
)

// Fields lists every field name in record order.
var Fields = []string{
	FieldId,
	FieldTitle,
	FieldCaseNumber,
	FieldCourt,
	FieldDate,
	FieldCaseType,
	FieldCause,
	FieldParties,
	FieldJudges,
	FieldContent,
	FieldJudgmentResult,
	FieldKeywords,
	FieldLawsReferenced,
}

// ParsedDocument is the record written for every downloaded page. It holds
// no wall-clock values so parsing the same page twice serializes identically.
type ParsedDocument struct {
	Id             string   `json:"id"`
	Title          string   `json:"title"`
	CaseNumber     string   `json:"case_number"`
	Court          string   `json:"court"`
	Date           string   `json:"date"`
	CaseType       string   `json:"case_type"`
	Cause          string   `json:"cause"`
	Parties        []string `json:"parties"`
	Judges         []string `json:"judges"`
	Content        string   `json:"content"`
	JudgmentResult string   `json:"judgment_result"`
	Keywords       []string `json:"keywords"`
	LawsReferenced []string `json:"laws_referenced"`

	// Source is the file name of the raw page the record was parsed from.
	Source        string   `json:"source"`
	Status        Status   `json:"status"`
	MissingFields []string `json:"missing_fields"`
	Reason        string   `json:"reason,omitempty"`
}

// Empty reports whether the named field has no value, unknown names are empty.
func (d ParsedDocument) Empty(field string) bool {
	switch field {
	case FieldId:
		return d.Id == ""
	case FieldTitle:
		return d.Title == ""
	case FieldCaseNumber:
		return d.CaseNumber == ""
	case FieldCourt:
		return d.Court == ""
	case FieldDate:
		return d.Date == ""
	case FieldCaseType:
		return d.CaseType == ""
	case FieldCause:
		return d.Cause == ""
	case FieldParties:
		return len(d.Parties) == 0
	case FieldJudges:
		return len(d.Judges) == 0
	case FieldContent:
		return d.Content == ""
	case FieldJudgmentResult:
		return d.JudgmentResult == ""
	case FieldKeywords:
		return len(d.Keywords) == 0
	case FieldLawsReferenced:
		return len(d.LawsReferenced) == 0
	}
	return true
}

// Known reports whether name is a field of ParsedDocument.
func Known(name string) bool {
	return slices.Contains(Fields, name)
}
