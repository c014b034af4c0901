package ragflow

import (
	"strings"

	"wenshu-pipeline/internal/document"
)

// RenderRecord lays a parsed record out as labelled plain text for upload.
func RenderRecord(doc document.ParsedDocument) string {
	var b strings.Builder
	line := func(label, value string) {
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\n")
	}
	list := func(label string, values []string) {
		b.WriteString(label)
		b.WriteString(":\n")
		for _, v := range values {
			b.WriteString("- ")
			b.WriteString(v)
			b.WriteString("\n")
		}
	}

	line("标题", doc.Title)
	b.WriteString("\n")
	line("法院", doc.Court)
	line("案号", doc.CaseNumber)
	line("日期", doc.Date)
	line("案件类型", doc.CaseType)
	line("案由", doc.Cause)
	b.WriteString("\n")

	list("当事人", doc.Parties)
	b.WriteString("\n")
	list("审判人员", doc.Judges)
	b.WriteString("\n")

	if doc.JudgmentResult != "" {
		b.WriteString("判决结果:\n")
		b.WriteString(doc.JudgmentResult)
		b.WriteString("\n\n")
	}
	if len(doc.LawsReferenced) > 0 {
		list("引用法律法规", doc.LawsReferenced)
	}
	return b.String()
}
