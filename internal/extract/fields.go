package extract

import (
	"regexp"
	"strings"

	"wenshu-pipeline/internal/document"
	"wenshu-pipeline/pkg/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Page is a parsed detail page, the shared text blocks are computed once
// and then read by every field extractor.
type Page struct {
	Doc *goquery.Document

	info    *string
	content *string
}

func NewPage(doc *goquery.Document) *Page {
	return &Page{Doc: doc}
}

// Info is the text of the document header block, one text node per line so
// adjacent inline elements never run together.
func (p *Page) Info() string {
	if p.info == nil {
		text := htmlutil.Lines(p.Doc.Find("div.ws_info"))
		p.info = &text
	}
	return *p.info
}

// Content is the body text, one text node per line.
func (p *Page) Content() string {
	if p.content == nil {
		sel := p.Doc.Find("div.ws_content")
		if sel.Length() == 0 {
			sel = p.Doc.Find("div.content")
		}
		text := htmlutil.Lines(sel.First())
		p.content = &text
	}
	return *p.content
}

// FieldExtractor fills a single field of a record. Extractors must not read
// fields set by other extractors; a missing marker leaves the field empty.
type FieldExtractor interface {
	Field() string
	Extract(p *Page, doc *document.ParsedDocument)
}

type fieldFunc struct {
	field string
	fn    func(p *Page, doc *document.ParsedDocument)
}

func (f fieldFunc) Field() string {
	return f.field
}

func (f fieldFunc) Extract(p *Page, doc *document.ParsedDocument) {
	f.fn(p, doc)
}

var (
	caseNumberRegex = regexp.MustCompile(`[（(]\d{4}[）)][\p{Han}\d]{1,16}?第?\d+号`)
	courtRegex      = regexp.MustCompile(`\p{Han}+法院`)
	dateRegex       = regexp.MustCompile(`\d{4}年\d{1,2}月\d{1,2}日`)
	caseTypeRegex   = regexp.MustCompile(`审判程序[：:]\s*(\p{Han}+)`)
	causeRegex      = regexp.MustCompile(`案由[：:]\s*(\p{Han}+)`)
	keywordsRegex   = regexp.MustCompile(`关键词[：:]([^，；。\n]+)`)
	keywordSplit    = regexp.MustCompile(`[,，、]`)
	judgmentRegex   = regexp.MustCompile(`判决如下[：:]([\s\S]+?)(?:如不服本判决|本判决为终审判决|当事人如不服本判决)`)
	lawRegex        = regexp.MustCompile(`《\p{Han}+?》(?:第[^条]+条)?`)
)

func extractTitle(p *Page, doc *document.ParsedDocument) {
	title := htmlutil.Text(p.Doc.Find("div.ws_title").First())
	if title == "" {
		title = htmlutil.Text(p.Doc.Find("title").First())
	}
	doc.Title = title
}

func extractCaseNumber(p *Page, doc *document.ParsedDocument) {
	doc.CaseNumber = caseNumberRegex.FindString(p.Info())
}

func extractCourt(p *Page, doc *document.ParsedDocument) {
	doc.Court = courtRegex.FindString(p.Info())
}

func extractDate(p *Page, doc *document.ParsedDocument) {
	doc.Date = dateRegex.FindString(p.Info())
}

func extractContent(p *Page, doc *document.ParsedDocument) {
	doc.Content = p.Content()
}

func extractParties(p *Page, doc *document.ParsedDocument) {
	doc.Parties = htmlutil.Each(p.Doc.Find("div.ws_party"))
}

func extractJudges(p *Page, doc *document.ParsedDocument) {
	doc.Judges = htmlutil.Each(p.Doc.Find("div.ws_judge"))
}

func extractCaseType(p *Page, doc *document.ParsedDocument) {
	groups := caseTypeRegex.FindStringSubmatch(p.Content())
	if len(groups) == 2 {
		doc.CaseType = CanonicalCaseType(groups[1])
		return
	}
	doc.CaseType = InferCaseType(caseNumberRegex.FindString(p.Info()))
}

func extractCause(p *Page, doc *document.ParsedDocument) {
	groups := causeRegex.FindStringSubmatch(p.Content())
	if len(groups) == 2 {
		doc.Cause = groups[1]
	}
}

func extractKeywords(p *Page, doc *document.ParsedDocument) {
	groups := keywordsRegex.FindStringSubmatch(p.Content())
	if len(groups) != 2 {
		return
	}
	for _, k := range keywordSplit.Split(groups[1], -1) {
		k = strings.TrimSpace(k)
		if k != "" {
			doc.Keywords = append(doc.Keywords, k)
		}
	}
}

func extractJudgmentResult(p *Page, doc *document.ParsedDocument) {
	groups := judgmentRegex.FindStringSubmatch(p.Content())
	if len(groups) == 2 {
		doc.JudgmentResult = strings.TrimSpace(groups[1])
	}
}

func extractLaws(p *Page, doc *document.ParsedDocument) {
	seen := map[string]bool{}
	for _, law := range lawRegex.FindAllString(p.Content(), -1) {
		if seen[law] {
			continue
		}
		seen[law] = true
		doc.LawsReferenced = append(doc.LawsReferenced, law)
	}
}

// DefaultExtractors returns the field extractors in the order they run.
func DefaultExtractors() []FieldExtractor {
	return []FieldExtractor{
		fieldFunc{document.FieldTitle, extractTitle},
		fieldFunc{document.FieldCaseNumber, extractCaseNumber},
		fieldFunc{document.FieldCourt, extractCourt},
		fieldFunc{document.FieldDate, extractDate},
		fieldFunc{document.FieldContent, extractContent},
		fieldFunc{document.FieldParties, extractParties},
		fieldFunc{document.FieldJudges, extractJudges},
		fieldFunc{document.FieldCaseType, extractCaseType},
		fieldFunc{document.FieldCause, extractCause},
		fieldFunc{document.FieldKeywords, extractKeywords},
		fieldFunc{document.FieldJudgmentResult, extractJudgmentResult},
		fieldFunc{document.FieldLawsReferenced, extractLaws},
	}
}
