package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t testing.TB, page string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "a b c", CleanText("  a \u200b  b\n\n c "))
	require.Equal(t, "判决如下：", CleanText("\t判决如下：\n"))
	require.Equal(t, "", CleanText(" \n\t "))
}

func TestGetTextSkipsScripts(t *testing.T) {
	doc := parse(t, `<div id="x">案由<script>var a = 1;</script><style>p {}</style>：借贷</div>`)
	require.Equal(t, "案由：借贷", GetText(doc.Find("#x").Nodes[0]))
}

func TestLines(t *testing.T) {
	doc := parse(t, `<div class="c"><p>一</p><script>x()</script><p>  二 <b>三</b></p><p> </p></div>`)
	require.Equal(t, "一\n二\n三", Lines(doc.Find("div.c")))
	require.Equal(t, "", Lines(doc.Find("div.missing")))
}

func TestEachAndText(t *testing.T) {
	doc := parse(t, `<ul><li>审判长 王五</li><li> </li><li>审判员  赵六</li></ul>`)
	require.Equal(t, []string{"审判长 王五", "审判员 赵六"}, Each(doc.Find("li")))
	require.Equal(t, "审判长 王五 审判员 赵六", Text(doc.Find("li")))
	require.Nil(t, Each(doc.Find("p")))
}
