package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wenshu-pipeline/internal/document"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testDoc(id string) document.ParsedDocument {
	return document.ParsedDocument{
		Id:             id,
		Title:          "张三与李四民间借贷纠纷二审民事判决书",
		CaseNumber:     "(2020)粤01民终123号",
		Court:          "广东省广州市中级人民法院",
		Date:           "2020年6月18日",
		CaseType:       "民事案件",
		Cause:          "民间借贷纠纷",
		Parties:        []string{"上诉人：李四", "被上诉人：张三"},
		Judges:         []string{"审判长 王五"},
		Content:        "判决如下：\n驳回上诉，维持原判。<br>",
		JudgmentResult: "驳回上诉，维持原判。",
		Keywords:       []string{"借款"},
		LawsReferenced: []string{"《中华人民共和国民法典》第六百六十七条"},
		Source:         RawName(id),
		Status:         document.StatusComplete,
		MissingFields:  []string{},
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "raw"), filepath.Join(dir, "parsed"))

	require.NoError(t, s.SaveRaw("doc-2", []byte("<html>2</html>")))
	require.NoError(t, s.SaveRaw("doc-1", []byte("<html>1</html>")))
	require.True(t, s.HasRaw("doc-1"))
	require.False(t, s.HasRaw("doc-3"))

	ids, err := s.RawIDs()
	require.NoError(t, err)
	require.Equal(t, []string{"doc-1", "doc-2"}, ids)

	raw, err := s.LoadRaw("doc-1")
	require.NoError(t, err)
	require.Equal(t, "<html>1</html>", string(raw))

	expected := []document.ParsedDocument{testDoc("doc-1"), testDoc("doc-2")}
	for i := len(expected) - 1; i >= 0; i-- {
		_, err := s.SaveParsed(expected[i])
		require.NoError(t, err)
	}

	// files that are not records
	require.NoError(t, os.WriteFile(filepath.Join(s.ParsedDir(), "summary.json"), []byte(`{"total": 2}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(s.ParsedDir(), "notes.txt"), []byte("notes"), 0644))

	loaded, err := LoadParsedDir(s.ParsedDir())
	require.NoError(t, err)
	if diff := cmp.Diff(expected, loaded); diff != "" {
		t.Fatal("records changed across save/load (-want +got)", diff)
	}
}

func TestSaveParsedIsUnescaped(t *testing.T) {
	s := New(t.TempDir(), t.TempDir())
	path, err := s.SaveParsed(testDoc("doc-1"))
	require.NoError(t, err)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(body)
	require.Contains(t, text, `"court": "广东省广州市中级人民法院"`)
	require.Contains(t, text, "<br>")
	require.True(t, strings.HasPrefix(text, "{\n  \"id\": \"doc-1\""))
}

func TestSaveParsedOverwrites(t *testing.T) {
	s := New(t.TempDir(), t.TempDir())
	doc := testDoc("doc-1")
	_, err := s.SaveParsed(doc)
	require.NoError(t, err)

	doc.Status = document.StatusPartial
	doc.Court = ""
	doc.MissingFields = []string{document.FieldCourt}
	_, err = s.SaveParsed(doc)
	require.NoError(t, err)

	loaded, err := LoadParsedDir(s.ParsedDir())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, document.StatusPartial, loaded[0].Status)
}

func TestFileName(t *testing.T) {
	require.Equal(t, "a1b2c3", FileName("a1b2c3"))
	require.Equal(t, "民事判决书", FileName("民事判决书"))

	rewritten := []struct {
		id     string
		prefix string
	}{
		{id: "../../etc/passwd", prefix: ".._.._etc_passwd-"},
		{id: "a:b*c?d", prefix: "a_b_c_d-"},
		{id: " 民事判决书 ", prefix: "民事判决书-"},
		{id: "..", prefix: "__-"},
	}
	for _, test := range rewritten {
		name := FileName(test.id)
		require.True(t, strings.HasPrefix(name, test.prefix), name)
		require.Len(t, name, len(test.prefix)+8, name)
		require.Equal(t, name, FileName(test.id))
		// names read back from disk map to themselves
		require.Equal(t, name, FileName(name))
	}

	s := New(t.TempDir(), t.TempDir())
	require.ErrorIs(t, s.SaveRaw("  ", nil), ErrEmptyId)
	_, err := s.SaveParsed(document.ParsedDocument{})
	require.ErrorIs(t, err, ErrEmptyId)
}

func TestRewrittenIdsDoNotCollide(t *testing.T) {
	require.Equal(t, "a_b", FileName("a_b"))
	require.NotEqual(t, FileName("a_b"), FileName("a/b"))
	require.NotEqual(t, FileName("a/b"), FileName("a:b"))

	s := New(t.TempDir(), t.TempDir())
	require.NoError(t, s.SaveRaw("a/b", []byte("slash")))
	require.NoError(t, s.SaveRaw("a_b", []byte("underscore")))

	slash, err := s.LoadRaw("a/b")
	require.NoError(t, err)
	require.Equal(t, "slash", string(slash))
	underscore, err := s.LoadRaw("a_b")
	require.NoError(t, err)
	require.Equal(t, "underscore", string(underscore))

	ids, err := s.RawIDs()
	require.NoError(t, err)
	require.Len(t, ids, 2)
	for _, id := range ids {
		_, err := s.LoadRaw(id)
		require.NoError(t, err, id)
	}
}
