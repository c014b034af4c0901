package telemetry

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	tel := NewScopedAPI("extractor", rec)

	tel.ReportBroken("extractor.extract", "boom")
	tel.ReportWarning("extractor.field", "court")
	tel.ReportCount("documents", 3)

	require.True(t, rec.Has("broken", "extractor: extractor.extract"))
	require.True(t, rec.Has("warning", "extractor.field"))
	require.False(t, rec.Has("broken", "extractor.field"))

	counts := rec.Reports("count")
	require.Len(t, counts, 1)
	require.EqualValues(t, 3, counts[0].Count)
	require.Len(t, rec.Reports(""), 3)
}

func newDumpServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestInstrumentRestyDumpsTranscripts(t *testing.T) {
	server := newDumpServer(t)

	dir := filepath.Join(t.TempDir(), "dump")
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	rec := &Recorder{}
	client := resty.New()
	InstrumentResty(client, rec, output)

	require.NotPanics(t, func() {
		_, err = client.R().Get(server.URL + "/detail/abc")
	})
	require.NoError(t, err)
	_, err = client.R().SetFormData(map[string]string{"pageNum": "1"}).Post(server.URL + "/list")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	get, err := os.ReadFile(filepath.Join(dir, "1.txt"))
	require.NoError(t, err)
	require.Contains(t, string(get), "<NO BODY AVAILABLE>")
	require.Contains(t, string(get), `"ok": true`)

	post, err := os.ReadFile(filepath.Join(dir, "2.txt"))
	require.NoError(t, err)
	require.Contains(t, string(post), "pageNum=1")
	require.True(t, rec.Has("debug", report_resty_request))
	require.Empty(t, rec.Reports("warning"))
}

func TestScopedOutputsShareDirectory(t *testing.T) {
	server := newDumpServer(t)

	dir := t.TempDir()
	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)

	for _, scope := range []string{"fetcher", "ragflow"} {
		client := resty.New()
		InstrumentResty(client, &Recorder{}, output.Scoped(scope))
		_, err := client.R().SetBody(`{}`).Post(server.URL + "/" + scope)
		require.NoError(t, err)
	}

	var names []string
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Equal(t, []string{"fetcher-1.txt", "ragflow-1.txt"}, names)

	contents, err := os.ReadFile(filepath.Join(dir, "ragflow-1.txt"))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(contents), "/ragflow"), string(contents))
}
