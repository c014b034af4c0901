package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t testing.TB, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func clearEnv(t *testing.T) {
	for _, name := range []string{EnvRagflowApiKey, EnvRagflowApiUrl, EnvMaxFileSize, EnvSupportedExtensions} {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json5"))
	require.NoError(t, err)
	require.Equal(t, "https://wenshu.court.gov.cn", cfg.Fetch.BaseUrl)
	require.Equal(t, DefaultMaxRetries, cfg.Fetch.Retries())
	require.Equal(t, time.Second, cfg.Fetch.MinDelayDuration())
	require.Equal(t, 3*time.Second, cfg.Fetch.MaxDelayDuration())
	require.EqualValues(t, 10*1024*1024, cfg.Ragflow.MaxFileSizeBytes())
	require.Equal(t, []string{".txt", ".md", ".pdf", ".docx"}, cfg.Ragflow.SupportedExtensions)
	require.Equal(t, "./wenshu_downloads", cfg.Store.DownloadDir)
	require.Equal(t, "runs.db", cfg.RunLog.File)
	require.False(t, cfg.Notify.Enabled())

	require.ErrorIs(t, cfg.RequireUpload(), ErrMissingUploadConfig)
}

func TestLoadLocalOverlayAndEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	path := writeConfig(t, dir, "wenshu.json5", `{
		// comments and trailing commas are fine
		ragflow: {api_url: "http://file.example/api", api_key: "from-file"},
		fetch: {min_delay: "2s", max_delay: "5s", page_size: 20},
	}`)
	writeConfig(t, dir, "wenshu.local.json5", `{
		fetch: {max_delay: "4s"},
		store: {parsed_dir: "/tmp/parsed"},
	}`)

	t.Setenv(EnvRagflowApiKey, "from-env")
	t.Setenv(EnvMaxFileSize, "2MB")
	t.Setenv(EnvSupportedExtensions, ".txt, .md,")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Ragflow.ApiKey)
	require.Equal(t, "http://file.example/api", cfg.Ragflow.ApiUrl)
	require.EqualValues(t, 2*1024*1024, cfg.Ragflow.MaxFileSizeBytes())
	require.Equal(t, []string{".txt", ".md"}, cfg.Ragflow.SupportedExtensions)
	require.Equal(t, 2*time.Second, cfg.Fetch.MinDelayDuration())
	require.Equal(t, 4*time.Second, cfg.Fetch.MaxDelayDuration())
	require.Equal(t, 20, cfg.Fetch.PageSize)
	require.Equal(t, "/tmp/parsed", cfg.Store.ParsedDir)
	require.NoError(t, cfg.RequireUpload())
}

func TestLoadZeroRetries(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	path := writeConfig(t, dir, "wenshu.json5", `{fetch: {max_retries: 0}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Fetch.Retries())

	path = writeConfig(t, dir, "other.json5", `{fetch: {max_retries: 5}}`)
	cfg, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Fetch.Retries())

	writeConfig(t, dir, "other.local.json5", `{fetch: {max_retries: 0}}`)
	cfg, err = Load(path)
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Fetch.Retries())
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{"bad extension", `{ragflow: {supported_extensions: ["txt"]}}`},
		{"bad size", `{ragflow: {max_file_size: "lots"}}`},
		{"bad duration", `{fetch: {timeout: "soon"}}`},
		{"delays reversed", `{fetch: {min_delay: "5s", max_delay: "1s"}}`},
		{"negative retries", `{fetch: {max_retries: -1}}`},
		{"syntax", `{fetch: `},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			clearEnv(t)
			path := writeConfig(t, t.TempDir(), "wenshu.json5", c.contents)
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestOpenDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	database, err := RunLogConfig{File: path}.OpenDB()
	require.NoError(t, err)
	defer database.Close()
	require.FileExists(t, path)

	_, err = RunLogConfig{}.OpenDB()
	require.Error(t, err)
}
