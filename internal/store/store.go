// Package store keeps raw detail pages and parsed records on disk.
package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"wenshu-pipeline/internal/components/assert"
	"wenshu-pipeline/internal/document"
)

const (
	rawExt    = ".html"
	parsedExt = ".json"
)

// stats files the pipeline writes next to the records
var skippedFiles = []string{
	"summary.json",
	"download_stats.json",
	"upload_results.json",
}

var ErrEmptyId = errors.New("empty document id")

// Store lays out raw pages as <download dir>/<id>.html and records as
// <parsed dir>/<id>.json.
type Store struct {
	downloadDir string
	parsedDir   string
}

func New(downloadDir, parsedDir string) Store {
	assert.NotEmptyStr(downloadDir)
	assert.NotEmptyStr(parsedDir)
	return Store{downloadDir: downloadDir, parsedDir: parsedDir}
}

func (s Store) DownloadDir() string { return s.downloadDir }
func (s Store) ParsedDir() string   { return s.parsedDir }

// FileName turns a document id into a file-safe base name, the mapping is
// deterministic. An id that had to be rewritten gets a short hash of the
// original id appended, so `a/b` and `a_b` never share a file.
func FileName(id string) string {
	name := sanitize(id)
	if name == id {
		return name
	}
	sum := sha256.Sum256([]byte(id))
	return name + "-" + hex.EncodeToString(sum[:4])
}

func sanitize(id string) string {
	var out strings.Builder
	for _, r := range strings.TrimSpace(id) {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' ||
			r == '"' || r == '<' || r == '>' || r == '|' || r < 0x20:
			out.WriteRune('_')
		default:
			out.WriteRune(r)
		}
	}
	name := out.String()
	if strings.Trim(name, ".") == "" {
		return strings.Repeat("_", len(name))
	}
	return name
}

// RawName is the file name of the raw page of a document.
func RawName(id string) string {
	return FileName(id) + rawExt
}

func (s Store) rawPath(id string) string {
	return filepath.Join(s.downloadDir, RawName(id))
}

func (s Store) parsedPath(id string) string {
	return filepath.Join(s.parsedDir, FileName(id)+parsedExt)
}

func (s Store) SaveRaw(id string, body []byte) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyId
	}
	err := os.MkdirAll(s.downloadDir, 0755)
	if err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	return os.WriteFile(s.rawPath(id), body, 0644)
}

func (s Store) HasRaw(id string) bool {
	_, err := os.Stat(s.rawPath(id))
	return err == nil
}

func (s Store) LoadRaw(id string) ([]byte, error) {
	return os.ReadFile(s.rawPath(id))
}

// RawIDs lists the ids of every raw page, sorted by file name. The ids are
// the file names, which FileName maps back to themselves.
func (s Store) RawIDs() ([]string, error) {
	entries, err := os.ReadDir(s.downloadDir)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != rawExt {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), rawExt))
	}
	slices.Sort(ids)
	return ids, nil
}

// Encode serializes a record the way it is stored: indented, with html
// characters and non-ascii text left unescaped.
func Encode(doc document.ParsedDocument) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(doc)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveParsed writes the record, overwriting an earlier parse of the same page.
func (s Store) SaveParsed(doc document.ParsedDocument) (string, error) {
	if strings.TrimSpace(doc.Id) == "" {
		return "", ErrEmptyId
	}
	err := os.MkdirAll(s.parsedDir, 0755)
	if err != nil {
		return "", fmt.Errorf("create parsed dir: %w", err)
	}
	body, err := Encode(doc)
	if err != nil {
		return "", err
	}
	path := s.parsedPath(doc.Id)
	return path, os.WriteFile(path, body, 0644)
}

// LoadParsedDir reads every record in a directory sorted by file name,
// skipping non-json and summary files.
func LoadParsedDir(dir string) ([]document.ParsedDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var docs []document.ParsedDocument
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != parsedExt || slices.Contains(skippedFiles, name) {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		var doc document.ParsedDocument
		err = json.Unmarshal(body, &doc)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
