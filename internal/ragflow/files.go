package ragflow

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/docker/go-units"
)

// FileReader extracts the text of a local file.
type FileReader interface {
	CanRead(path string) bool
	ReadText(path string) (string, error)
}

// TextFileReader reads plain text and markdown, invalid utf-8 is replaced.
type TextFileReader struct{}

func (TextFileReader) CanRead(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".txt" || ext == ".md"
}

func (TextFileReader) ReadText(path string) (string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading text file: %w", err)
	}
	return strings.ToValidUTF8(string(buf), "�"), nil
}

// DocconvReader converts office documents and pdfs to text.
type DocconvReader struct{}

func (DocconvReader) CanRead(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".pdf" || ext == ".docx" || ext == ".doc" || ext == ".odt" || ext == ".rtf"
}

func (DocconvReader) ReadText(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", fmt.Errorf("converting document: %w", err)
	}
	return res.Body, nil
}

// DefaultReaders are tried in order, the first that can read a file wins.
func DefaultReaders() []FileReader {
	return []FileReader{TextFileReader{}, DocconvReader{}}
}

// SkippedFile is a file the scan found but will not upload.
type SkippedFile struct {
	Path   string
	Reason string
}

// ScanFiles walks dir recursively and returns the files with a supported
// extension that are not larger than maxSize, sorted by path.
func ScanFiles(dir string, extensions []string, maxSize int64) ([]string, []SkippedFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%s is not a directory", dir)
	}

	exts := make([]string, len(extensions))
	for i, e := range extensions {
		exts[i] = strings.ToLower(e)
	}

	var files []string
	var skipped []SkippedFile
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !slices.Contains(exts, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxSize {
			skipped = append(skipped, SkippedFile{
				Path: path,
				Reason: fmt.Sprintf(
					"file too large: %s > %s",
					units.BytesSize(float64(info.Size())),
					units.BytesSize(float64(maxSize)),
				),
			})
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	slices.Sort(files)
	return files, skipped, nil
}
