package knowledge

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	DefaultChunkSize    = 700
	DefaultChunkOverlap = 120
)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// ChunkID is the positional id given to the i-th chunk of a document.
func ChunkID(i int) string {
	return "chunk_" + strconv.Itoa(i)
}

// CleanText normalizes line endings and squeezes runs of blank lines.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ChunkText cuts text into overlapping windows of size runes.
// Windows that are blank after trimming are skipped.
func ChunkText(text, source string, size, overlap int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(CleanText(text))
	n := len(runes)

	var chunks []Chunk
	for i := 0; i < n; {
		j := i + size
		if j > n {
			j = n
		}

		content := strings.TrimSpace(string(runes[i:j]))
		if content != "" {
			chunks = append(chunks, Chunk{
				ID:          ChunkID(len(chunks)),
				Text:        content,
				SourceLabel: source,
			})
		}

		if j == n {
			break
		}
		i = j - overlap
	}

	return chunks
}

// LoadDocument reads a knowledge file as plain text. PDFs are extracted page by page.
func LoadDocument(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return readPDF(path)
	case ".txt", ".md", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read '%s': %w", path, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported knowledge file type: %s", filepath.Ext(path))
	}
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf '%s': %w", path, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("failed to read pdf buffer: %w", err)
	}

	text := buf.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text extracted from pdf '%s'", path)
	}
	return text, nil
}
