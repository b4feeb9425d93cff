package export

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/iksnae/aichat-history/internal"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(detail *internal.SessionDetail, w io.Writer) error
	Extension() string
	ContentType() string
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "jsonl":
		return &JSONLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: md, json, yaml, jsonl)", format)
	}
}

// SafeFilename derives a download filename from a session title: only
// alphanumerics, dashes, underscores, and spaces survive, capped at 50
// runes. Empty results fall back to "session".
func SafeFilename(title, extension string) string {
	var b strings.Builder
	count := 0
	for _, r := range title {
		if count == 50 {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == ' ' {
			b.WriteRune(r)
			count++
		}
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		name = "session"
	}
	return name + "." + extension
}
