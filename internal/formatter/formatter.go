// package formatter renders search results, shelves and shelf contents as plain text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/bkx/internal/models"
	"github.com/desertthunder/bkx/internal/shared"
)

// Format is an output format name.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// Formats lists the supported formats.
var Formats = []Format{Text, Markdown, CSV, JSON}

// ParseFormat accepts a format name, "md" for Markdown, or an empty string for text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, s)
}

// Books renders search results in f.
func Books(f Format, req models.SearchRequest, books []models.BookSummary) ([]byte, error) {
	switch f {
	case Markdown:
		return BooksToMarkdown(req, books)
	case CSV:
		return BooksToCSV(books)
	case JSON:
		return shared.MarshalJSON(books, true)
	default:
		return BooksToText(books)
	}
}

// Shelves renders a library listing in f.
func Shelves(f Format, shelves []models.Shelf) ([]byte, error) {
	switch f {
	case Markdown:
		return ShelvesToMarkdown(shelves)
	case CSV:
		return ShelvesToCSV(shelves)
	case JSON:
		return shared.MarshalJSON(shelves, true)
	default:
		return ShelvesToText(shelves)
	}
}

// Volumes renders the contents of a shelf in f.
func Volumes(f Format, shelf models.Shelf, volumes []models.Volume) ([]byte, error) {
	switch f {
	case Markdown:
		return VolumesToMarkdown(shelf, volumes)
	case CSV:
		return VolumesToCSV(volumes)
	case JSON:
		return shared.MarshalJSON(volumes, true)
	default:
		return VolumesToText(shelf, volumes)
	}
}

func writeCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// BooksToCSV converts search results to CSV with columns: ID, Title, Authors, Pages, Thumbnail, Description
func BooksToCSV(books []models.BookSummary) ([]byte, error) {
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		rows = append(rows, []string{
			b.GoogleID,
			b.Title,
			b.AuthorLine(),
			pages(b.PageCount),
			b.Thumbnail(),
			b.Description,
		})
	}
	return writeCSV([]string{"ID", "Title", "Authors", "Pages", "Thumbnail", "Description"}, rows)
}

// BooksToMarkdown converts search results to a Markdown document headed by the query.
func BooksToMarkdown(req models.SearchRequest, books []models.BookSummary) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Search: %s\n\n", req.Query)
	fmt.Fprintf(&buf, "**Search by**: %s\n", req.Type.Label())
	fmt.Fprintf(&buf, "**Results**: %d\n\n", len(books))

	for _, b := range books {
		fmt.Fprintf(&buf, "## %s\n\n", b.Title)
		if b.Thumbnail() != "" {
			fmt.Fprintf(&buf, "![Cover of %s](%s)\n\n", b.Title, b.Thumbnail())
		}
		if authors := b.AuthorLine(); authors != "" {
			fmt.Fprintf(&buf, "**Authors**: %s\n\n", authors)
		}
		fmt.Fprintf(&buf, "%s\n\n", b.Blurb())
	}

	return buf.Bytes(), nil
}

// BooksToText converts search results to numbered plain text.
func BooksToText(books []models.BookSummary) ([]byte, error) {
	var buf bytes.Buffer

	for i, b := range books {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, b.Title)
		if authors := b.AuthorLine(); authors != "" {
			fmt.Fprintf(&buf, "   %s\n", authors)
		}
		fmt.Fprintf(&buf, "   %s\n", shared.Truncate(b.Blurb(), 160))
		fmt.Fprintf(&buf, "   id: %s\n", b.GoogleID)
	}

	return buf.Bytes(), nil
}

// ShelvesToCSV converts shelves to CSV with columns: ID, Title, Volumes, Access, Addable
func ShelvesToCSV(shelves []models.Shelf) ([]byte, error) {
	rows := make([][]string, 0, len(shelves))
	for _, s := range shelves {
		rows = append(rows, []string{
			s.Key(),
			s.DisplayTitle(),
			strconv.Itoa(s.VolumeCount),
			s.Access,
			strconv.FormatBool(models.IsAddable(s)),
		})
	}
	return writeCSV([]string{"ID", "Title", "Volumes", "Access", "Addable"}, rows)
}

// ShelvesToMarkdown converts shelves to a Markdown table.
func ShelvesToMarkdown(shelves []models.Shelf) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# My Library\n\n")
	if len(shelves) == 0 {
		buf.WriteString("No shelves found in your library.\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| ID | Shelf | Volumes |\n|---|---|---|\n")
	for _, s := range shelves {
		fmt.Fprintf(&buf, "| %s | %s | %d |\n", s.Key(), s.DisplayTitle(), s.VolumeCount)
	}

	return buf.Bytes(), nil
}

// ShelvesToText converts shelves to plain text using their labels.
func ShelvesToText(shelves []models.Shelf) ([]byte, error) {
	var buf bytes.Buffer

	if len(shelves) == 0 {
		buf.WriteString("No shelves found in your library.\n")
		return buf.Bytes(), nil
	}
	for _, s := range shelves {
		fmt.Fprintf(&buf, "[%s] %s\n", s.Key(), s.Label())
	}

	return buf.Bytes(), nil
}

// VolumesToCSV converts shelf contents to CSV with columns: ID, Title, Authors, Publisher, Published, Pages
func VolumesToCSV(volumes []models.Volume) ([]byte, error) {
	rows := make([][]string, 0, len(volumes))
	for _, v := range volumes {
		if !v.Renderable() {
			continue
		}
		info := v.VolumeInfo
		rows = append(rows, []string{
			v.ID,
			info.Title,
			v.AuthorLine(),
			info.Publisher,
			info.PublishedDate,
			pages(info.PageCount),
		})
	}
	return writeCSV([]string{"ID", "Title", "Authors", "Publisher", "Published", "Pages"}, rows)
}

// VolumesToMarkdown converts a shelf's contents to Markdown.
func VolumesToMarkdown(shelf models.Shelf, volumes []models.Volume) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", shelf.DisplayTitle())
	fmt.Fprintf(&buf, "**Volumes**: %d\n\n", shelf.VolumeCount)

	n := 0
	for _, v := range volumes {
		if !v.Renderable() {
			continue
		}
		n++
		line := fmt.Sprintf("%d. %s", n, v.Title())
		if authors := v.AuthorLine(); authors != "" {
			line += " - " + authors
		}
		if thumb := v.Thumbnail(); thumb != "" {
			line += fmt.Sprintf(" ([cover](%s))", thumb)
		}
		buf.WriteString(line + "\n")
	}
	if n == 0 {
		buf.WriteString("No books on this shelf.\n")
	}

	return buf.Bytes(), nil
}

// VolumesToText converts a shelf's contents to plain text.
func VolumesToText(shelf models.Shelf, volumes []models.Volume) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Shelf: %s\n\n", shelf.Label())

	n := 0
	for _, v := range volumes {
		if !v.Renderable() {
			continue
		}
		n++
		fmt.Fprintf(&buf, "%d. %s\n", n, shared.JoinNonEmpty(" - ", v.Title(), v.AuthorLine()))
		fmt.Fprintf(&buf, "   id: %s\n", v.ID)
	}
	if n == 0 {
		buf.WriteString("No books on this shelf.\n")
	}

	return buf.Bytes(), nil
}

// WriteExport writes data to path, creating parent directories as needed.
func WriteExport(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("%w: empty output path", shared.ErrInvalidInput)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func pages(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}
