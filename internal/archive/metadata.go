package archive

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/precedent/internal/extract"
	"github.com/ppiankov/precedent/internal/model"
	"github.com/ppiankov/precedent/internal/ratings"
)

// dateLayouts are the publication date formats seen in archive exports
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// rawEntry tolerates the column names and date encodings of different exports
type rawEntry struct {
	Claim           string          `json:"claim"`
	Statement       string          `json:"statement"`
	Rating          string          `json:"rating"`
	Verdict         string          `json:"verdict"`
	Explanation     string          `json:"explanation"`
	URL             string          `json:"url"`
	Link            string          `json:"link"`
	Source          string          `json:"source"`
	Speaker         string          `json:"speaker"`
	PublicationDate json.RawMessage `json:"publication_date"`
	Date            json.RawMessage `json:"date"`
}

func (r rawEntry) entry() model.ArchiveEntry {
	e := model.ArchiveEntry{
		Claim:       firstNonEmpty(r.Claim, r.Statement),
		Rating:      strings.TrimSpace(r.Rating),
		Verdict:     strings.ToLower(strings.TrimSpace(r.Verdict)),
		Explanation: extract.VisibleText(r.Explanation),
		URL:         strings.TrimSpace(firstNonEmpty(r.URL, r.Link)),
		Speaker:     strings.TrimSpace(firstNonEmpty(r.Source, r.Speaker)),
	}
	if e.Rating == "" && e.Verdict != "" {
		e.Rating = ratings.FormatLabel(e.Verdict)
	}

	raw := r.PublicationDate
	if len(raw) == 0 || string(raw) == "null" {
		raw = r.Date
	}
	if t, ok := parseDate(raw); ok {
		e.PublicationDate = &t
	}
	return e
}

// LoadMetadata reads the archive metadata table. It accepts a JSON array of
// rows, an object with an "entries" array, or JSON Lines.
func LoadMetadata(path string) ([]model.ArchiveEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	rows, err := decodeRows(data)
	if err != nil {
		return nil, fmt.Errorf("parse metadata %s: %w", path, err)
	}

	entries := make([]model.ArchiveEntry, len(rows))
	for i, r := range rows {
		entries[i] = r.entry()
	}
	return entries, nil
}

func decodeRows(data []byte) ([]rawEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var rows []rawEntry
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	case '{':
		var wrapped struct {
			Entries []rawEntry `json:"entries"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err == nil && wrapped.Entries != nil {
			return wrapped.Entries, nil
		}
		return decodeLines(trimmed)
	default:
		return nil, fmt.Errorf("unexpected leading character %q", trimmed[0])
	}
}

func decodeLines(data []byte) ([]rawEntry, error) {
	var rows []rawEntry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var r rawEntry
		if err := json.Unmarshal(text, &r); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, r)
	}
	return rows, scanner.Err()
}

// WriteMetadata writes entries as a JSON array, row-aligned with the index
func WriteMetadata(path string, entries []model.ArchiveEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// parseDate accepts a date string in a known layout or epoch milliseconds
func parseDate(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		ms, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms).UTC(), true
	}

	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
