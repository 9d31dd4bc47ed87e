package morph

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format selects the serialization used by Export.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat maps a name, case-insensitively, to a Format.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatCSV, FormatText, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Record is one exported (root, pattern, word, frequency) tuple.
type Record struct {
	Root      string `json:"root"`
	Pattern   string `json:"pattern"`
	Word      string `json:"word"`
	Frequency int    `json:"frequency"`
}

// Records lists every derivative, roots in sorted order and derivatives in
// first-insertion order.
func (e *Engine) Records() []Record {
	var out []Record
	for _, entry := range e.roots.Entries() {
		for _, d := range entry.Derivatives() {
			out = append(out, Record{Root: entry.Root, Pattern: d.Pattern, Word: d.Word, Frequency: d.Frequency})
		}
	}
	return out
}

// Export writes every derivative to w in the given format.
func (e *Engine) Export(w io.Writer, format Format) error {
	records := e.Records()
	switch format {
	case FormatCSV:
		return writeCSV(w, records)
	case FormatJSON:
		return writeJSON(w, records)
	case FormatText:
		return writeText(w, records)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
}

func writeCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Root", "Pattern", "Word", "Frequency"}); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Root, r.Pattern, r.Word, strconv.Itoa(r.Frequency)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

const textRule = "======================================================================"

func writeText(w io.Writer, records []Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No derivatives to display.")
		return err
	}
	var b strings.Builder
	b.WriteString(textRule + "\n")
	fmt.Fprintf(&b, "%-10s %-15s %-20s %s\n", "Root", "Pattern", "Word", "Frequency")
	b.WriteString(textRule + "\n")
	for _, r := range records {
		fmt.Fprintf(&b, "%-10s %-15s %-20s %d\n", r.Root, r.Pattern, r.Word, r.Frequency)
	}
	b.WriteString(textRule + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}
