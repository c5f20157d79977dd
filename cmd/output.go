package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// errorWriter wraps an io.Writer and keeps the first write error, so a run
// of prints needs a single check at the end.
type errorWriter struct {
	w   io.Writer
	err error
}

func (ew *errorWriter) Printf(format string, a ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, a...)
}

// TableRenderer builds and renders aligned, kubectl-style tables.
type TableRenderer struct {
	ew        *errorWriter
	out       io.Writer
	headers   []string
	rows      [][]string
	maxWidths []int
}

// NewTableRenderer creates a table renderer writing to w.
func NewTableRenderer(w io.Writer, headers ...string) *TableRenderer {
	maxWidths := make([]int, len(headers))
	for i, h := range headers {
		maxWidths[i] = len(h)
	}
	return &TableRenderer{
		ew:        &errorWriter{w: w},
		out:       w,
		headers:   headers,
		maxWidths: maxWidths,
	}
}

// AddRow adds a row and widens columns as needed.
func (tr *TableRenderer) AddRow(cells ...string) {
	tr.rows = append(tr.rows, cells)
	for i, cell := range cells {
		if i < len(tr.maxWidths) && len(cell) > tr.maxWidths[i] {
			tr.maxWidths[i] = len(cell)
		}
	}
}

// terminalWidth returns the width of w when it is a terminal, or 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// Render prints the table. On a terminal the last column is truncated to
// the remaining width; otherwise cells are printed in full so that piped
// output stays intact.
func (tr *TableRenderer) Render() error {
	numCols := len(tr.headers)
	if numCols == 0 {
		return nil
	}

	widths := append([]int(nil), tr.maxWidths...)
	if termWidth := terminalWidth(tr.out); termWidth > 0 {
		fixedWidth := 0
		for i := 0; i < numCols-1; i++ {
			fixedWidth += widths[i] + 2
		}
		lastColMaxWidth := max(termWidth-fixedWidth, 10)
		if widths[numCols-1] > lastColMaxWidth {
			widths[numCols-1] = lastColMaxWidth
		}
	}

	fmtParts := make([]string, numCols)
	for i := range fmtParts {
		fmtParts[i] = "%-*s"
	}
	// The last column is not padded, to avoid trailing blanks.
	fmtParts[numCols-1] = "%s"
	rowFmt := strings.Join(fmtParts, "  ") + "\n"

	printRow := func(cells []string) {
		args := make([]any, 0, numCols*2)
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if i == numCols-1 {
				if len(cell) > widths[i] {
					if widths[i] > 3 {
						cell = cell[:widths[i]-3] + "..."
					} else {
						cell = cell[:widths[i]]
					}
				}
				args = append(args, cell)
				continue
			}
			args = append(args, widths[i], cell)
		}
		tr.ew.Printf(rowFmt, args...)
	}

	printRow(tr.headers)
	for _, row := range tr.rows {
		printRow(row)
	}
	return tr.ew.err
}

// RenderData marshals data as json or yaml and writes it to w.
func RenderData(w io.Writer, data any, format string) error {
	var output []byte
	var err error

	switch format {
	case "json":
		output, err = json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal data to JSON: %w", err)
		}
		output = append(output, '\n')
	case "yaml":
		output, err = yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal data to YAML: %w", err)
		}
	default:
		// Tables are rendered by the caller.
		return fmt.Errorf("unsupported structured output format: '%s'", format)
	}

	_, err = w.Write(output)
	return err
}
