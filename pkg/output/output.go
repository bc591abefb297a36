package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Formats accepted by --output.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	headerColor  = color.New(color.FgWhite, color.Bold)
)

// Printer writes command results. Status lines go to out except errors,
// which go to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	format string
}

// New creates a Printer. An unknown format falls back to table.
func New(out, errOut io.Writer, format string) *Printer {
	switch format {
	case FormatJSON, FormatYAML:
	default:
		format = FormatTable
	}
	return &Printer{out: out, errOut: errOut, format: format}
}

var std = New(os.Stdout, os.Stderr, FormatTable)

// Format returns the structured output format.
func (p *Printer) Format() string {
	return p.format
}

func (p *Printer) Success(format string, a ...interface{}) {
	successColor.Fprintf(p.out, "✓ "+format+"\n", a...)
}

func (p *Printer) Error(format string, a ...interface{}) {
	errorColor.Fprintf(p.errOut, "✗ "+format+"\n", a...)
}

func (p *Printer) Info(format string, a ...interface{}) {
	infoColor.Fprintf(p.out, format+"\n", a...)
}

func (p *Printer) Warn(format string, a ...interface{}) {
	warnColor.Fprintf(p.out, "⚠ "+format+"\n", a...)
}

func (p *Printer) JSON(v interface{}) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) YAML(v interface{}) error {
	enc := yaml.NewEncoder(p.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Structured renders v as JSON or YAML and reports whether it did. Callers
// fall back to their own table rendering when it returns false.
func (p *Printer) Structured(v interface{}) (bool, error) {
	switch p.format {
	case FormatJSON:
		return true, p.JSON(v)
	case FormatYAML:
		return true, p.YAML(v)
	default:
		return false, nil
	}
}

// Table renders headers and rows with padded columns.
func (p *Printer) Table(headers []string, rows [][]string) {
	t := NewTable(headers)
	for _, r := range rows {
		t.AddRow(r)
	}
	t.RenderTo(p.out)
}

func Success(format string, a ...interface{}) { std.Success(format, a...) }

func Error(format string, a ...interface{}) { std.Error(format, a...) }

func Info(format string, a ...interface{}) { std.Info(format, a...) }

func Warn(format string, a ...interface{}) { std.Warn(format, a...) }

func JSON(v interface{}) error { return std.JSON(v) }

type Table struct {
	headers []string
	rows    [][]string
}

func NewTable(headers []string) *Table {
	return &Table{
		headers: headers,
		rows:    [][]string{},
	}
}

func (t *Table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

// Render writes the table to stdout.
func (t *Table) Render() {
	t.RenderTo(os.Stdout)
}

func (t *Table) RenderTo(w io.Writer) {
	// Calculate column widths
	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}

	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, header := range t.headers {
		headerColor.Fprintf(w, "%-*s  ", widths[i], header)
	}
	fmt.Fprintln(w)

	for i := range t.headers {
		fmt.Fprint(w, strings.Repeat("-", widths[i])+"  ")
	}
	fmt.Fprintln(w)

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			fmt.Fprintf(w, "%-*s  ", widths[i], cell)
		}
		fmt.Fprintln(w)
	}
}
