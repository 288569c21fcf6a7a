// Package output renders command results as JSON or aligned tables.
package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
)

// Format represents the output format type
type Format string

const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseFormat validates a --output flag value
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatTable:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown output format %q (want json or table)", s)
}

// JSON writes v as indented JSON
func JSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// Table writes rows under bold headers with aligned columns
func Table(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	bold := color.New(color.Bold)

	for i, h := range headers {
		bold.Fprint(tw, h)
		if i < len(headers)-1 {
			fmt.Fprint(tw, "\t")
		}
	}
	fmt.Fprintln(tw)

	for _, row := range rows {
		for i, cell := range row {
			fmt.Fprint(tw, cell)
			if i < len(row)-1 {
				fmt.Fprint(tw, "\t")
			}
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// Print writes v as JSON, or as a table built by rows when format is table
func Print(w io.Writer, format Format, v interface{}, headers []string, rows func() [][]string) error {
	if format == FormatJSON || rows == nil {
		return JSON(w, v)
	}
	return Table(w, headers, rows())
}

// Success prints a green status line
func Success(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(w, "✓ "+format+"\n", args...)
}

// Warning prints a yellow status line
func Warning(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(w, "! "+format+"\n", args...)
}
