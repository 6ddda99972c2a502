package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"depsentry/internal/engine/findings"
	"depsentry/internal/ui/report/formats"
)

type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatSARIF    Format = "sarif"
	FormatMarkdown Format = "markdown"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatSARIF, FormatMarkdown:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json, sarif or markdown)", raw)
}

type Options struct {
	Color       bool
	Verbose     bool
	ProjectName string
}

// Render writes result to w in the given format.
func Render(w io.Writer, result *findings.AnalysisResult, format Format, opts Options) error {
	switch format {
	case FormatText, "":
		return formats.TextGenerator{Color: opts.Color, Verbose: opts.Verbose}.Write(w, result)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatSARIF:
		data, err := formats.GenerateSARIF(result)
		if err != nil {
			return fmt.Errorf("render sarif: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatMarkdown:
		verbosity := "standard"
		if opts.Verbose {
			verbosity = "detailed"
		}
		md, err := formats.NewMarkdownGenerator().Generate(result, formats.MarkdownReportOptions{
			ProjectName:         opts.ProjectName,
			Verbosity:           verbosity,
			TableOfContents:     true,
			CollapsibleSections: true,
			IncludeMermaid:      true,
		})
		if err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		_, err = io.WriteString(w, md)
		return err
	}
	return fmt.Errorf("unknown output format %q", format)
}
