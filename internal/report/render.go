package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"apidiff/internal/errors"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var htmlTemplate = template.Must(
	template.New("report.html.tmpl").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templateFS, "templates/report.html.tmpl"),
)

// Renderer writes a report in one output format.
type Renderer interface {
	Render(w io.Writer, r *Report) error
}

// Formats lists the accepted output formats; the first is the default.
var Formats = []string{"html", "json", "yaml", "human"}

// NewRenderer returns the renderer for format. An empty format selects html.
func NewRenderer(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "html":
		return htmlRenderer{}, nil
	case "json":
		return jsonRenderer{}, nil
	case "yaml", "yml":
		return yamlRenderer{}, nil
	case "human", "text":
		return NewHumanRenderer(!color.NoColor), nil
	}
	return nil, errors.Newf(errors.ConfigInvalid, "unknown report format %q", format).
		WithInput(format).
		WithStage(errors.StageRender)
}

type htmlRenderer struct{}

func (htmlRenderer) Render(w io.Writer, r *Report) error {
	return htmlTemplate.Execute(w, r)
}

type jsonRenderer struct{}

func (jsonRenderer) Render(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

type yamlRenderer struct{}

func (yamlRenderer) Render(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// HumanRenderer writes a terminal listing: additions in green, removals in
// red and modifications in yellow.
type HumanRenderer struct {
	title    *color.Color
	heading  *color.Color
	added    *color.Color
	removed  *color.Color
	modified *color.Color
}

// NewHumanRenderer creates a human renderer, colored when colored is set.
func NewHumanRenderer(colored bool) *HumanRenderer {
	h := &HumanRenderer{
		title:    color.New(color.Bold),
		heading:  color.New(color.FgCyan),
		added:    color.New(color.FgGreen),
		removed:  color.New(color.FgRed),
		modified: color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{h.title, h.heading, h.added, h.removed, h.modified} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return h
}

func (h *HumanRenderer) Render(w io.Writer, r *Report) error {
	ew := &errWriter{w: w}
	h.title.Fprintf(ew, "%s: %s -> %s\n", r.Title, r.Old, r.New)
	for _, s := range r.Sections {
		c := s.Counts()
		fmt.Fprintln(ew)
		h.title.Fprintf(ew, "%s", s.Title)
		fmt.Fprintf(ew, " (%d added, %d removed, %d modified)\n", c.Added, c.Removed, c.Modified)
		if len(s.Rows) == 0 {
			fmt.Fprintln(ew, "  No changes.")
		}
		for _, row := range s.Rows {
			if row.Heading != "" {
				h.heading.Fprintf(ew, "  %s\n", row.Heading)
			}
			h.row(ew, row)
		}
	}
	return ew.err
}

func (h *HumanRenderer) row(w io.Writer, row Row) {
	name := row.Name
	if row.Type != "" {
		name = row.Type + "." + name
	}
	if row.Identifier != "" {
		name += " [" + row.Identifier + "]"
	}
	switch row.Status {
	case StatusAdded:
		h.added.Fprintf(w, "    + %s\n", name)
	case StatusRemoved:
		suffix := ""
		if row.Deprecated {
			suffix = " (was deprecated)"
		}
		h.removed.Fprintf(w, "    - %s%s\n", name, suffix)
	default:
		h.modified.Fprintf(w, "    ~ %s", name)
		if len(row.Notes) > 0 {
			fmt.Fprintf(w, ": %s", strings.Join(row.Notes, ", "))
		}
		fmt.Fprintln(w)
	}
}

// errWriter keeps the first write error so that rendering code can print
// without checking every call.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
