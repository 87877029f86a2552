// Package report compares the API elements of two releases and renders the
// differences as a grouped change report.
package report

import (
	"time"

	"apidiff/internal/artifact"
	"apidiff/internal/element"
	"apidiff/internal/release"
)

// Status classifies a reported element.
type Status string

const (
	StatusAdded    Status = "added"
	StatusRemoved  Status = "removed"
	StatusModified Status = "modified"
)

// Report is the view model shared by all renderers.
type Report struct {
	ID          string          `json:"id" yaml:"id"`
	Title       string          `json:"title" yaml:"title"`
	Old         release.Version `json:"old" yaml:"old"`
	New         release.Version `json:"new" yaml:"new"`
	GeneratedAt time.Time       `json:"generatedAt" yaml:"generatedAt"`
	Sections    []Section       `json:"sections" yaml:"sections"`
}

// Rows counts the rows of every section.
func (r *Report) Rows() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Rows)
	}
	return n
}

// Section holds the rows of one artifact.
type Section struct {
	Artifact string `json:"artifact" yaml:"artifact"`
	Title    string `json:"title" yaml:"title"`
	Rows     []Row  `json:"rows" yaml:"rows"`
}

// Counts tallies rows by status.
type Counts struct {
	Added    int `json:"added" yaml:"added"`
	Removed  int `json:"removed" yaml:"removed"`
	Modified int `json:"modified" yaml:"modified"`
}

// Counts tallies the rows of s.
func (s Section) Counts() Counts {
	var c Counts
	for _, r := range s.Rows {
		switch r.Status {
		case StatusAdded:
			c.Added++
		case StatusRemoved:
			c.Removed++
		case StatusModified:
			c.Modified++
		}
	}
	return c
}

// Row is one reported element.
type Row struct {
	// Heading is set on the first row of every run of one kind.
	Heading    string       `json:"heading,omitempty" yaml:"heading,omitempty"`
	Kind       element.Kind `json:"kind" yaml:"kind"`
	Identifier string       `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	// Type is the enclosing type of a member.
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	Name   string `json:"name" yaml:"name"`
	Status Status `json:"status" yaml:"status"`
	// Deprecated is reported for added and removed elements; for modified
	// ones deprecation shows up in Notes.
	Deprecated bool     `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Notes      []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// NewSection builds the section of d from Compare output.
func NewSection(d artifact.Declaration, elems []*element.Element) Section {
	s := Section{Artifact: d.Name, Title: d.Heading(), Rows: make([]Row, 0, len(elems))}
	for i, e := range elems {
		row := Row{
			Kind:       e.Kind(),
			Identifier: e.Identifier(),
			Name:       e.Name(),
		}
		if i == 0 || elems[i-1].Kind() != e.Kind() {
			row.Heading = e.Kind().Heading()
		}
		if t := e.EnclosingType(); t != nil {
			row.Type = t.Name()
		}
		switch c := e.Changes(); {
		case c == nil:
			row.Status = StatusAdded
			row.Deprecated = e.IsDeprecated()
		case c.Removed:
			row.Status = StatusRemoved
			row.Deprecated = e.IsDeprecated()
		default:
			row.Status = StatusModified
			row.Notes = c.Descriptions(e.Kind())
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}
