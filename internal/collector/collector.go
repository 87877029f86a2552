// Package collector turns the resolved model of an artifact into the set of
// API elements compared between releases.
package collector

import (
	"context"
	"log/slog"
	"strings"

	"apidiff/internal/artifact"
	"apidiff/internal/element"
	"apidiff/internal/errors"
	"apidiff/internal/introspect"
)

// Options configure a Collector.
type Options struct {
	// CodeListType names the base type of code lists, qualified
	// ("example.com/geoapi/util.CodeList") or simple ("CodeList").
	CodeListType string
}

// Collector builds element sets.
type Collector struct {
	opts   Options
	logger *slog.Logger
}

// New creates a collector.
func New(opts Options, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Collector{opts: opts, logger: logger}
}

// CollectArtifact inspects a with backend and collects the result.
func (c *Collector) CollectArtifact(ctx context.Context, backend introspect.Backend, a *artifact.Artifact) (*element.Set, error) {
	api, err := introspect.Inspect(ctx, backend, a, introspect.Options{Logger: c.logger})
	if err != nil {
		return nil, errors.AtStage(err, errors.StageCollect)
	}
	set, err := c.Collect(ctx, api)
	if err != nil {
		return nil, errors.AtStage(err, errors.StageCollect)
	}
	c.logger.Info("Collected API elements",
		"artifact", a.Declaration.Name,
		"version", a.Version.String(),
		"backend", backend.Name(),
		"elements", set.Len(),
	)
	return set, nil
}

// Collect builds the element set of api. Unexported and synthesized
// declarations are skipped; exported declarations of internal packages are
// kept as protected.
func (c *Collector) Collect(ctx context.Context, api *introspect.API) (*element.Set, error) {
	p := &pass{
		set:       element.NewSet(),
		packages:  make(map[string]*element.Element),
		hierarchy: newHierarchy(api, c.opts.CodeListType),
	}
	for _, pkg := range api.Packages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.collectPackage(pkg); err != nil {
			return nil, err
		}
		c.logger.Debug("Collected package", "package", pkg.Path, "types", len(pkg.Types))
	}
	return p.set, nil
}

// pass holds the state of one Collect call.
type pass struct {
	set       *element.Set
	packages  map[string]*element.Element
	hierarchy *hierarchy
}

// packageElement returns the memoized element of pkg, adding it on first use.
func (p *pass) packageElement(pkg *introspect.Package) (*element.Element, error) {
	if e, ok := p.packages[pkg.Path]; ok {
		return e, nil
	}
	e := element.New(element.Spec{
		Kind:   element.Package,
		Name:   pkg.Path,
		Public: !pkg.Internal,
	})
	if err := p.set.Add(e); err != nil {
		return nil, err
	}
	p.packages[pkg.Path] = e
	return e, nil
}

func visible(exported, synthesized bool) bool {
	return exported && !synthesized
}

func (p *pass) collectPackage(pkg *introspect.Package) error {
	public := !pkg.Internal
	for _, t := range pkg.Types {
		if !visible(t.Exported, t.Synthesized) {
			continue
		}
		container, err := p.packageElement(pkg)
		if err != nil {
			return err
		}
		var parent string
		if len(t.Parents) > 0 {
			parent = t.Parents[0].Display
		}
		typeElem := element.New(element.Spec{
			Container:  container,
			Kind:       p.hierarchy.kind(pkg, t),
			Type:       parent,
			Name:       t.Name,
			Identifier: t.Annotation.Identifier,
			Obligation: t.Annotation.Obligation,
			Public:     public,
			Deprecated: t.Deprecated,
		})
		if err := p.set.Add(typeElem); err != nil {
			return err
		}
		if err := p.collectMembers(typeElem, t, public); err != nil {
			return err
		}
	}

	for _, fn := range pkg.Funcs {
		if !visible(fn.Exported, fn.Synthesized) {
			continue
		}
		container, err := p.packageElement(pkg)
		if err != nil {
			return err
		}
		if err := p.addFunc(container, element.Method, fn, public); err != nil {
			return err
		}
	}
	for _, v := range pkg.Values {
		if !visible(v.Exported, v.Synthesized) {
			continue
		}
		container, err := p.packageElement(pkg)
		if err != nil {
			return err
		}
		if err := p.addField(container, v, public); err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) collectMembers(container *element.Element, t *introspect.Type, public bool) error {
	for _, f := range t.Fields {
		if visible(f.Exported, f.Synthesized) {
			if err := p.addField(container, f, public); err != nil {
				return err
			}
		}
	}
	for _, f := range t.Constants {
		if visible(f.Exported, f.Synthesized) {
			if err := p.addField(container, f, public); err != nil {
				return err
			}
		}
	}
	for _, fn := range t.Constructors {
		if visible(fn.Exported, fn.Synthesized) {
			if err := p.addFunc(container, element.Constructor, fn, public); err != nil {
				return err
			}
		}
	}
	for _, fn := range t.Methods {
		if visible(fn.Exported, fn.Synthesized) {
			if err := p.addFunc(container, element.Method, fn, public); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *pass) addField(container *element.Element, f *introspect.Field, public bool) error {
	return p.set.Add(element.New(element.Spec{
		Container:  container,
		Kind:       element.Field,
		Type:       f.Type.Display,
		Name:       f.Name,
		Identifier: f.Annotation.Identifier,
		Obligation: f.Annotation.Obligation,
		Public:     public,
		Deprecated: f.Deprecated,
	}))
}

func (p *pass) addFunc(container *element.Element, kind element.Kind, fn *introspect.Func, public bool) error {
	return p.set.Add(element.New(element.Spec{
		Container:  container,
		Kind:       kind,
		Type:       fn.Result(),
		Name:       fn.Signature(),
		Identifier: fn.Annotation.Identifier,
		Obligation: fn.Annotation.Obligation,
		Public:     public,
		Deprecated: fn.Deprecated,
	}))
}

// hierarchy answers kind questions over the parent chains of all types of
// one artifact.
type hierarchy struct {
	codeList string
	parents  map[string][]string
	memo     map[string]bool
}

func newHierarchy(api *introspect.API, codeList string) *hierarchy {
	h := &hierarchy{
		codeList: strings.TrimSpace(codeList),
		parents:  make(map[string][]string),
		memo:     make(map[string]bool),
	}
	for _, pkg := range api.Packages {
		for _, t := range pkg.Types {
			q := t.QualifiedName(pkg.Path)
			for _, ref := range t.Parents {
				h.parents[q] = append(h.parents[q], baseName(ref.Qualified))
			}
		}
	}
	return h
}

// baseName strips pointers and type arguments: *pkg.List[T] becomes pkg.List.
func baseName(q string) string {
	q = strings.TrimLeft(q, "*")
	if i := strings.IndexByte(q, '['); i > 0 {
		q = q[:i]
	}
	return q
}

func (h *hierarchy) kind(pkg *introspect.Package, t *introspect.Type) element.Kind {
	switch {
	case t.Form != introspect.FormStruct && t.Form != introspect.FormInterface && t.Enumerated():
		return element.Enum
	case h.isCodeList(t.QualifiedName(pkg.Path)):
		return element.CodeList
	case t.Form == introspect.FormInterface:
		return element.Interface
	}
	return element.Class
}

// matches reports whether the qualified name q denotes the code-list base
// type. A simple configured name matches on the last element.
func (h *hierarchy) matches(q string) bool {
	if h.codeList == "" {
		return false
	}
	if strings.Contains(h.codeList, ".") {
		return q == h.codeList
	}
	simple := q
	if i := strings.LastIndexByte(q, '.'); i >= 0 {
		simple = q[i+1:]
	}
	return simple == h.codeList
}

// isCodeList reports whether a parent chain of q reaches the code-list
// base type. The base type itself is not a code list.
func (h *hierarchy) isCodeList(q string) bool {
	return h.reaches(q, make(map[string]bool))
}

func (h *hierarchy) reaches(q string, visiting map[string]bool) bool {
	if v, ok := h.memo[q]; ok {
		return v
	}
	if visiting[q] {
		return false
	}
	visiting[q] = true
	result := false
	for _, parent := range h.parents[q] {
		if h.matches(parent) || h.reaches(parent, visiting) {
			result = true
			break
		}
	}
	h.memo[q] = result
	return result
}
