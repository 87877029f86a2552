// Package scip reads declarations from a SCIP index of an artifact.
package scip

import (
	"context"
	"fmt"
	"go/ast"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"apidiff/internal/artifact"
	"apidiff/internal/backends/source"
	"apidiff/internal/errors"
	"apidiff/internal/introspect"
)

// Name is the backend name used in configuration.
const Name = "scip"

// Backend loads declarations from the index of an artifact. Signatures are
// taken from the symbol documentation and parsed with go/parser; names are
// resolved leniently.
type Backend struct {
	exclude []string
	logger  *slog.Logger
}

// New creates a SCIP backend.
func New(opts introspect.WalkOptions) *Backend {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Backend{exclude: opts.Exclude, logger: logger}
}

func (b *Backend) Name() string { return Name }

// Lenient implements introspect.LenientBackend.
func (b *Backend) Lenient() bool { return true }

// LoadIndex reads and decodes a SCIP index.
func LoadIndex(path string) (*scippb.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.IOError, "cannot read SCIP index", err).WithInput(path)
	}
	var index scippb.Index
	if err := proto.Unmarshal(data, &index); err != nil {
		return nil, errors.New(errors.IOError, "cannot decode SCIP index", err).WithInput(path)
	}
	return &index, nil
}

// Load implements introspect.Backend.
func (b *Backend) Load(ctx context.Context, a *artifact.Artifact) ([]*introspect.File, error) {
	if a.Index == "" {
		return nil, errors.New(errors.IOError, "artifact has no SCIP index", nil).WithInput(a.Dir)
	}
	index, err := LoadIndex(a.Index)
	if err != nil {
		return nil, err
	}

	var files []*introspect.File
	for _, doc := range index.Documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !b.selectDocument(doc.RelativePath) {
			continue
		}
		f, err := b.document(a, doc)
		if err != nil {
			return nil, err
		}
		if f != nil {
			files = append(files, f)
		}
	}
	b.logger.Debug("Loaded SCIP index", "artifact", a.Declaration.Name, "documents", len(index.Documents), "files", len(files))
	return files, nil
}

func (b *Backend) selectDocument(rel string) bool {
	rel = filepath.ToSlash(rel)
	if !strings.HasSuffix(rel, ".go") || strings.HasSuffix(rel, "_test.go") {
		return false
	}
	for _, elem := range strings.Split(path.Dir(rel), "/") {
		if elem != "." && artifact.SkipDir(elem) {
			return false
		}
	}
	for _, pattern := range b.exclude {
		if ok, _ := doublestar.Match(pattern, path.Dir(rel)); ok {
			return false
		}
	}
	return true
}

// symbol is a definition of the document with its signature.
type symbol struct {
	parsed    *Symbol
	members   []Descriptor
	signature string
	doc       []string
}

func (b *Backend) document(a *artifact.Artifact, doc *scippb.Document) (*introspect.File, error) {
	var defs []symbol
	pkgPath := ""
	for _, info := range doc.Symbols {
		parsed, err := ParseSymbol(info.Symbol)
		if err != nil {
			continue
		}
		p := parsed.PackagePath()
		if a.Module != "" && p != a.Module && !strings.HasPrefix(p, a.Module+"/") {
			continue
		}
		if pkgPath == "" {
			pkgPath = p
		}
		sig, lines := splitDocumentation(info)
		defs = append(defs, symbol{
			parsed:    parsed,
			members:   parsed.Members(),
			signature: sig,
			doc:       lines,
		})
	}
	if pkgPath == "" {
		return nil, nil
	}

	f := &introspect.File{
		Path:       filepath.ToSlash(doc.RelativePath),
		ImportPath: pkgPath,
		Package:    introspect.PackageNames(pkgPath)[0],
	}
	if a.Dir != "" {
		if src, err := os.ReadFile(filepath.Join(a.Dir, doc.RelativePath)); err == nil {
			f.Generated = introspect.IsGenerated(src)
		}
	}

	types := make(map[string]*introspect.TypeDecl)
	for _, s := range defs {
		if len(s.members) != 1 || s.members[0].Suffix != SuffixType {
			continue
		}
		td, err := b.typeDecl(s)
		if err != nil {
			b.skip(f, s, err)
			continue
		}
		types[td.Name] = td
		f.Types = append(f.Types, td)
	}

	for _, s := range defs {
		m := s.members
		var err error
		switch {
		case len(m) == 1 && m[0].Suffix == SuffixMethod:
			err = b.funcDecl(f, s)
		case len(m) == 1 && m[0].Suffix == SuffixTerm:
			err = b.valueDecl(f, s)
		case len(m) == 2 && m[0].Suffix == SuffixType && m[1].Suffix == SuffixTerm:
			if td := types[m[0].Name]; td != nil {
				err = b.fieldDecl(td, s)
			}
		case len(m) == 2 && m[0].Suffix == SuffixType && m[1].Suffix == SuffixMethod:
			err = b.methodDecl(f, types[m[0].Name], s)
		}
		if err != nil {
			b.skip(f, s, err)
		}
	}
	return f, nil
}

func (b *Backend) skip(f *introspect.File, s symbol, err error) {
	b.logger.Debug("Skipping SCIP symbol", "file", f.Path, "symbol", s.parsed.Descriptors, "error", err)
}

// splitDocumentation separates the Go signature from the doc text. The
// signature comes from SignatureDocumentation or a leading ```go fence.
func splitDocumentation(info *scippb.SymbolInformation) (string, []string) {
	docs := info.Documentation
	sig := ""
	if info.SignatureDocumentation != nil {
		sig = info.SignatureDocumentation.Text
	}
	if len(docs) > 0 && strings.HasPrefix(docs[0], "```") {
		fenced := strings.TrimPrefix(docs[0], "```go")
		fenced = strings.TrimPrefix(fenced, "```")
		fenced = strings.TrimSuffix(strings.TrimSpace(fenced), "```")
		if sig == "" {
			sig = fenced
		}
		docs = docs[1:]
	}

	var lines []string
	for _, d := range docs {
		for _, line := range strings.Split(strings.TrimSpace(d), "\n") {
			lines = append(lines, line)
		}
	}
	return strings.TrimSpace(sig), lines
}

var (
	methodForm  = regexp.MustCompile(`^func \(([^()]*)\)\.([\p{L}\p{N}_]+)`)
	untypedForm = regexp.MustCompile(`^(const|var) ([\p{L}\p{N}_]+) untyped [\p{L}\p{N}_]+`)
	fieldForm   = regexp.MustCompile(`^(struct )?field `)
)

// normalize rewrites indexer signature forms into Go declarations.
func normalize(sig string) string {
	sig = methodForm.ReplaceAllString(sig, "func (_ $1) $2")
	if m := untypedForm.FindStringSubmatch(sig); m != nil {
		rest := strings.TrimSpace(sig[len(m[0]):])
		if !strings.HasPrefix(rest, "=") {
			rest = "= 0"
		}
		sig = m[1] + " " + m[2] + " " + rest
	}
	sig = fieldForm.ReplaceAllString(sig, "var ")
	if strings.HasPrefix(sig, "type ") && !strings.Contains(sig, "{") &&
		(strings.HasSuffix(sig, " struct") || strings.HasSuffix(sig, " interface")) {
		sig += "{}"
	}
	return sig
}

// parse converts one normalized signature with its doc lines.
func parse(sig string, doc []string) (*introspect.File, error) {
	if sig == "" {
		return nil, fmt.Errorf("no signature")
	}
	var src strings.Builder
	src.WriteString("package p\n\n")
	for _, line := range doc {
		switch {
		case strings.HasPrefix(line, "//uml:"):
		case strings.HasPrefix(line, "uml:"):
			line = "//" + line
		default:
			line = "// " + line
		}
		src.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	src.WriteString(normalize(sig))
	src.WriteString("\n")
	return source.Parser{}.ParseFile("signature.go", []byte(src.String()))
}

func (b *Backend) typeDecl(s symbol) (*introspect.TypeDecl, error) {
	f, err := parse(s.signature, s.doc)
	if err != nil {
		return nil, err
	}
	if len(f.Types) != 1 || f.Types[0].Name != s.members[0].Name {
		return nil, fmt.Errorf("signature %q does not declare %s", s.signature, s.members[0].Name)
	}
	td := f.Types[0]
	// Named members come from their own symbols.
	td.Fields = nil
	td.Methods = nil
	return td, nil
}

func (b *Backend) fieldDecl(td *introspect.TypeDecl, s symbol) error {
	f, err := parse(s.signature, s.doc)
	if err != nil {
		return err
	}
	if len(f.Values) != 1 || f.Values[0].Type == nil {
		return fmt.Errorf("signature %q is not a field", s.signature)
	}
	vd := f.Values[0]
	name := s.members[1].Name
	if embedded(name, vd.Type) {
		for _, e := range td.Embeds {
			if embeddedName(e) == name {
				return nil
			}
		}
		td.Embeds = append(td.Embeds, vd.Type)
		return nil
	}
	td.Fields = append(td.Fields, &introspect.FieldDecl{
		Names: []string{name},
		Type:  vd.Type,
		Doc:   vd.Doc,
	})
	return nil
}

func (b *Backend) methodDecl(f *introspect.File, td *introspect.TypeDecl, s symbol) error {
	parsed, err := parse(s.signature, s.doc)
	if err != nil {
		return err
	}
	if len(parsed.Funcs) != 1 {
		return fmt.Errorf("signature %q is not a method", s.signature)
	}
	fd := parsed.Funcs[0]
	fd.Name = s.members[1].Name
	if td != nil && isInterface(td) {
		fd.Recv = ""
		td.Methods = append(td.Methods, fd)
		return nil
	}
	fd.Recv = s.members[0].Name
	f.Funcs = append(f.Funcs, fd)
	return nil
}

func (b *Backend) funcDecl(f *introspect.File, s symbol) error {
	parsed, err := parse(s.signature, s.doc)
	if err != nil {
		return err
	}
	if len(parsed.Funcs) != 1 {
		return fmt.Errorf("signature %q is not a function", s.signature)
	}
	fd := parsed.Funcs[0]
	fd.Recv = ""
	f.Funcs = append(f.Funcs, fd)
	return nil
}

func (b *Backend) valueDecl(f *introspect.File, s symbol) error {
	parsed, err := parse(s.signature, s.doc)
	if err != nil {
		return err
	}
	if len(parsed.Values) != 1 {
		return fmt.Errorf("signature %q is not a value", s.signature)
	}
	f.Values = append(f.Values, parsed.Values[0])
	return nil
}

func isInterface(td *introspect.TypeDecl) bool {
	_, ok := td.Expr.(*ast.InterfaceType)
	return ok
}

// embedded reports whether a field symbol describes an embedded field: its
// name is the base name of its type.
func embedded(name string, typ ast.Expr) bool {
	return embeddedName(typ) == name
}

func embeddedName(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.StarExpr:
		return embeddedName(x.X)
	case *ast.IndexExpr:
		return embeddedName(x.X)
	case *ast.IndexListExpr:
		return embeddedName(x.X)
	case *ast.SelectorExpr:
		return x.Sel.Name
	case *ast.Ident:
		return x.Name
	}
	return ""
}
