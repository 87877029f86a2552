package backends

import (
	"log/slog"

	"apidiff/internal/artifact"
	"apidiff/internal/introspect"
)

// Ladder selects the backend for an artifact. The declaration override wins
// over the configured backend; a choice that cannot serve the artifact
// steps down to the source backend.
type Ladder struct {
	preferred BackendID
	opts      introspect.WalkOptions
	logger    *slog.Logger
}

// NewLadder creates a ladder preferring the configured backend.
func NewLadder(preferred BackendID, opts introspect.WalkOptions, logger *slog.Logger) *Ladder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if preferred == "" {
		preferred = BackendSource
	}
	return &Ladder{preferred: preferred, opts: opts, logger: logger}
}

// Choose returns the backend id used for a.
func (l *Ladder) Choose(a *artifact.Artifact) (BackendID, error) {
	id := l.preferred
	if a.Declaration.Backend != "" {
		override, err := ParseID(a.Declaration.Backend)
		if err != nil {
			return "", err
		}
		id = override
	}

	switch {
	case id == BackendSCIP && a.Index == "":
		l.logger.Warn("No SCIP index for artifact, falling back to source",
			"artifact", a.Declaration.Name,
			"version", a.Version.String(),
		)
		return BackendSource, nil
	case !IsAvailable(id):
		l.logger.Warn("Backend not available, falling back to source",
			"backend", string(id),
			"artifact", a.Declaration.Name,
		)
		return BackendSource, nil
	}
	return id, nil
}

// Select opens the backend chosen for a.
func (l *Ladder) Select(a *artifact.Artifact) (introspect.Backend, error) {
	id, err := l.Choose(a)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Selected backend", "backend", string(id), "artifact", a.Declaration.Name)
	return Open(id, l.opts)
}
