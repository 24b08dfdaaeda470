package router

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"

	"qmunlock/internal/config"
)

// Entry maps one source extension to its output extension.
type Entry struct {
	Source string
	Target string
}

// Router decides which files are eligible for conversion and which
// extension their output receives. It is immutable after construction and
// safe for concurrent use.
type Router struct {
	entries []Entry
	lookup  map[string]string
}

// New builds a router over an ordered extension table. Source extensions are
// matched case-insensitively; later duplicates are ignored so each source maps
// to exactly one target.
func New(entries ...Entry) *Router {
	r := &Router{lookup: make(map[string]string, len(entries))}
	for _, e := range entries {
		src := fold(strings.TrimPrefix(strings.TrimSpace(e.Source), "."))
		dst := strings.TrimPrefix(strings.TrimSpace(e.Target), ".")
		if src == "" || dst == "" {
			continue
		}
		if _, dup := r.lookup[src]; dup {
			continue
		}
		r.lookup[src] = dst
		r.entries = append(r.entries, Entry{Source: src, Target: dst})
	}
	return r
}

// FromConfig builds a router from the configured extension table.
func FromConfig(cfg *config.Config) *Router {
	if cfg == nil {
		return Default()
	}
	entries := make([]Entry, 0, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		entries = append(entries, Entry{Source: ext.Source, Target: ext.Target})
	}
	return New(entries...)
}

// Default returns a router over the built-in table (mflac -> flac, mgg -> ogg).
func Default() *Router {
	entries := make([]Entry, 0, 2)
	for _, ext := range config.DefaultExtensions() {
		entries = append(entries, Entry{Source: ext.Source, Target: ext.Target})
	}
	return New(entries...)
}

// Route returns the output extension for path. ok is false when the path has
// no extension (dotfiles included) or its extension is not in the table.
func (r *Router) Route(path string) (target string, ok bool) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	// A leading dot names a hidden file, not an extension.
	if len(ext) <= 1 || len(ext) == len(base) {
		return "", false
	}
	target, ok = r.lookup[fold(ext[1:])]
	return target, ok
}

// Eligible reports whether Route would accept path.
func (r *Router) Eligible(path string) bool {
	_, ok := r.Route(path)
	return ok
}

// Entries returns the table in declaration order.
func (r *Router) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// Extensions lists the mapped source extensions in declaration order.
func (r *Router) Extensions() []string {
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Source)
	}
	return out
}

func fold(s string) string {
	return cases.Fold().String(s)
}
