package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Template is one named prompt body loaded from disk (e.g. cleaner.yaml,
// function_caller.yaml). The body carries `{name}`-style placeholders.
type Template struct {
	Ref  string `yaml:"-"`
	Body string `yaml:"body"`
}

// Loader reads templates from a directory of YAML files and caches them by
// ref. A ref of "cleaner-v1" resolves to "<dir>/cleaner-v1.yaml".
//
// Evaluations cache the Template they resolve at create_evaluation time on
// their SessionState: loaded once per evaluation, re-loaded only on an
// explicit template change. Loader's own cache exists so that many
// evaluations referencing the same ref only hit disk once.
type Loader struct {
	dir string

	mu    sync.RWMutex
	cache map[string]*Template
}

// NewLoader returns a Loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir, cache: make(map[string]*Template)}
}

// Load resolves ref to a Template, reading and parsing its YAML file on
// first use and serving the cached copy thereafter.
func (l *Loader) Load(ref string) (*Template, error) {
	if ref == "" {
		return nil, fmt.Errorf("prompt: template ref is required")
	}

	l.mu.RLock()
	cached, ok := l.cache[ref]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	path := filepath.Join(l.dir, ref+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompt: read template %q: %w", ref, err)
	}

	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("prompt: parse template %q: %w", ref, err)
	}
	if tmpl.Body == "" {
		return nil, fmt.Errorf("prompt: template %q has an empty body", ref)
	}
	tmpl.Ref = ref

	l.mu.Lock()
	l.cache[ref] = &tmpl
	l.mu.Unlock()

	return &tmpl, nil
}

// Invalidate drops ref from the cache, forcing the next Load to re-read it
// from disk. Used only for an explicit template change.
func (l *Loader) Invalidate(ref string) {
	l.mu.Lock()
	delete(l.cache, ref)
	l.mu.Unlock()
}
