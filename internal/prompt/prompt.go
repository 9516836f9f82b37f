// Package prompt holds the role profiles that drive generation. Roles are
// configuration, not a class hierarchy: each maps an identifier to the
// commands it may emit and the instruction template rendered for it.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
)

// Role is one prompt-selection profile.
type Role struct {
	ID              string
	Description     string
	AllowedCommands []string
	Template        string
}

// Registry resolves role IDs to parsed templates. Custom roles can be
// registered at runtime or loaded from a directory of *.txt overrides.
type Registry struct {
	mu    sync.RWMutex
	roles map[string]Role
	tmpl  map[string]*template.Template
}

func NewRegistry() *Registry {
	r := &Registry{
		roles: make(map[string]Role),
		tmpl:  make(map[string]*template.Template),
	}
	for _, role := range builtinRoles {
		if err := r.Register(role); err != nil {
			panic(fmt.Sprintf("prompt: builtin role %s: %v", role.ID, err))
		}
	}
	return r
}

// Register parses and stores a role, replacing any existing one.
func (r *Registry) Register(role Role) error {
	if strings.TrimSpace(role.ID) == "" {
		return fmt.Errorf("prompt: role id is required")
	}
	t, err := template.New(role.ID).Parse(role.Template)
	if err != nil {
		return fmt.Errorf("prompt: parse template for role %s: %w", role.ID, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles[role.ID] = role
	r.tmpl[role.ID] = t
	return nil
}

func (r *Registry) Get(id string) (Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[id]
	return role, ok
}

// Render produces the instruction text for a role.
func (r *Registry) Render(id string, data any) (string, error) {
	r.mu.RLock()
	t, ok := r.tmpl[id]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("prompt: unknown role %q", id)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("prompt: render role %s: %w", id, err)
	}
	return sb.String(), nil
}

// LoadCustomDir overlays templates from dir: every *.txt file replaces (or
// introduces) the role whose ID matches the file stem. Missing dir is not
// an error.
func (r *Registry) LoadCustomDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		id := strings.TrimSuffix(e.Name(), ".txt")
		role, ok := r.Get(id)
		if !ok {
			role = Role{ID: id, Description: "custom role"}
		}
		role.Template = string(b)
		if err := r.Register(role); err != nil {
			return err
		}
	}
	return nil
}
