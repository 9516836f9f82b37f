package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinRolesRender(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{RoleProposer, RoleRefiner, RoleRepairer, RoleJudge} {
		out, err := r.Render(id, nil)
		if err != nil {
			t.Fatalf("Render(%s) error = %v", id, err)
		}
		if strings.TrimSpace(out) == "" {
			t.Fatalf("Render(%s) returned empty instructions", id)
		}
	}
	if _, err := r.Render("nope", nil); err == nil {
		t.Fatalf("unknown role must error")
	}
}

func TestRegisterRejectsEmptyID(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Role{ID: "  "}); err == nil {
		t.Fatalf("blank role id must be rejected")
	}
}

func TestLoadCustomDirOverridesTemplate(t *testing.T) {
	dir := t.TempDir()
	custom := "custom instructions for {{.Round}}"
	if err := os.WriteFile(filepath.Join(dir, RoleRefiner+".txt"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "reviewer.txt"), []byte("fresh role"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := r.LoadCustomDir(dir); err != nil {
		t.Fatalf("LoadCustomDir() error = %v", err)
	}

	out, err := r.Render(RoleRefiner, struct{ Round int }{7})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "custom instructions for 7" {
		t.Fatalf("override not applied: %q", out)
	}
	// Overriding the template keeps the role's command allowance.
	role, _ := r.Get(RoleRefiner)
	if len(role.AllowedCommands) != 2 {
		t.Fatalf("allowed commands lost on override: %+v", role)
	}
	if _, ok := r.Get("reviewer"); !ok {
		t.Fatalf("new role from custom dir not registered")
	}
}

func TestLoadCustomDirMissingIsNoop(t *testing.T) {
	r := NewRegistry()
	if err := r.LoadCustomDir(filepath.Join(t.TempDir(), "absent")); err != nil {
		t.Fatalf("missing dir should be a no-op, got %v", err)
	}
}
