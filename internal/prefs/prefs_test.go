package prefs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != defaultTheme {
		t.Fatalf("Theme = %q, want %q", p.Theme, defaultTheme)
	}
	if p.Email != "" {
		t.Fatalf("Email = %q, want empty", p.Email)
	}
}

func TestLoad_ReadsDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	prefsDir := filepath.Join(home, ".config", "bookdesk")
	if err := os.MkdirAll(prefsDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	prefsFile := filepath.Join(prefsDir, "prefs.toml")
	body := "theme = \"Slate\"\nemail = \" ada@example.com \"\n"
	if err := os.WriteFile(prefsFile, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p.Theme != "Slate" {
		t.Fatalf("Theme = %q, want %q", p.Theme, "Slate")
	}
	if p.Email != "ada@example.com" {
		t.Fatalf("Email = %q, want %q", p.Email, "ada@example.com")
	}
}

func TestSave_CreatesFileAndDirs(t *testing.T) {
	prefsFile := filepath.Join(t.TempDir(), "subdir", "prefs.toml")

	if err := Save(prefsFile, Prefs{Theme: "Kanagawa", Email: "a@b.c"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := Load(prefsFile)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded != (Prefs{Theme: "Kanagawa", Email: "a@b.c"}) {
		t.Fatalf("loaded = %+v, want theme Kanagawa and email a@b.c", loaded)
	}
}

func TestSave_OmitsEmptyEmail(t *testing.T) {
	prefsFile := filepath.Join(t.TempDir(), "prefs.toml")
	if err := Save(prefsFile, Prefs{}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	data, err := os.ReadFile(prefsFile)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "email") {
		t.Fatalf("prefs file = %q, want no email key", data)
	}
	if !strings.Contains(string(data), defaultTheme) {
		t.Fatalf("prefs file = %q, want default theme written", data)
	}
}

func TestUpdate_PreservesOtherFields(t *testing.T) {
	prefsFile := filepath.Join(t.TempDir(), "prefs.toml")
	if err := Save(prefsFile, Prefs{Theme: "Slate", Email: "a@b.c"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	got, err := Update(prefsFile, func(p *Prefs) { p.Theme = "Kanagawa" })
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if got.Email != "a@b.c" || got.Theme != "Kanagawa" {
		t.Fatalf("Update = %+v, want email kept and theme changed", got)
	}

	loaded, _ := Load(prefsFile)
	if loaded != got {
		t.Fatalf("Load after Update = %+v, want %+v", loaded, got)
	}
}

func TestLoad_InvalidTOMLFallsBackToDefault(t *testing.T) {
	prefsFile := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(prefsFile, []byte("not valid toml {{{\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	p, err := Load(prefsFile)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if p != Defaults() {
		t.Fatalf("Load = %+v, want defaults", p)
	}
}
