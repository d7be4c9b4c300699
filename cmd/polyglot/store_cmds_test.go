package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/polyglot/internal/config"
	"github.com/zulandar/polyglot/internal/store"
)

func configTranslator(provider, key string) config.TranslatorConfig {
	return config.TranslatorConfig{Provider: provider, APIKey: key}
}

// writeSQLiteConfig writes a config using a sqlite file in a temp dir.
func writeSQLiteConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "polyglot.yaml")
	yaml := "store:\n  driver: sqlite\n  path: " + filepath.Join(dir, "polyglot.db") + "\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	if err != nil {
		t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestDBMigrate(t *testing.T) {
	cfg := writeSQLiteConfig(t)
	out := mustRun(t, "db", "migrate", "-c", cfg)
	if !strings.Contains(out, "Migrated 4 tables") {
		t.Errorf("output = %s", out)
	}
	// Migrations are idempotent.
	mustRun(t, "db", "migrate", "-c", cfg)
}

func TestDBMigrate_MissingConfig(t *testing.T) {
	_, err := runCmd(t, "db", "migrate", "--config", "/nonexistent/polyglot.yaml")
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %v", err)
	}
}

func TestChannelAndLinkCommands(t *testing.T) {
	cfg := writeSQLiteConfig(t)
	mustRun(t, "db", "migrate", "-c", cfg)

	out := mustRun(t, "channel", "lang", "c-en", "en", "--guild", "g1", "-c", cfg)
	if !strings.Contains(out, "language set to en (English)") {
		t.Errorf("channel lang output = %s", out)
	}
	mustRun(t, "channel", "lang", "c-ja", "ja-jp", "-c", cfg)

	out = mustRun(t, "link", "add", "c-en", "c-ja", "-c", cfg)
	if !strings.Contains(out, "Linked c-en <-> c-ja") {
		t.Errorf("link add output = %s", out)
	}

	out = mustRun(t, "link", "list", "-c", cfg)
	if !strings.Contains(out, "c-en") || !strings.Contains(out, "ja-JP") {
		t.Errorf("link list output = %s", out)
	}
	if strings.Count(out, "\n") != 3 {
		t.Errorf("expected header and two directed edges, got: %s", out)
	}

	out = mustRun(t, "channel", "show", "c-ja", "-c", cfg)
	if !strings.Contains(out, "Language: ja-JP") || !strings.Contains(out, "c-en  en") {
		t.Errorf("channel show output = %s", out)
	}

	mustRun(t, "link", "remove", "c-en", "c-ja", "-c", cfg)
	out = mustRun(t, "link", "list", "-c", cfg)
	if !strings.Contains(out, "No links.") {
		t.Errorf("link list after remove = %s", out)
	}

	mustRun(t, "channel", "unset", "c-ja", "-c", cfg)
	out = mustRun(t, "channel", "show", "c-ja", "-c", cfg)
	if !strings.Contains(out, "Language: (none)") {
		t.Errorf("channel show after unset = %s", out)
	}
}

func TestLinkAdd_Self(t *testing.T) {
	_, err := runCmd(t, "link", "add", "c1", "c1", "-c", writeSQLiteConfig(t))
	if err == nil || !strings.Contains(err.Error(), "to itself") {
		t.Errorf("error = %v", err)
	}
}

func TestLinkRemove_Unknown(t *testing.T) {
	cfg := writeSQLiteConfig(t)
	mustRun(t, "db", "migrate", "-c", cfg)
	if _, err := runCmd(t, "link", "remove", "a", "b", "-c", cfg); err == nil {
		t.Error("expected error removing a link that does not exist")
	}
}

func TestChannelLang_InvalidLanguage(t *testing.T) {
	_, err := runCmd(t, "channel", "lang", "c1", "not a language", "-c", writeSQLiteConfig(t))
	if err == nil || !strings.Contains(err.Error(), "invalid language") {
		t.Errorf("error = %v", err)
	}
}

func TestCanonicalLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
		name string
	}{
		{"en", "en", "English"},
		{"JA", "ja", "Japanese"},
		{"zh-hant", "zh-Hant", "Traditional Chinese"},
		{"pt-br", "pt-BR", "Brazilian Portuguese"},
	}
	for _, tt := range tests {
		got, name, err := canonicalLanguage(tt.in)
		if err != nil {
			t.Errorf("canonicalLanguage(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want || name != tt.name {
			t.Errorf("canonicalLanguage(%q) = %q %q, want %q %q", tt.in, got, name, tt.want, tt.name)
		}
	}
	if _, _, err := canonicalLanguage("und"); err == nil {
		t.Error("expected error for undetermined language")
	}
}

func TestRecordShow(t *testing.T) {
	cfg := writeSQLiteConfig(t)
	mustRun(t, "db", "migrate", "-c", cfg)

	loaded, err := config.LoadStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	s, err := openStores(t.Context(), loaded)
	if err != nil {
		t.Fatal(err)
	}
	rec := store.LinkRecord{
		AuthorID:        "u1",
		OriginChannelID: "c-en",
		OriginMessageID: "m1",
		Copies:          []store.Copy{{ChannelID: "c-ja", MessageID: "m2"}},
	}
	if err := s.links.Create(t.Context(), rec); err != nil {
		t.Fatal(err)
	}
	s.close(t.Context())

	out := mustRun(t, "record", "show", "m1", "-c", cfg)
	if !strings.Contains(out, "Origin:  c-en/m1") || !strings.Contains(out, "c-ja/m2") {
		t.Errorf("record show output = %s", out)
	}

	out = mustRun(t, "record", "show", "m2", "c-ja", "--json", "-c", cfg)
	var got store.LinkRecord
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.OriginMessageID != "m1" {
		t.Errorf("record = %+v", got)
	}

	if _, err := runCmd(t, "record", "show", "m2", "-c", cfg); err == nil {
		t.Error("a copy ID without its channel should not match an origin record")
	}
}
