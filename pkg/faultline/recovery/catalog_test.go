package recovery

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCatalog_Message(t *testing.T) {
	c := NewCatalog()

	if got := c.Message("AUTH_001"); got != builtinMessages["AUTH_001"] {
		t.Errorf("AUTH_001 = %q", got)
	}
	if got := c.Message("NOPE_999"); got != builtinMessages[DefaultCode] {
		t.Errorf("unknown code should fall back to DEFAULT, got %q", got)
	}
	if _, ok := c.Lookup("NOPE_999"); ok {
		t.Error("Lookup should report unknown codes")
	}
}

func TestCatalog_BuiltinCodes(t *testing.T) {
	c := NewCatalog()
	codes := []string{
		"AUTH_001", "AUTH_002", "AUTH_003", "AUTH_004", "AUTH_005",
		"USER_001", "USER_002", "USER_003", "USER_004",
		"ROLE_001", "ROLE_002", "ROLE_003",
		"NET_001", "NET_002", "RATE_001", "SERVER_001", DefaultCode,
	}
	for _, code := range codes {
		if msg, ok := c.Lookup(code); !ok || msg == "" {
			t.Errorf("missing built-in message for %s", code)
		}
	}
}

func TestCatalog_LoadYAML(t *testing.T) {
	c := NewCatalog()
	err := c.LoadYAML([]byte("USER_001: \"No such person.\"\nCUSTOM_1: \"Custom message\"\nUSER_002: \"\"\n"))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if got := c.Message("USER_001"); got != "No such person." {
		t.Errorf("override not applied: %q", got)
	}
	if got := c.Message("CUSTOM_1"); got != "Custom message" {
		t.Errorf("new code not added: %q", got)
	}
	if got := c.Message("USER_002"); got != builtinMessages["USER_002"] {
		t.Errorf("empty override should be ignored: %q", got)
	}
}

func TestCatalog_LoadYAMLInvalid(t *testing.T) {
	c := NewCatalog()
	before := c.Len()
	if err := c.LoadYAML([]byte("- not\n- a map\n")); err == nil {
		t.Error("expected parse error")
	}
	if c.Len() != before {
		t.Error("failed load must not change the catalog")
	}
}

func TestCatalog_LoadFileExpandsEnv(t *testing.T) {
	t.Setenv("SUPPORT_EMAIL", "help@example.com")
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("DEFAULT: \"Something broke. Write to ${SUPPORT_EMAIL}.\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	c := NewCatalog()
	if err := c.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := c.Message("missing"); got != "Something broke. Write to help@example.com." {
		t.Errorf("DEFAULT = %q", got)
	}
	if err := c.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCatalog_CodesSorted(t *testing.T) {
	c := NewCatalog()
	c.Set("AAA_000", "first")

	codes := c.Codes()
	if len(codes) != c.Len() {
		t.Fatalf("Codes() returned %d codes, Len() = %d", len(codes), c.Len())
	}
	if codes[0] != "AAA_000" {
		t.Errorf("codes[0] = %q, want AAA_000", codes[0])
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] > codes[i] {
			t.Fatalf("codes not sorted at %d: %q > %q", i, codes[i-1], codes[i])
		}
	}
}
