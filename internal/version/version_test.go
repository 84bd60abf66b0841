package version

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGet_LdflagsWin(t *testing.T) {
	oldVersion, oldCommit, oldDirty := Version, Commit, Dirty
	t.Cleanup(func() { Version, Commit, Dirty = oldVersion, oldCommit, oldDirty })

	Version, Commit, Dirty = "1.2.3", "abc123", "true"

	info := Get()
	if info.Version != "1.2.3" || info.Commit != "abc123" || !info.Dirty {
		t.Errorf("unexpected info: %+v", info)
	}
	if got := String(); got != "1.2.3-dirty" {
		t.Errorf("String() = %q", got)
	}
	if full := Full(); !strings.HasPrefix(full, "homescrape 1.2.3-dirty\n") || !strings.Contains(full, "abc123") {
		t.Errorf("Full() = %q", full)
	}
}

func TestJSON(t *testing.T) {
	out, err := JSON()
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	var info Info
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("JSON() is not valid JSON: %v", err)
	}
	if info.GoVersion == "" || info.Platform == "" {
		t.Errorf("missing runtime fields: %+v", info)
	}
}
