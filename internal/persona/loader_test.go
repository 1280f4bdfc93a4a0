package persona_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prathish132002/Live-Interview-App-sub000/internal/persona"
)

const backendYAML = `
id: backend-go
name: "Backend Go Interviewer"
voice: marin
instructions: |
  You conduct calm, rigorous backend engineering interviews. Ask one
  question at a time and follow up on vague answers.
terms:
  - PostgreSQL
  - load balancer
rubric_hints:
  - "Weigh concurrency reasoning heavily."
`

const minimalYAML = `
id: minimal
name: "Minimal"
instructions: "Interview the candidate."
`

func TestFromReader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantID    string
		wantVoice string
		wantTerms int
	}{
		{
			name:      "full persona",
			input:     backendYAML,
			wantID:    "backend-go",
			wantVoice: "marin",
			wantTerms: 2,
		},
		{
			name:   "minimal persona",
			input:  minimalYAML,
			wantID: "minimal",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p, err := persona.FromReader(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("FromReader: unexpected error: %v", err)
			}
			if p.ID != tc.wantID {
				t.Errorf("ID: expected %q, got %q", tc.wantID, p.ID)
			}
			if p.Voice != tc.wantVoice {
				t.Errorf("Voice: expected %q, got %q", tc.wantVoice, p.Voice)
			}
			if len(p.Terms) != tc.wantTerms {
				t.Errorf("term count: expected %d, got %d", tc.wantTerms, len(p.Terms))
			}
		})
	}
}

func TestFromReader_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "completely invalid YAML",
			input: ":::not valid yaml:::",
		},
		{
			name:  "unknown key",
			input: "id: x\nname: y\ninstructions: z\nunknown_key: true\n",
		},
		{
			name:  "missing required fields",
			input: "id: x\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := persona.FromReader(strings.NewReader(tc.input))
			if err == nil {
				t.Fatal("FromReader: expected error for invalid input, got nil")
			}
		})
	}
}

// writePersonaFile writes content to name inside dir and fails the test on error.
func writePersonaFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writePersonaFile(t, dir, "backend.yaml", backendYAML)

	p, err := persona.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: unexpected error: %v", err)
	}
	if p.Name != "Backend Go Interviewer" {
		t.Errorf("Name: expected %q, got %q", "Backend Go Interviewer", p.Name)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := persona.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("LoadFile: expected error for missing file, got nil")
	}
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePersonaFile(t, dir, "backend.yaml", backendYAML)
	writePersonaFile(t, dir, "minimal.yml", minimalYAML)
	writePersonaFile(t, dir, "README.md", "not a persona")
	if err := os.Mkdir(filepath.Join(dir, "drafts"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	set, err := persona.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: unexpected error: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("Len: expected 2 personas, got %d", set.Len())
	}

	wantIDs := []string{"backend-go", "minimal"}
	gotIDs := set.IDs()
	if len(gotIDs) != len(wantIDs) {
		t.Fatalf("IDs: expected %v, got %v", wantIDs, gotIDs)
	}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Errorf("IDs[%d]: expected %q, got %q", i, wantIDs[i], gotIDs[i])
		}
	}

	p, ok := set.Get("backend-go")
	if !ok {
		t.Fatal("Get(backend-go): not found")
	}
	if p.Voice != "marin" {
		t.Errorf("Voice: expected %q, got %q", "marin", p.Voice)
	}
	if _, ok := set.Get("absent"); ok {
		t.Error("Get(absent): expected not found")
	}
}

// TestLoadDir_ReportsAllBrokenFiles verifies that every unparsable file is
// named in the returned error, not only the first one.
func TestLoadDir_ReportsAllBrokenFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePersonaFile(t, dir, "a.yaml", ":::bad:::")
	writePersonaFile(t, dir, "b.yaml", "id: x\n")

	_, err := persona.LoadDir(dir)
	if err == nil {
		t.Fatal("LoadDir: expected error for broken files, got nil")
	}
	for _, want := range []string{"a.yaml", "b.yaml"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("LoadDir error = %q, want substring %q", err, want)
		}
	}
}

func TestLoadDir_DuplicateID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writePersonaFile(t, dir, "one.yaml", minimalYAML)
	writePersonaFile(t, dir, "two.yaml", minimalYAML)

	_, err := persona.LoadDir(dir)
	if err == nil {
		t.Fatal("LoadDir: expected duplicate id error, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate persona id") {
		t.Errorf("LoadDir error = %q, want duplicate id message", err)
	}
}

func TestLoadDir_Missing(t *testing.T) {
	t.Parallel()

	_, err := persona.LoadDir(filepath.Join(t.TempDir(), "absent"))
	if err == nil {
		t.Fatal("LoadDir: expected error for missing directory, got nil")
	}
}

// TestNewSet_NilEntriesSkipped verifies nil personas do not panic or count.
func TestNewSet_NilEntriesSkipped(t *testing.T) {
	t.Parallel()

	set, err := persona.NewSet(nil, persona.Default(), nil)
	if err != nil {
		t.Fatalf("NewSet: unexpected error: %v", err)
	}
	if set.Len() != 1 {
		t.Errorf("Len: expected 1, got %d", set.Len())
	}
}
