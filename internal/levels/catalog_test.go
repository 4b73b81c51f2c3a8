package levels

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

const testSketch = "void setup() {\\n  pinMode(13, OUTPUT);\\n}\\nvoid loop() {\\n  digitalWrite(13, HIGH);\\n  delay(1000);\\n  digitalWrite(13, LOW);\\n  delay(1000);\\n}\\n"

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func testCatalogDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, dir, "index.yaml", `course: Test Course
levels:
  - id: blink
    file: blink
    order: 1
`)
	writeFile(t, dir, "blink.json", `{
  "id": "blink",
  "name": "Blink",
  "description": "Blink the built-in LED.",
  "difficulty": 1,
  "target_sketch": "`+testSketch+`",
  "tolerance_ms": 50
}`)
	return dir
}

func TestCatalogLoadsIndex(t *testing.T) {
	dir := testCatalogDir(t)

	catalog, err := NewCatalog([]string{dir}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	if catalog.Count() != 1 {
		t.Errorf("Count = %d, want 1", catalog.Count())
	}

	level, err := catalog.Get("blink")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if level.Name != "Blink" || level.ToleranceMs != 50 {
		t.Errorf("level = %+v", level)
	}
	if level.TargetSketch == "" {
		t.Error("target sketch missing")
	}

	list := catalog.List()
	if len(list) != 1 || list[0].ID != "blink" {
		t.Errorf("List = %+v", list)
	}
}

func TestCatalogGetUnknown(t *testing.T) {
	catalog, err := NewCatalog([]string{testCatalogDir(t)}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	if _, err := catalog.Get("no-such-level"); err == nil {
		t.Error("expected not-found error")
	}
}

func TestCatalogMissingIndex(t *testing.T) {
	if _, err := NewCatalog([]string{t.TempDir()}, zap.NewNop()); err == nil {
		t.Error("expected missing-index error")
	}
}

func TestCatalogDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.yaml", `course: Dup
levels:
  - id: blink
    file: blink
  - id: blink
    file: blink
`)

	if _, err := NewCatalog([]string{dir}, zap.NewNop()); err == nil {
		t.Error("expected duplicate-id error")
	}
}

func TestLoaderRejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing target sketch", `{"id": "x", "name": "X"}`},
		{"unknown property", `{"id": "x", "name": "X", "target_sketch": "void loop() {}", "answer": 42}`},
		{"bad id", `{"id": "Not Valid!", "name": "X", "target_sketch": "void loop() {}"}`},
		{"tolerance out of range", `{"id": "x", "name": "X", "target_sketch": "void loop() {}", "tolerance_ms": 5000}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "x.json", tt.content)

			loader, err := NewLoader([]string{dir})
			if err != nil {
				t.Fatalf("NewLoader failed: %v", err)
			}
			if _, err := loader.Load("x"); err == nil {
				t.Error("invalid definition loaded")
			}
		})
	}
}

func TestCatalogAdd(t *testing.T) {
	dir := testCatalogDir(t)

	catalog, err := NewCatalog([]string{dir}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	added := &Level{
		ID:           "steady",
		Name:         "Steady On",
		TargetSketch: "void setup() {\n  pinMode(13, OUTPUT);\n  digitalWrite(13, HIGH);\n}\nvoid loop() {\n}\n",
	}
	if err := catalog.Add(added); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if catalog.Count() != 2 {
		t.Errorf("Count = %d, want 2", catalog.Count())
	}
	got, err := catalog.Get("steady")
	if err != nil {
		t.Fatalf("Get after Add failed: %v", err)
	}
	if got.Name != "Steady On" {
		t.Errorf("level = %+v", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "steady.json")); err != nil {
		t.Errorf("level file not written: %v", err)
	}

	if err := catalog.Add(added); err == nil {
		t.Error("duplicate Add should fail")
	}
}

func TestPublicView(t *testing.T) {
	level := &Level{
		ID:           "blink",
		Name:         "Blink",
		Description:  "desc",
		Difficulty:   2,
		TargetSketch: "void loop() {}",
		Hints:        []string{"use delay"},
	}

	pub := level.Public()
	if pub.ID != "blink" || pub.Name != "Blink" || pub.Difficulty != 2 {
		t.Errorf("public = %+v", pub)
	}
	if len(pub.Hints) != 1 {
		t.Errorf("hints = %v", pub.Hints)
	}
}
