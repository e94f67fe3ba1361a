package dependencies

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/michaelciraci/ui-test/internal/config"
)

func TestBuildWithNoManifestPathIsNoOp(t *testing.T) {
	art, err := Build(context.Background(), config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(art.SearchDirs) != 0 || len(art.Externs) != 0 {
		t.Errorf("expected a zero-value Artifacts, got %+v", art)
	}
}

func TestParseBuildMessagesCollectsLinkableArtifacts(t *testing.T) {
	stream := `{"reason":"compiler-artifact","target":{"name":"helper"},"filenames":["/tgt/debug/libhelper.rlib","/tgt/debug/helper.d"]}
{"reason":"build-script-executed"}
not json at all
{"reason":"compiler-artifact","target":{"name":"other"},"filenames":["/tgt/debug/libother.so"]}
`
	art := parseBuildMessages([]byte(stream))
	if art.Externs["helper"] != "/tgt/debug/libhelper.rlib" {
		t.Errorf("Externs[helper] = %q", art.Externs["helper"])
	}
	if art.Externs["other"] != "/tgt/debug/libother.so" {
		t.Errorf("Externs[other] = %q", art.Externs["other"])
	}
	if len(art.SearchDirs) != 1 || art.SearchDirs[0] != "/tgt/debug" {
		t.Errorf("SearchDirs = %v, want a single deduplicated /tgt/debug", art.SearchDirs)
	}
}

func TestParseBuildMessagesIgnoresNonArtifactReasons(t *testing.T) {
	art := parseBuildMessages([]byte(`{"reason":"compiler-message","message":"ignore me"}`))
	if len(art.Externs) != 0 || len(art.SearchDirs) != 0 {
		t.Errorf("expected nothing collected, got %+v", art)
	}
}

func TestIsLinkable(t *testing.T) {
	cases := map[string]bool{
		"libfoo.rlib": true, "libfoo.so": true, "libfoo.a": true,
		"foo.dylib": true, "foo.dll": true, "foo.d": false, "foo": false,
	}
	for path, want := range cases {
		if got := isLinkable(path); got != want {
			t.Errorf("isLinkable(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestBuildRunsBuilderAndParsesItsOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake builder script requires a POSIX shell")
	}
	dir := t.TempDir()
	manifest := filepath.Join(dir, "Cargo.toml")
	if err := os.WriteFile(manifest, []byte("[package]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "fake-cargo.sh")
	body := "#!/bin/sh\necho '{\"reason\":\"compiler-artifact\",\"target\":{\"name\":\"helper\"},\"filenames\":[\"" +
		filepath.Join(dir, "libhelper.rlib") + "\"]}'\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{ManifestPath: manifest, Dependencies: &config.DependencyBuilder{Program: script}}
	art, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Externs["helper"] != filepath.Join(dir, "libhelper.rlib") {
		t.Errorf("Externs[helper] = %q", art.Externs["helper"])
	}
}
