package platform_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/hearth/internal/platform"
)

func TestFindConfig(t *testing.T) {
	// /tmp/
	//   project/ (hearth.yaml)
	//     subdir/
	//       nested/
	//   empty/

	baseDir := t.TempDir()
	projectDir := filepath.Join(baseDir, "project")
	subDir := filepath.Join(projectDir, "subdir")
	nestedDir := filepath.Join(subDir, "nested")
	emptyDir := filepath.Join(baseDir, "empty")

	for _, dir := range []string{nestedDir, emptyDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}

	configPath := filepath.Join(projectDir, platform.ConfigFileName)
	if err := os.WriteFile(configPath, []byte("env: development\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		startPath string
		want      string
		wantErr   bool
	}{
		{name: "Start at Project", startPath: projectDir, want: configPath},
		{name: "Start in Subdir", startPath: subDir, want: configPath},
		{name: "Start Nested Deeply", startPath: nestedDir, want: configPath},
		{name: "No Config Found", startPath: emptyDir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := platform.FindConfig(tt.startPath)
			if tt.wantErr {
				// A hearth.yaml above the temp dir would be found legitimately.
				if err == nil && !strings.HasPrefix(got, baseDir) {
					t.Skipf("found unrelated config at %s", got)
				}
				if !errors.Is(err, platform.ErrConfigNotFound) {
					t.Errorf("expected ErrConfigNotFound, got %v (%q)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindConfig() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FindConfig() = %q; want %q", got, tt.want)
			}
		})
	}
}
