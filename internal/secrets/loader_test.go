package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, nil, 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	t.Setenv("RESUME_MATCHER_TEST_KEY", " from-env ")

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{
			name: "file wins",
			src:  Source{Name: "api key", File: keyFile, Value: "inline", Env: "RESUME_MATCHER_TEST_KEY"},
			want: "from-file",
		},
		{
			name: "value before env",
			src:  Source{Name: "api key", Value: " inline ", Env: "RESUME_MATCHER_TEST_KEY"},
			want: "inline",
		},
		{
			name: "env fallback",
			src:  Source{Name: "api key", Env: "RESUME_MATCHER_TEST_KEY"},
			want: "from-env",
		},
		{
			name:    "empty file",
			src:     Source{Name: "api key", File: emptyFile},
			wantErr: "is empty",
		},
		{
			name:    "missing file",
			src:     Source{Name: "api key", File: filepath.Join(dir, "nope")},
			wantErr: "reading api key",
		},
		{
			name:    "nothing configured",
			src:     Source{},
			wantErr: "secret is not configured",
		},
		{
			name:    "unset env",
			src:     Source{Name: "api key", Env: "RESUME_MATCHER_TEST_UNSET"},
			wantErr: "$RESUME_MATCHER_TEST_UNSET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
