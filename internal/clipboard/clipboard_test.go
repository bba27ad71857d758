package clipboard

import (
	"context"
	"errors"
	"os/exec"
	"testing"
)

func withInstalled(t *testing.T, names ...string) {
	t.Helper()
	installed := make(map[string]bool)
	for _, n := range names {
		installed[n] = true
	}
	orig := lookPath
	lookPath = func(file string) (string, error) {
		if installed[file] {
			return "/usr/bin/" + file, nil
		}
		return "", exec.ErrNotFound
	}
	t.Cleanup(func() { lookPath = orig })
}

func TestFindPrefersFirstInstalled(t *testing.T) {
	tests := []struct {
		name      string
		goos      string
		installed []string
		want      string
	}{
		{"wayland first", "linux", []string{"xclip", "wl-copy"}, "wl-copy"},
		{"xclip over xsel", "linux", []string{"xsel", "xclip"}, "xclip"},
		{"xsel fallback", "linux", []string{"xsel"}, "xsel"},
		{"mac", "darwin", []string{"pbcopy"}, "pbcopy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withInstalled(t, tt.installed...)
			got, err := find(tt.goos)
			if err != nil {
				t.Fatalf("find(%q) error = %v", tt.goos, err)
			}
			if got.name != tt.want {
				t.Errorf("find(%q) = %q, want %q", tt.goos, got.name, tt.want)
			}
		})
	}
}

func TestFindUnavailable(t *testing.T) {
	withInstalled(t)
	for _, goos := range []string{"linux", "darwin", "plan9"} {
		if _, err := find(goos); !errors.Is(err, ErrClipboardUnavailable) {
			t.Errorf("find(%q) error = %v, want ErrClipboardUnavailable", goos, err)
		}
	}
}

func TestCopyUnavailable(t *testing.T) {
	withInstalled(t)
	if err := Copy(context.Background(), "Granovetter, M. (1973)."); !errors.Is(err, ErrClipboardUnavailable) {
		t.Errorf("Copy() error = %v, want ErrClipboardUnavailable", err)
	}
	if _, ok := Available(); ok {
		t.Error("Available() = true with no tools installed")
	}
}
