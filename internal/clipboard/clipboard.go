// Package clipboard copies formatted citations to the system clipboard
// through the platform's clipboard command.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when no clipboard command is installed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// tool is a clipboard command and the arguments that make it read stdin.
type tool struct {
	name string
	args []string
}

// candidates lists the tools tried for each OS, in order of preference.
var candidates = map[string][]tool{
	"darwin": {{name: "pbcopy"}},
	"linux": {
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	},
	"windows": {{name: "clip.exe"}},
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// find returns the first installed tool for goos.
func find(goos string) (tool, error) {
	for _, t := range candidates[goos] {
		if _, err := lookPath(t.name); err == nil {
			return t, nil
		}
	}
	return tool{}, fmt.Errorf("%w on %s", ErrClipboardUnavailable, goos)
}

// Available returns the name of the clipboard command that Copy would use.
func Available() (string, bool) {
	t, err := find(runtime.GOOS)
	return t.name, err == nil
}

// Copy places text on the clipboard.
func Copy(ctx context.Context, text string) error {
	t, err := find(runtime.GOOS)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, t.name, t.args...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", t.name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
