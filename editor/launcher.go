package editor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"mvdan.cc/sh/v3/shell"
)

// Launcher opens generated files in the user's editor by running a
// configured command line. $FILE expands to the file path and $FQN to the
// class name; other variables come from the environment.
type Launcher struct {
	command string
	start   func(ctx context.Context, argv []string) error
}

// NewLauncher creates a launcher for command. An empty command only logs.
func NewLauncher(command string) *Launcher {
	return &Launcher{command: command, start: startDetached}
}

// OpenForEditing opens path, the source of class fqn.
func (l *Launcher) OpenForEditing(ctx context.Context, fqn, path string) error {
	if l.command == "" {
		slog.Info("task ready", "fqn", fqn, "file", path)
		return nil
	}
	argv, err := l.argv(fqn, path)
	if err != nil {
		return err
	}
	slog.Debug("opening file", "fqn", fqn, "argv", argv)
	if err := l.start(ctx, argv); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	return nil
}

func (l *Launcher) argv(fqn, path string) ([]string, error) {
	argv, err := shell.Fields(l.command, func(name string) string {
		switch name {
		case "FILE":
			return path
		case "FQN":
			return fqn
		}
		return os.Getenv(name)
	})
	if err != nil {
		return nil, fmt.Errorf("parse open command %q: %w", l.command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("open command %q is empty", l.command)
	}
	return argv, nil
}

// startDetached starts the editor and reaps it in the background.
func startDetached(_ context.Context, argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			slog.Warn("editor command exited with error", "argv", argv, "error", err)
		}
	}()
	return nil
}
