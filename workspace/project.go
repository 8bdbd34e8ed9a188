// Package workspace is the filesystem side of the bridge: per-project
// settings, source lookups in the output directory and stub placement in the
// default directory.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	arenabridge "github.com/Paranoid-AF/arenabridge"
)

// SettingsFile is the per-project settings file name, relative to the project root.
const SettingsFile = "arenabridge.toml"

// Settings are the per-project directory and naming settings.
type Settings struct {
	OutputDirectory  string `toml:"output_directory"`
	DefaultDirectory string `toml:"default_directory"`
	SourceRoot       string `toml:"source_root"`
	SourceExt        string `toml:"source_ext"`
	TaskExt          string `toml:"task_ext"`
	// StubTemplate optionally points to a text/template used instead of the built-in stub.
	StubTemplate string `toml:"stub_template"`
}

// DefaultSettings returns the settings used when a project has no settings file.
func DefaultSettings() Settings {
	return Settings{
		OutputDirectory:  "output",
		DefaultDirectory: filepath.Join("src", "tasks"),
		SourceRoot:       "src",
		SourceExt:        "java",
		TaskExt:          "tctask",
	}
}

// Project is one workspace the bridge serves.
type Project struct {
	root     string
	settings Settings
}

// LoadProject reads <root>/arenabridge.toml, falling back to defaults for a
// missing file or missing keys.
func LoadProject(root string) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", abs)
	}

	settings := DefaultSettings()
	path := filepath.Join(abs, SettingsFile)
	var fromFile Settings
	if _, err := toml.DecodeFile(path, &fromFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else {
		settings = mergeSettings(settings, fromFile)
	}
	return NewProject(abs, settings), nil
}

// NewProject builds a project from explicit settings.
func NewProject(root string, settings Settings) *Project {
	settings.SourceExt = strings.TrimPrefix(settings.SourceExt, ".")
	settings.TaskExt = strings.TrimPrefix(settings.TaskExt, ".")
	return &Project{root: filepath.Clean(root), settings: settings}
}

func mergeSettings(base, over Settings) Settings {
	if over.OutputDirectory != "" {
		base.OutputDirectory = over.OutputDirectory
	}
	if over.DefaultDirectory != "" {
		base.DefaultDirectory = over.DefaultDirectory
	}
	if over.SourceRoot != "" {
		base.SourceRoot = over.SourceRoot
	}
	if over.SourceExt != "" {
		base.SourceExt = over.SourceExt
	}
	if over.TaskExt != "" {
		base.TaskExt = over.TaskExt
	}
	if over.StubTemplate != "" {
		base.StubTemplate = over.StubTemplate
	}
	return base
}

// ID identifies the project in the server registry.
func (p *Project) ID() string { return p.root }

// Settings returns the effective settings.
func (p *Project) Settings() Settings { return p.settings }

func (p *Project) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(p.root, dir)
}

// OutputDir is where already built task sources are looked up.
func (p *Project) OutputDir() string { return p.resolve(p.settings.OutputDirectory) }

// DefaultDir is where new task stubs and task files are created.
func (p *Project) DefaultDir() string { return p.resolve(p.settings.DefaultDirectory) }

// SourceFileName returns "<name>.<sourceExt>".
func (p *Project) SourceFileName(name string) string { return name + "." + p.settings.SourceExt }

// TaskFileName returns "<name>.<taskExt>".
func (p *Project) TaskFileName(name string) string { return name + "." + p.settings.TaskExt }

// StubTemplatePath returns the custom stub template path, or "" for the built-in one.
func (p *Project) StubTemplatePath() string {
	if p.settings.StubTemplate == "" {
		return ""
	}
	return p.resolve(p.settings.StubTemplate)
}

// childPath joins dir and name, refusing names that leave dir.
func childPath(dir, name string) (string, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", false
	}
	return filepath.Join(dir, name), true
}

// FindSource returns the contents of <name>.<sourceExt> in the output directory.
// found is false when the file does not exist or the name is not a plain file name.
// Bytes that are not valid UTF-8 come back as U+FFFD.
func (p *Project) FindSource(name string) (text string, found bool, err error) {
	path, ok := childPath(p.OutputDir(), p.SourceFileName(name))
	if !ok {
		return "", false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), true, nil
}

// TaskDefined reports whether <name>.<taskExt> exists in the default directory.
func (p *Project) TaskDefined(name string) bool {
	path, ok := childPath(p.DefaultDir(), p.TaskFileName(name))
	if !ok {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDefaultDir creates the default directory if it is missing.
func (p *Project) EnsureDefaultDir() (string, error) {
	dir := p.DefaultDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create default directory: %w", err)
	}
	return dir, nil
}

// PackageName derives the package of the default directory from its path
// below the source root. Directories outside the source root, or with
// segments that are not identifiers, have no package.
func (p *Project) PackageName() string {
	rel, err := filepath.Rel(p.resolve(p.settings.SourceRoot), p.DefaultDir())
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for _, s := range segments {
		if !arenabridge.IsIdentifier(s) {
			return ""
		}
	}
	return strings.Join(segments, ".")
}

// WriteSource writes <name>.<sourceExt> into the default directory and returns its path.
func (p *Project) WriteSource(name, text string) (string, error) {
	path, ok := childPath(p.DefaultDir(), p.SourceFileName(name))
	if !ok {
		return "", fmt.Errorf("invalid source name %q", name)
	}
	if err := writeFileAtomic(path, []byte(text)); err != nil {
		return "", err
	}
	return path, nil
}

// writeFileAtomic writes data to a temp file in the same directory and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
