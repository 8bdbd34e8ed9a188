// Package stub renders solution skeletons for new tasks from a text/template.
package stub

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/template"

	arenabridge "github.com/Paranoid-AF/arenabridge"
	defaults "github.com/Paranoid-AF/arenabridge/default"
)

// Data holds the values passed to the stub template.
type Data struct {
	Package   string
	ClassName string
	FQN       string
	Statement string
	Signature arenabridge.Signature
	Tests     []arenabridge.Test
}

var stubFuncs = template.FuncMap{
	"params": func(args []arenabridge.Argument) string {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.Type + " " + a.Name
		}
		return strings.Join(parts, ", ")
	},
	"zero": zeroValue,
	"comment": func(s string) string {
		lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
		for i, l := range lines {
			lines[i] = strings.TrimRight(" * "+strings.ReplaceAll(l, "*/", "* /"), " ")
		}
		return strings.Join(lines, "\n")
	},
	"join": func(items []string, sep string) string {
		return strings.Join(items, sep)
	},
}

// zeroValue returns a Java literal usable as a placeholder return value.
func zeroValue(typ string) string {
	switch typ {
	case "void":
		return ""
	case "int", "long", "short", "byte":
		return "0"
	case "double", "float":
		return "0.0"
	case "boolean":
		return "false"
	case "char":
		return "'\\0'"
	case "String":
		return `""`
	}
	return "null"
}

// Generator renders stubs. The zero value uses the built-in template.
type Generator struct {
	tmpl *template.Template
}

// New parses src as the stub template. An empty src selects the built-in template.
func New(src string) (*Generator, error) {
	if src == "" {
		src = defaults.DefaultStubTemplate
	}
	t, err := template.New("stub").Funcs(stubFuncs).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse stub template: %w", err)
	}
	return &Generator{tmpl: t}, nil
}

// Load reads a custom template from path, falling back to the built-in one
// when path is empty, unreadable or fails to parse.
func Load(path string) *Generator {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("failed to read stub template, using built-in default", "path", path, "error", err)
		} else if g, err := New(string(data)); err != nil {
			slog.Warn("failed to parse stub template, using built-in default", "path", path, "error", err)
		} else {
			slog.Info("loaded custom stub template", "path", path)
			return g
		}
	}
	g, err := New("")
	if err != nil {
		panic("arenabridge: invalid embedded stub template: " + err.Error())
	}
	return g
}

// Generate renders the stub for task as class fqn.
func (g *Generator) Generate(task *arenabridge.TaskRecord, fqn string) (string, error) {
	tmpl := g.tmpl
	if tmpl == nil {
		tmpl = Load("").tmpl
	}
	pkg, class := splitFQN(fqn)
	if class == "" {
		class = task.Name
	}
	data := Data{
		Package:   pkg,
		ClassName: class,
		FQN:       fqn,
		Statement: task.Statement,
		Signature: task.Signature,
		Tests:     task.Tests,
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render stub for %s: %w", fqn, err)
	}
	return buf.String(), nil
}

func splitFQN(fqn string) (pkg, class string) {
	i := strings.LastIndexByte(fqn, '.')
	if i < 0 {
		return "", fqn
	}
	return fqn[:i], fqn[i+1:]
}
