package peer

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"

	arenabridge "github.com/Paranoid-AF/arenabridge"
)

type taskFile struct {
	Name        string `toml:"name"`
	Statement   string `toml:"statement"`
	PackageHint string `toml:"package_hint"`
	Signature   struct {
		MethodName string `toml:"method_name"`
		ReturnType string `toml:"return_type"`
		Arguments  []struct {
			Type string `toml:"type"`
			Name string `toml:"name"`
		} `toml:"arguments"`
	} `toml:"signature"`
	Tests []struct {
		Arguments []string `toml:"arguments"`
		Answer    string   `toml:"answer"`
	} `toml:"tests"`
}

// LoadTaskFile reads a task record from a TOML file.
func LoadTaskFile(path string) (*arenabridge.TaskRecord, error) {
	var f taskFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
	}

	task := &arenabridge.TaskRecord{
		Name:        f.Name,
		Statement:   f.Statement,
		PackageHint: f.PackageHint,
		Signature: arenabridge.Signature{
			MethodName: f.Signature.MethodName,
			ReturnType: f.Signature.ReturnType,
			Arguments:  make([]arenabridge.Argument, 0, len(f.Signature.Arguments)),
		},
		Tests: make([]arenabridge.Test, 0, len(f.Tests)),
	}
	for _, a := range f.Signature.Arguments {
		task.Signature.Arguments = append(task.Signature.Arguments, arenabridge.Argument{Type: a.Type, Name: a.Name})
	}
	for _, tc := range f.Tests {
		task.Tests = append(task.Tests, arenabridge.Test{Arguments: tc.Arguments, Answer: tc.Answer})
	}
	return task, nil
}

// Result is one exchange as printed by the peer tool.
type Result struct {
	Command string `toml:"command"`
	Task    string `toml:"task"`
	Status  string `toml:"status"`
	Source  string `toml:"source,omitempty"`
}

// WriteResult writes r to w as a TOML document.
func WriteResult(w io.Writer, r Result) error {
	return toml.NewEncoder(w).Encode(r)
}
