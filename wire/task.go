package wire

import (
	arenabridge "github.com/Paranoid-AF/arenabridge"
)

const (
	maxArguments = 256
	maxTests     = 4096
)

// Task records are sent as the string sequence:
//
//	name, statement, method name, return type,
//	argument count, (type, name) per argument,
//	test count, (argument values..., answer) per test,
//	package hint

// ReadTask decodes a task record. It does not validate the result.
func (r *Reader) ReadTask() (*arenabridge.TaskRecord, error) {
	var t arenabridge.TaskRecord
	var err error
	if t.Name, err = r.ReadString(); err != nil {
		return nil, err
	}
	if t.Statement, err = r.ReadString(); err != nil {
		return nil, err
	}
	if t.Signature.MethodName, err = r.ReadString(); err != nil {
		return nil, err
	}
	if t.Signature.ReturnType, err = r.ReadString(); err != nil {
		return nil, err
	}

	argc, err := r.ReadInt(maxArguments)
	if err != nil {
		return nil, err
	}
	t.Signature.Arguments = make([]arenabridge.Argument, argc)
	for i := range t.Signature.Arguments {
		arg := &t.Signature.Arguments[i]
		if arg.Type, err = r.ReadString(); err != nil {
			return nil, err
		}
		if arg.Name, err = r.ReadString(); err != nil {
			return nil, err
		}
	}

	testc, err := r.ReadInt(maxTests)
	if err != nil {
		return nil, err
	}
	t.Tests = make([]arenabridge.Test, testc)
	for i := range t.Tests {
		test := &t.Tests[i]
		test.Arguments = make([]string, argc)
		for j := range test.Arguments {
			if test.Arguments[j], err = r.ReadString(); err != nil {
				return nil, err
			}
		}
		if test.Answer, err = r.ReadString(); err != nil {
			return nil, err
		}
	}

	if t.PackageHint, err = r.ReadString(); err != nil {
		return nil, err
	}
	return &t, nil
}

// WriteTask encodes a task record in the order ReadTask expects.
// Test argument lists are padded or cut to the signature's arity, the only
// shape ReadTask can decode.
func (w *Writer) WriteTask(t *arenabridge.TaskRecord) error {
	fields := []string{t.Name, t.Statement, t.Signature.MethodName, t.Signature.ReturnType}
	for _, f := range fields {
		if err := w.WriteString(f); err != nil {
			return err
		}
	}
	if err := w.WriteInt(len(t.Signature.Arguments)); err != nil {
		return err
	}
	for _, arg := range t.Signature.Arguments {
		if err := w.WriteString(arg.Type); err != nil {
			return err
		}
		if err := w.WriteString(arg.Name); err != nil {
			return err
		}
	}
	if err := w.WriteInt(len(t.Tests)); err != nil {
		return err
	}
	for _, test := range t.Tests {
		for i := range t.Signature.Arguments {
			var v string
			if i < len(test.Arguments) {
				v = test.Arguments[i]
			}
			if err := w.WriteString(v); err != nil {
				return err
			}
		}
		if err := w.WriteString(test.Answer); err != nil {
			return err
		}
	}
	return w.WriteString(t.PackageHint)
}
