// Package arenabridge defines the commands, statuses and task records
// exchanged between the contest arena client and the editor bridge.
// Every value travels as a length-prefixed UTF-8 string (see package wire).
package arenabridge

import (
	"errors"
	"fmt"
	"regexp"
)

// Command is the first string of every request.
type Command string

const (
	// GetSource asks for the text of an already generated task source.
	GetSource Command = "GET_SOURCE"
	// NewTask delivers a task record to be turned into a source stub.
	NewTask Command = "NEW_TASK"
)

// Valid reports whether c is one of the known commands.
func (c Command) Valid() bool {
	return c == GetSource || c == NewTask
}

// Status is the first string of every response.
type Status string

const (
	StatusOK             Status = "OK"
	StatusAlreadyDefined Status = "ALREADY_DEFINED"
	StatusOtherError     Status = "OTHER_ERROR"
)

// ErrIncompleteTask is returned by Validate for records missing required fields.
var ErrIncompleteTask = errors.New("incomplete task record")

// TaskRecord describes one contest problem as sent by the arena client.
type TaskRecord struct {
	// Name is the class name of the task; also used for file names.
	Name string `json:"name"`
	// Statement is free-form problem text or metadata. May be empty.
	Statement string `json:"statement,omitempty"`
	// Signature is the method the solution must implement.
	Signature Signature `json:"signature"`
	// Tests are the sample tests shipped with the problem.
	Tests []Test `json:"tests"`
	// PackageHint is the package the arena client would like the stub in.
	// The default directory's package takes precedence when it has one.
	PackageHint string `json:"package_hint,omitempty"`
	// FQN is the fully-qualified class name, set once the stub location is known.
	FQN string `json:"fqn,omitempty"`
}

// Signature is the solution method description.
type Signature struct {
	MethodName string     `json:"method_name"`
	ReturnType string     `json:"return_type"`
	Arguments  []Argument `json:"arguments"`
}

// Argument is one formal parameter of the solution method.
type Argument struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Test is one sample test: argument values in signature order and the expected answer.
type Test struct {
	Arguments []string `json:"arguments"`
	Answer    string   `json:"answer"`
}

var identifierRE = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// IsIdentifier reports whether s can be used as a class, method or package segment name.
func IsIdentifier(s string) bool {
	return identifierRE.MatchString(s)
}

// Validate checks that the record carries everything needed to generate a stub.
func (t *TaskRecord) Validate() error {
	if t == nil {
		return ErrIncompleteTask
	}
	if !IsIdentifier(t.Name) {
		return fmt.Errorf("%w: invalid name %q", ErrIncompleteTask, t.Name)
	}
	if !IsIdentifier(t.Signature.MethodName) {
		return fmt.Errorf("%w: invalid method name %q", ErrIncompleteTask, t.Signature.MethodName)
	}
	if t.Signature.ReturnType == "" {
		return fmt.Errorf("%w: missing return type", ErrIncompleteTask)
	}
	for i, arg := range t.Signature.Arguments {
		if arg.Type == "" || !IsIdentifier(arg.Name) {
			return fmt.Errorf("%w: argument %d is malformed", ErrIncompleteTask, i)
		}
	}
	for i, test := range t.Tests {
		if len(test.Arguments) != len(t.Signature.Arguments) {
			return fmt.Errorf("%w: test %d has %d arguments, want %d",
				ErrIncompleteTask, i, len(test.Arguments), len(t.Signature.Arguments))
		}
	}
	return nil
}

// WithFQN returns a copy of the record with FQN set.
func (t *TaskRecord) WithFQN(fqn string) *TaskRecord {
	cp := *t
	cp.FQN = fqn
	return &cp
}
