package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingLauncher(command string) (*Launcher, *[][]string) {
	var calls [][]string
	l := NewLauncher(command)
	l.start = func(_ context.Context, argv []string) error {
		calls = append(calls, argv)
		return nil
	}
	return l, &calls
}

func TestOpenForEditingExpandsVariables(t *testing.T) {
	t.Setenv("EDITOR_FLAGS", "--reuse-window")
	l, calls := recordingLauncher(`code $EDITOR_FLAGS -g "$FILE" --class=$FQN`)

	err := l.OpenForEditing(context.Background(), "tasks.Bar", "/work/src/tasks/Bar.java")
	require.NoError(t, err)
	require.Len(t, *calls, 1)
	assert.Equal(t, []string{"code", "--reuse-window", "-g", "/work/src/tasks/Bar.java", "--class=tasks.Bar"}, (*calls)[0])
}

func TestOpenForEditingKeepsSpacesInPath(t *testing.T) {
	l, calls := recordingLauncher(`idea "$FILE"`)

	require.NoError(t, l.OpenForEditing(context.Background(), "Bar", "/my work/Bar.java"))
	assert.Equal(t, []string{"idea", "/my work/Bar.java"}, (*calls)[0])
}

func TestOpenForEditingEmptyCommandOnlyLogs(t *testing.T) {
	l, calls := recordingLauncher("")
	require.NoError(t, l.OpenForEditing(context.Background(), "Bar", "/tmp/Bar.java"))
	assert.Empty(t, *calls)
}

func TestOpenForEditingBadCommand(t *testing.T) {
	l, calls := recordingLauncher(`code "unterminated`)
	assert.Error(t, l.OpenForEditing(context.Background(), "Bar", "/tmp/Bar.java"))
	assert.Empty(t, *calls)
}

func TestOpenForEditingStartFailure(t *testing.T) {
	l := NewLauncher("code $FILE")
	l.start = func(context.Context, []string) error { return errors.New("not found") }
	assert.Error(t, l.OpenForEditing(context.Background(), "Bar", "/tmp/Bar.java"))
}
