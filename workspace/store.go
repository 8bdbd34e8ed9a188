package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	arenabridge "github.com/Paranoid-AF/arenabridge"
)

// TaskStore persists task configurations as <name>.<taskExt> JSON files in
// the project's default directory, keyed by fully-qualified name.
type TaskStore struct {
	project *Project

	mu    sync.RWMutex
	byFQN map[string]string // fqn -> task file path
}

// NewTaskStore creates a store and indexes task files already on disk.
func NewTaskStore(p *Project) *TaskStore {
	s := &TaskStore{project: p, byFQN: make(map[string]string)}
	s.scan()
	return s
}

func (s *TaskStore) scan() {
	pattern := filepath.Join(s.project.DefaultDir(), "*."+s.project.Settings().TaskExt)
	matches, _ := filepath.Glob(pattern)
	for _, path := range matches {
		task, err := readTaskFile(path)
		if err != nil || task.FQN == "" {
			continue
		}
		s.byFQN[task.FQN] = path
	}
}

// Persist writes the task configuration for fqn.
func (s *TaskStore) Persist(task *arenabridge.TaskRecord, fqn string) error {
	path, ok := childPath(s.project.DefaultDir(), s.project.TaskFileName(task.Name))
	if !ok {
		return fmt.Errorf("invalid task name %q", task.Name)
	}
	data, err := json.MarshalIndent(task.WithFQN(fqn), "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, append(data, '\n')); err != nil {
		return fmt.Errorf("write task file: %w", err)
	}

	s.mu.Lock()
	s.byFQN[fqn] = path
	s.mu.Unlock()
	return nil
}

// FQNs returns the fully-qualified names of all stored tasks, sorted.
func (s *TaskStore) FQNs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byFQN))
	for fqn := range s.byFQN {
		out = append(out, fqn)
	}
	sort.Strings(out)
	return out
}

func readTaskFile(path string) (*arenabridge.TaskRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var task arenabridge.TaskRecord
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &task, nil
}
