// Package state provides checkpoint and result persistence backends.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/uxray-ai/uxray/internal/core"
)

// JSONStore implements core.Store with one JSON file per key. Writes go
// through an atomic rename so a crash mid-write never leaves a corrupt
// checkpoint behind.
type JSONStore struct {
	mu             sync.RWMutex
	checkpointsDir string
	resultsDir     string
}

// NewJSONStore creates a JSON store rooted at the given directory.
func NewJSONStore(baseDir string) (*JSONStore, error) {
	s := &JSONStore{
		checkpointsDir: filepath.Join(baseDir, "checkpoints"),
		resultsDir:     filepath.Join(baseDir, "results"),
	}
	for _, dir := range []string{s.checkpointsDir, s.resultsDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}
	return s, nil
}

func (s *JSONStore) checkpointPath(key string) string {
	return filepath.Join(s.checkpointsDir, key+".json")
}

func (s *JSONStore) resultPath(key string) string {
	return filepath.Join(s.resultsDir, key+".json")
}

// SaveCheckpoint upserts a checkpoint under its request key.
func (s *JSONStore) SaveCheckpoint(ctx context.Context, cp *core.PipelineCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.checkpointPath(cp.RequestKey), cp)
}

// LoadCheckpoint retrieves a checkpoint, or nil when none exists.
func (s *JSONStore) LoadCheckpoint(ctx context.Context, requestKey string) (*core.PipelineCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cp core.PipelineCheckpoint
	ok, err := readJSON(s.checkpointPath(requestKey), &cp)
	if err != nil || !ok {
		return nil, err
	}
	return &cp, nil
}

// DeleteCheckpoint removes a checkpoint file.
func (s *JSONStore) DeleteCheckpoint(ctx context.Context, requestKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.checkpointPath(requestKey)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing checkpoint file: %w", err)
	}
	return nil
}

// SaveResult upserts a final result under its request key.
func (s *JSONStore) SaveResult(ctx context.Context, result *core.PipelineResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.resultPath(result.RequestKey), result)
}

// LoadResult retrieves a final result, or nil when none exists.
func (s *JSONStore) LoadResult(ctx context.Context, requestKey string) (*core.PipelineResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result core.PipelineResult
	ok, err := readJSON(s.resultPath(requestKey), &result)
	if err != nil || !ok {
		return nil, err
	}
	return &result, nil
}

// Close is a no-op for the JSON store but satisfies Closeable.
func (s *JSONStore) Close() error { return nil }

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state file: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

// readJSON reads and decodes one state file. A malformed file surfaces as
// a store corruption error rather than a silent miss.
func readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading state file: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, core.ErrState(core.CodeStoreCorrupted, "state file is not valid JSON").WithCause(err).WithDetail("path", path)
	}
	return true, nil
}
