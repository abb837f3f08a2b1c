package storage

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const maxLineSize = 1 << 20

// FileStore keeps each set in its own JSONL file under a directory. A set is
// replaced by writing a temp file and renaming it over the previous one.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("store path is required")
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the file backing key.
func (s *FileStore) Path(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(key)
	return filepath.Join(s.dir, name+".jsonl")
}

// ReplaceSet writes members one per line. Members must not contain newlines.
func (s *FileStore) ReplaceSet(ctx context.Context, key string, members []string) error {
	if key == "" {
		return fmt.Errorf("set key is required")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(key)
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create set file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			file.Close()
			os.Remove(tmp)
		}
	}()

	writer := bufio.NewWriter(file)
	for _, member := range uniqueMembers(members) {
		if strings.ContainsAny(member, "\r\n") {
			return fmt.Errorf("set member contains a newline")
		}
		if _, err := writer.WriteString(member); err != nil {
			return fmt.Errorf("write set member: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush set file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close set file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename set file: %w", err)
	}
	committed = true
	return nil
}

// SetMembers returns the members of key, or none when the set was never written.
func (s *FileStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("open set file: %w", err)
	}
	defer file.Close()

	members := make([]string, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		members = append(members, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read set file: %w", err)
	}
	return members, nil
}
