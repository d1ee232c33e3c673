package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// fileSlots — формат файла: два независимых слота с фиксированными именами.
type fileSlots struct {
	Access  string `json:"access_token,omitempty"`
	Refresh string `json:"refresh_token,omitempty"`
}

// FileStore хранит токены в JSON-файле с правами 0600.
// Запись атомарна: временный файл в том же каталоге + rename.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore создаёт хранилище по пути path. Каталог создаётся при первой записи.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultFilePath — <UserConfigDir>/expense-tracker/tokens.json.
func DefaultFilePath() (string, error) {
	const op = "tokens.DefaultFilePath"

	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return filepath.Join(dir, "expense-tracker", "tokens.json"), nil
}

// Path — путь к файлу токенов.
func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Set(_ context.Context, access, refresh string) error {
	const op = "tokens.FileStore.Set"

	if err := checkPair(access, refresh); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.write(fileSlots{Access: access, Refresh: refresh}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *FileStore) SetAccess(_ context.Context, access string) error {
	const op = "tokens.FileStore.SetAccess"

	if access == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyToken)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	slots, err := f.read()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if slots.Refresh == "" {
		return fmt.Errorf("%s: %w", op, ErrNoRefresh)
	}

	slots.Access = access
	if err := f.write(slots); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *FileStore) Clear(context.Context) error {
	const op = "tokens.FileStore.Clear"

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *FileStore) Access(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	slots, err := f.read()
	if err != nil {
		return "", fmt.Errorf("tokens.FileStore.Access: %w", err)
	}

	return slots.Access, nil
}

func (f *FileStore) Refresh(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	slots, err := f.read()
	if err != nil {
		return "", fmt.Errorf("tokens.FileStore.Refresh: %w", err)
	}

	return slots.Refresh, nil
}

// read: отсутствующий файл — пустые слоты.
func (f *FileStore) read() (fileSlots, error) {
	var slots fileSlots

	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return slots, nil
	}
	if err != nil {
		return slots, err
	}

	if len(b) == 0 {
		return slots, nil
	}

	if err := json.Unmarshal(b, &slots); err != nil {
		return fileSlots{}, fmt.Errorf("decode %s: %w", f.path, err)
	}

	return slots, nil
}

func (f *FileStore) write(slots fileSlots) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	b, err := json.Marshal(slots)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, f.path)
}

var _ Store = (*FileStore)(nil)
