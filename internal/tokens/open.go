package tokens

import (
	"context"
	"fmt"
	"io"

	"github.com/pribylovaa/go-expense-tracker/internal/config"
)

// Поддерживаемые бэкенды хранилища.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open создаёт хранилище по конфигурации. Возвращённый io.Closer нужно
// закрыть при завершении процесса (для memory/file/none это no-op).
func Open(ctx context.Context, cfg config.TokensConfig) (Store, io.Closer, error) {
	const op = "tokens.Open"

	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryStore(), nopCloser{}, nil

	case BackendFile, "":
		path := cfg.FilePath
		if path == "" {
			p, err := DefaultFilePath()
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", op, err)
			}
			path = p
		}

		return NewFileStore(path), nopCloser{}, nil

	case BackendRedis:
		rs, err := OpenRedis(ctx, cfg.RedisURL, cfg.RedisPrefix, cfg.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}

		return rs, rs, nil

	case BackendNone:
		return Disabled{}, nopCloser{}, nil

	default:
		return nil, nil, fmt.Errorf("%s: unknown backend %q", op, cfg.Backend)
	}
}
