package tokens

import "context"

// Disabled — хранилище для окружений без постоянного хранения
// (фоновые задачи, серверный рендеринг). Все операции — no-op:
// чтение возвращает отсутствие, запись молча игнорируется, ошибок нет.
type Disabled struct{}

func (Disabled) Set(context.Context, string, string) error { return nil }
func (Disabled) SetAccess(context.Context, string) error   { return nil }
func (Disabled) Clear(context.Context) error               { return nil }
func (Disabled) Access(context.Context) (string, error)    { return "", nil }
func (Disabled) Refresh(context.Context) (string, error)   { return "", nil }

var _ Store = Disabled{}
