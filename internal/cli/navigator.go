package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// LoginHint — подсказка при истёкшей сессии.
const LoginHint = "Session expired. Run `expensectl login` to sign in again."

// Navigator — client.Navigator для терминала.
// Текущий «путь» — выполняемая команда ("/login", "/groups"),
// переход на страницу входа — подсказка в stderr (не больше одной за команду).
type Navigator struct {
	mu         sync.Mutex
	out        io.Writer
	path       string
	redirected bool
}

func NewNavigator(out io.Writer) *Navigator {
	return &Navigator{out: out, path: "/"}
}

// SetCommand фиксирует команду и сбрасывает признак редиректа.
func (n *Navigator) SetCommand(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.path = "/" + name
	n.redirected = false
}

func (n *Navigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.path
}

func (n *Navigator) RedirectToLogin(context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.redirected {
		return
	}
	n.redirected = true

	fmt.Fprintln(n.out, LoginHint)
}

// Redirected сообщает, была ли подсказка уже выведена в рамках команды.
func (n *Navigator) Redirected() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.redirected
}
