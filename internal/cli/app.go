// cli — команды expensectl поверх session.Session и api.API.
//
// Каждая команда, кроме login/register/logout, сначала восстанавливает
// сессию (Bootstrap) и отказывается работать без входа.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/pribylovaa/go-expense-tracker/internal/api"
	apierrors "github.com/pribylovaa/go-expense-tracker/internal/errors"
	"github.com/pribylovaa/go-expense-tracker/internal/session"
)

// Коды выхода.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// NotLoggedIn — сообщение для команд, требующих входа.
const NotLoggedIn = "Not logged in. Run `expensectl login` first."

var errUsage = errors.New("usage")

type command struct {
	name  string
	usage string
	auth  bool
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = []command{
	{name: "login", usage: "login -email E [-password P]", run: (*App).login},
	{name: "register", usage: "register -email E -name N [-password P]", run: (*App).register},
	{name: "logout", usage: "logout", run: (*App).logout},
	{name: "whoami", usage: "whoami", auth: true, run: (*App).whoami},
	{name: "groups", usage: "groups list | create -name N | show -group G", auth: true, run: (*App).groups},
	{name: "members", usage: "members add|promote|remove -group G -user U", auth: true, run: (*App).members},
	{name: "expenses", usage: "expenses list -group G [-page N -limit N -asc] | add -group G -title T -amount A -category C [-date D -desc S]", auth: true, run: (*App).expenses},
	{name: "categories", usage: "categories list -group G | add -group G -name N", auth: true, run: (*App).categories},
	{name: "stats", usage: "stats -group G [-period all|year|month -year Y -month M]", auth: true, run: (*App).stats},
}

// App — состояние одного запуска CLI.
type App struct {
	session *session.Session
	api     *api.API
	nav     *Navigator

	in  *bufio.Reader
	out io.Writer
	err io.Writer
}

func New(sess *session.Session, a *api.API, nav *Navigator, in io.Reader, out, errOut io.Writer) *App {
	return &App{
		session: sess,
		api:     a,
		nav:     nav,
		in:      bufio.NewReader(in),
		out:     out,
		err:     errOut,
	}
}

// Run выполняет команду args[0] и возвращает код выхода.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		a.usage()
		return ExitUsage
	}

	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		a.usage()
		return ExitOK
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(a.err, "unknown command %q\n\n", name)
		a.usage()
		return ExitUsage
	}

	a.nav.SetCommand(name)

	if cmd.auth {
		if code, ok := a.requireSession(ctx); !ok {
			return code
		}
	}

	err := cmd.run(a, ctx, args[1:])
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, flag.ErrHelp):
		return ExitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(a.err, "usage: expensectl %s\n", cmd.usage)
		return ExitUsage
	}

	a.fail(err)
	return ExitError
}

func (a *App) requireSession(ctx context.Context) (int, bool) {
	if err := a.session.Bootstrap(ctx); err != nil {
		a.fail(err)
		return ExitError, false
	}

	if !a.session.IsAuthenticated() {
		fmt.Fprintln(a.err, NotLoggedIn)
		return ExitError, false
	}

	return ExitOK, true
}

// fail печатает сообщение для пользователя. Если сессия истекла и навигатор
// уже вывел подсказку, повторно ничего не пишем.
func (a *App) fail(err error) {
	if apierrors.Classify(err) == apierrors.KindUnauthenticated && a.nav.Redirected() {
		return
	}

	fmt.Fprintln(a.err, "error:", apierrors.Message(err))
}

func (a *App) usage() {
	fmt.Fprintln(a.err, "usage: expensectl [--config PATH] <command> [flags]")
	fmt.Fprintln(a.err)
	fmt.Fprintln(a.err, "commands:")
	for _, c := range commands {
		fmt.Fprintf(a.err, "  %s\n", c.usage)
	}
}

// flags — FlagSet подкоманды, пишущий ошибки в stderr приложения.
func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.err)
	return fs
}

// sub отделяет имя подкоманды ("list", "add", ...) от её флагов.
func sub(args []string) (string, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", nil, errUsage
	}

	return args[0], args[1:], nil
}

// prompt читает строку из stdin, если значение не передано флагом.
func (a *App) prompt(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}

	fmt.Fprintf(a.err, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
