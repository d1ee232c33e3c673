// redact маскирует чувствительные данные перед записью в лог:
// e-mail пользователя, bearer-токены и пароли.
package redact

import "strings"

// Email оставляет первые две руны локальной части и домен целиком.
//
//	"user@example.com" -> "us***@example.com"
//	"ab@ex.com"        -> "***@ex.com"
//	"broken"           -> "***"
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := []rune(s[:i]), s[i+1:]

	if len(local) > 2 {
		return string(local[:2]) + "***@" + domain
	}

	return "***@" + domain
}

// minTokenTail — токены короче этого порога не раскрываются даже частично.
const minTokenTail = 16

// Token прячет токен, оставляя последние 4 символа для сопоставления записей.
// Пустой токен отображается как "-".
func Token(tok string) string {
	switch {
	case tok == "":
		return "-"
	case len(tok) < minTokenTail:
		return "[REDACTED_TOKEN]"
	default:
		return "[REDACTED_TOKEN]…" + tok[len(tok)-4:]
	}
}

// Password всегда возвращает заглушку.
func Password() string { return "[REDACTED_PASSWORD]" }
