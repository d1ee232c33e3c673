package models

// TokenPair — пара токенов клиента.
//
// Описание:
//   - Access — короткоживущий bearer-токен, прикладывается к каждому запросу;
//   - Refresh — долгоживущий токен, обменивается на новый access.
//
// Оба значения непрозрачны: клиент не разбирает и не проверяет их содержимое.
type TokenPair struct {
	Access  string
	Refresh string
}

// Empty сообщает, что ни одного токена нет.
func (p TokenPair) Empty() bool { return p.Access == "" && p.Refresh == "" }
