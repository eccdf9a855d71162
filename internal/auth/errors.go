package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnauthorized — неверная пара логин/пароль, отсутствующие креды
	// или неподтверждённый текущий пароль при смене. Транспорт: 401.
	ErrUnauthorized = errors.New("invalid credentials")

	// ErrUserNotFound — субъект токена удалён после выпуска. Транспорт: 401/404.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidRefreshToken — refresh-токен не прошёл кодек
	// (формат, подпись, срок). Транспорт: 401.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrLoginTaken — логин уже занят другим пользователем. Транспорт: 400.
	ErrLoginTaken = errors.New("login already exists")
)

// Имена правил политики паролей — уходят клиенту как машиночитаемый список.
const (
	RuleMinLength   = "minlength"
	RuleUppercase   = "uppercase"
	RuleLowercase   = "lowercase"
	RuleNumber      = "number"
	RuleSpecialChar = "specialChar"
)

// WeakPasswordError перечисляет все нарушенные правила разом,
// а не только первое. Транспорт: 400.
type WeakPasswordError struct {
	Rules []string
}

func (e *WeakPasswordError) Error() string {
	return fmt.Sprintf("password is too weak: %s", strings.Join(e.Rules, ", "))
}
