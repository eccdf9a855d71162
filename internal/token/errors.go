package token

import "errors"

// Ошибки кодека — строго типизированные, чтобы обработчики и клиент
// различали причину отказа по виду ошибки, а не по тексту сообщения.
var (
	// ErrInvalidFormat — токен не состоит из трёх непустых сегментов
	// или сегмент не декодируется (base64url / JSON).
	ErrInvalidFormat = errors.New("invalid token format")

	// ErrInvalidSignature — HMAC не сошёлся с сегментом подписи.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrMissingClaim — в payload нет обязательного клейма id.
	ErrMissingClaim = errors.New("missing required claim: id")

	// ErrExpired — exp присутствует и exp <= now.
	ErrExpired = errors.New("token expired")
)
