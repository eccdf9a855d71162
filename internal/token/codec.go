// Package token реализует компактный подписанный формат токена:
// base64url(header) "." base64url(payload) "." base64url(HMAC-SHA256).
// Заголовок всегда {"alg":"HS256"}, без поля typ; base64url без паддинга.
// Формат зафиксирован на уровне провода — клиенты других платформ
// разбирают сегменты побайтово, поэтому кодек написан руками,
// а не поверх готовой JWT-библиотеки.
package token

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Payload — единственная допустимая форма клеймов.
// Любое другое поле в полезной нагрузке считается ошибкой формата.
type Payload struct {
	ID    string `json:"id"`
	Login string `json:"login,omitempty"`
	Exp   int64  `json:"exp,omitempty"`
}

type header struct {
	Alg string `json:"alg"`
}

// Codec подписывает и проверяет токены. Часы инъектируются,
// чтобы тесты могли двигать время вокруг границы exp.
type Codec struct {
	Now func() time.Time
}

func NewCodec() *Codec {
	return &Codec{Now: time.Now}
}

func (c *Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// ParseTTL разбирает строку времени жизни: целое число и необязательный
// суффикс единицы. Без суффикса и с "s" — секунды, "m" — минуты,
// "h" — часы, "d" — дни. Неизвестный суффикс трактуется как секунды.
func ParseTTL(spec string) (int64, error) {
	spec = strings.TrimSpace(spec)

	i := 0
	for i < len(spec) && spec[i] >= '0' && spec[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("invalid ttl %q: no leading digits", spec)
	}

	var value int64
	for _, ch := range spec[:i] {
		value = value*10 + int64(ch-'0')
	}

	switch spec[i:] {
	case "m":
		value *= 60
	case "h":
		value *= 3600
	case "d":
		value *= 86400
	}
	return value, nil
}

// Sign выставляет exp = now + ttl и собирает три сегмента.
// Подпись считается по ASCII-строке "<header>.<payload>".
func (c *Codec) Sign(payload Payload, secret string, ttl string) (string, error) {
	seconds, err := ParseTTL(ttl)
	if err != nil {
		return "", err
	}
	payload.Exp = c.now().Unix() + seconds

	headerJSON, err := json.Marshal(header{Alg: "HS256"})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	encodedHeader := base64.RawURLEncoding.EncodeToString(headerJSON)
	encodedPayload := base64.RawURLEncoding.EncodeToString(payloadJSON)
	signature := computeHMAC(encodedHeader+"."+encodedPayload, secret)

	return encodedHeader + "." + encodedPayload + "." + base64.RawURLEncoding.EncodeToString(signature), nil
}

// Verify проверяет формат, подпись, форму payload и срок действия —
// именно в этом порядке. Сравнение подписи константно по времени.
func (c *Codec) Verify(tokenStr string, secret string) (Payload, error) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Payload{}, ErrInvalidFormat
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return Payload{}, ErrInvalidFormat
	}

	expected := computeHMAC(parts[0]+"."+parts[1], secret)
	if !hmac.Equal(signature, expected) {
		return Payload{}, ErrInvalidSignature
	}

	payloadJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Payload{}, ErrInvalidFormat
	}

	// Жёсткая форма: объект строго из {id, login?, exp?},
	// лишние поля отклоняем, а не игнорируем.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payloadJSON, &raw); err != nil || raw == nil {
		return Payload{}, ErrInvalidFormat
	}

	var payload Payload
	dec := json.NewDecoder(bytes.NewReader(payloadJSON))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return Payload{}, ErrInvalidFormat
	}

	if _, ok := raw["id"]; !ok {
		return Payload{}, ErrMissingClaim
	}

	if payload.Exp != 0 && payload.Exp <= c.now().Unix() {
		return Payload{}, ErrExpired
	}

	return payload, nil
}

func computeHMAC(signedPart string, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPart))
	return mac.Sum(nil)
}
