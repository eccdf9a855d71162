// Package handler — HTTP-обработчики REST API поверх chi.
// Все ошибки уходят клиенту в едином машиночитаемом виде:
// {"error": "...", "code": "..."} — клиент ветвится по code.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/fractal-gallery/internal/auth"
)

type errorBody struct {
	Error string   `json:"error"`
	Code  string   `json:"code"`
	Rules []string `json:"rules,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, msg string) {
	respondJSON(w, status, errorBody{Error: msg, Code: code})
}

// respondAuthError маппит ошибку ядра на статус и код через auth.Classify.
// Для слабого пароля дополнительно отдаётся список нарушенных правил.
func respondAuthError(w http.ResponseWriter, err error) {
	status, code := auth.Classify(err)

	body := errorBody{Error: err.Error(), Code: code}
	var weak *auth.WeakPasswordError
	if errors.As(err, &weak) {
		body.Rules = weak.Rules
	}
	respondJSON(w, status, body)
}
