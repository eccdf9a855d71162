// Package repository содержит общие для всех хранилищ сигнальные ошибки.
// Конкретные реализации живут в подпакетах (postgres).
package repository

import "errors"

var (
	// ErrNotFound — запись отсутствует (маппинг pgx.ErrNoRows).
	ErrNotFound = errors.New("record not found")

	// ErrConflict — нарушение уникальности (занятый login).
	ErrConflict = errors.New("record already exists")
)
