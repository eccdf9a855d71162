package domain

// User — учётная запись галереи. Анонимный пользователь создаётся
// без логина и пароля и может позже "дорасти" до полноценного через PATCH.
type User struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Login        *string `json:"login,omitempty"`
	Email        *string `json:"email,omitempty"`
	PasswordHash string  `json:"-"` // Никогда не отдаём на фронт
	Version      int     `json:"version"`
	CreatedAt    int64   `json:"createdAt"`
	UpdatedAt    int64   `json:"updatedAt"`
}

// HasPassword — у анонимов пароля нет, и смена профиля для них
// не требует подтверждения текущим паролем.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Credentials живут только в рамках запроса, в БД попадает лишь bcrypt-хэш.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// TokenPair — access с коротким TTL и refresh с длинным,
// подписанные разными секретами.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// CreateUserDTO — тело POST /user. Всё опционально:
// пустое тело даёт анонимного пользователя.
type CreateUserDTO struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Login    string `json:"login,omitempty"`
	Password string `json:"password,omitempty"`
}

// UpdateUserDTO — тело PATCH /user/{id}. Password — текущий пароль
// (подтверждение), NewPassword — новый, проходит политику сложности.
type UpdateUserDTO struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Login       string `json:"login,omitempty"`
	Password    string `json:"password,omitempty"`
	NewPassword string `json:"newPassword,omitempty"`
}
