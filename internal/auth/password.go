package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// ValidatePassword проверяет пароль по всем правилам сразу:
// длина не меньше 8, хотя бы одна заглавная, строчная, цифра
// и символ вне [A-Za-z0-9].
func ValidatePassword(password string) error {
	var violated []string

	if len(password) < 8 {
		violated = append(violated, RuleMinLength)
	}

	// классы символов — латиница и цифры ASCII, всё остальное
	// (включая не-ASCII буквы) считается спецсимволом
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}

	if !upper {
		violated = append(violated, RuleUppercase)
	}
	if !lower {
		violated = append(violated, RuleLowercase)
	}
	if !digit {
		violated = append(violated, RuleNumber)
	}
	if !special {
		violated = append(violated, RuleSpecialChar)
	}

	if len(violated) > 0 {
		return &WeakPasswordError{Rules: violated}
	}
	return nil
}

func hashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
