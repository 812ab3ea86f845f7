package domain

import "strings"

// validatePhone accepts digits and dashes, 11 to 12 characters (e.g. 0123-4567890).
func validatePhone(field, phone string) error {
	if phone == "" {
		return nil
	}
	if strings.Trim(strings.ReplaceAll(phone, "-", ""), "0123456789") != "" {
		return newValidationError(InvalidPhone, field, "must contain only digits and dashes")
	}
	if n := len(phone); n < 11 || n > 12 {
		return newValidationError(InvalidPhone, field, "must be 11 to 12 characters long, e.g. 0123-4567890")
	}
	return nil
}

// validateNTN checks the national tax number length (7 to 13 characters).
func validateNTN(ntn string) error {
	if ntn == "" {
		return nil
	}
	if n := len(ntn); n < 7 || n > 13 {
		return newValidationError(InvalidNTN, "ntn_number", "must be 7 to 13 characters long")
	}
	return nil
}

func validateEmail(field, email string, required bool) error {
	email = strings.TrimSpace(email)
	if email == "" {
		if required {
			return newValidationError(MissingField, field, "is required")
		}
		return nil
	}
	at := strings.LastIndex(email, "@")
	if at < 1 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
		return newValidationError(InvalidEmail, field, "is not a valid address")
	}
	return nil
}
