package sri

import (
	"fmt"
	"unicode"
)

// ValidateRUC valida la estructura del RUC ecuatoriano: 13 dígitos, provincia 01-24 (o 30
// para extranjeros) y establecimiento distinto de 000. No verifica el dígito verificador.
func ValidateRUC(ruc string) error {
	if len(ruc) != 13 || !IsNumeric(ruc) {
		return fmt.Errorf("sri: el RUC debe tener exactamente 13 dígitos, se recibió %q", ruc)
	}
	province := int(ruc[0]-'0')*10 + int(ruc[1]-'0')
	if (province < 1 || province > 24) && province != 30 {
		return fmt.Errorf("sri: código de provincia %02d inválido en el RUC", province)
	}
	if ruc[10:] == "000" {
		return fmt.Errorf("sri: el RUC debe terminar en un establecimiento válido (ej. 001)")
	}
	return nil
}

// IsNumeric indica si s contiene solo dígitos ASCII y no está vacío.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ExtractDigits devuelve solo los dígitos de s (útil para identificaciones con guiones).
func ExtractDigits(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return string(out)
}
