package cnpj

import "strings"

var (
	firstPassWeights  = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	secondPassWeights = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// Clean strips every non-digit character from a CNPJ.
func Clean(cnpj string) string {
	var b strings.Builder
	b.Grow(len(cnpj))
	for _, r := range cnpj {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Format renders a CNPJ in the punctuated XX.XXX.XXX/XXXX-XX form.
// Inputs that do not clean to 14 digits are returned unchanged.
func Format(cnpj string) string {
	clean := Clean(cnpj)
	if len(clean) != 14 {
		return cnpj
	}
	return clean[:2] + "." + clean[2:5] + "." + clean[5:8] + "/" + clean[8:12] + "-" + clean[12:]
}

// Valid reports whether the string carries a checksum-valid CNPJ.
// Non-digit characters are ignored; the remaining digits must be exactly
// 14, not all identical, and close with the two mod-11 check digits.
func Valid(cnpj string) bool {
	clean := Clean(cnpj)
	if len(clean) != 14 {
		return false
	}

	allSame := true
	for i := 1; i < 14; i++ {
		if clean[i] != clean[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	if checkDigit(clean, firstPassWeights) != int(clean[12]-'0') {
		return false
	}
	return checkDigit(clean, secondPassWeights) == int(clean[13]-'0')
}

func checkDigit(digits string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}
	remainder := sum % 11
	if remainder < 2 {
		return 0
	}
	return 11 - remainder
}
