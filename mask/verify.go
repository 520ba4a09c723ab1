package mask

// Check-digit and shape predicates for Brazilian identifiers. These are not
// wired into the generic form validation pass; callers wanting stricter
// checks opt in explicitly.

// ValidCPF verifies the two CPF check digits. Input may be masked.
func ValidCPF(value string) bool {
	digits := Strip(value)
	if len(digits) != 11 || allSame(digits) {
		return false
	}
	if checkDigit(digits[:9], 10) != int(digits[9]-'0') {
		return false
	}
	return checkDigit(digits[:10], 11) == int(digits[10]-'0')
}

// ValidCNPJ verifies the two CNPJ check digits. Input may be masked.
func ValidCNPJ(value string) bool {
	digits := Strip(value)
	if len(digits) != 14 || allSame(digits) {
		return false
	}
	if cnpjDigit(digits[:12]) != int(digits[12]-'0') {
		return false
	}
	return cnpjDigit(digits[:13]) == int(digits[13]-'0')
}

// ValidPhone accepts 10-digit (landline) or 11-digit (mobile) numbers with a
// plausible DDD (11-99).
func ValidPhone(value string) bool {
	digits := Strip(value)
	if len(digits) != 10 && len(digits) != 11 {
		return false
	}
	ddd := int(digits[0]-'0')*10 + int(digits[1]-'0')
	if ddd < 11 {
		return false
	}
	// Mobile numbers carry a leading 9 on the subscriber part.
	if len(digits) == 11 && digits[2] != '9' {
		return false
	}
	return true
}

// ValidCEP accepts exactly eight digits.
func ValidCEP(value string) bool {
	return len(Strip(value)) == 8
}

func allSame(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

// checkDigit computes a CPF check digit: weights descend from start down to
// 2 across the given prefix.
func checkDigit(prefix string, start int) int {
	sum := 0
	for i, r := range prefix {
		sum += int(r-'0') * (start - i)
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		return 0
	}
	return rest
}

// cnpjDigit computes a CNPJ check digit with the cyclic 2..9 weight scheme,
// applied right to left.
func cnpjDigit(prefix string) int {
	weight := 2
	sum := 0
	for i := len(prefix) - 1; i >= 0; i-- {
		sum += int(prefix[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}
