// Package phone normalises client phone numbers to E.164.
package phone

import (
	"regexp"
	"strings"
)

const (
	DefaultCountryCode = "+54"
	argentinaCode      = "+54"
)

var e164Pattern = regexp.MustCompile(`^\+\d{8,15}$`)

// Normalizer turns local or international input into E.164.
//
// Input that already starts with "+" is kept as typed (digits only). Local
// input gets CountryCode prepended; for Argentina, when AddMobileNine is set,
// the mobile "9" is inserted after the country code unless already present.
type Normalizer struct {
	CountryCode   string
	AddMobileNine bool
}

func NewNormalizer(countryCode string, addMobileNine bool) Normalizer {
	countryCode = strings.TrimSpace(countryCode)
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	if !strings.HasPrefix(countryCode, "+") {
		countryCode = "+" + countryCode
	}
	return Normalizer{CountryCode: countryCode, AddMobileNine: addMobileNine}
}

// Normalize returns the E.164 form of raw, or "" when raw holds no digits.
func (n Normalizer) Normalize(raw string) string {
	v := digitsAndPlus(raw)
	if v == "" || v == "+" {
		return ""
	}
	if strings.HasPrefix(v, "+") {
		return v
	}
	if n.CountryCode == argentinaCode && n.AddMobileNine && !strings.HasPrefix(v, "9") {
		v = "9" + v
	}
	return n.CountryCode + v
}

// NormalizeValid is Normalize followed by IsE164.
func (n Normalizer) NormalizeValid(raw string) (string, bool) {
	out := n.Normalize(raw)
	return out, IsE164(out)
}

// IsE164 accepts a leading "+" followed by 8 to 15 digits.
func IsE164(v string) bool {
	return e164Pattern.MatchString(v)
}

// WhatsAppAddress prefixes an E.164 number with the "whatsapp:" channel.
func WhatsAppAddress(e164 string) string {
	if strings.HasPrefix(e164, "whatsapp:") {
		return e164
	}
	return "whatsapp:" + e164
}

func digitsAndPlus(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	var b strings.Builder
	if strings.HasPrefix(trimmed, "+") {
		b.WriteByte('+')
	}
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
