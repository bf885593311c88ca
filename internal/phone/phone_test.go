package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizer_Normalize(t *testing.T) {
	ar := NewNormalizer("+54", true)

	tests := []struct {
		name string
		n    Normalizer
		raw  string
		want string
	}{
		{"local with separators gets mobile nine", ar, "11 2345-6789", "+5491123456789"},
		{"already has nine", ar, "9 11 2345 6789", "+5491123456789"},
		{"e164 passes through", ar, "+5491123456789", "+5491123456789"},
		{"e164 with spaces is compacted", ar, " +1 (415) 555-2671 ", "+14155552671"},
		{"mobile nine disabled", NewNormalizer("+54", false), "1123456789", "+541123456789"},
		{"other country never inserts nine", NewNormalizer("34", true), "612345678", "+34612345678"},
		{"empty", ar, "   ", ""},
		{"letters only", ar, "abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.n.Normalize(tt.raw))
		})
	}
}

func TestNormalizer_NormalizeValid(t *testing.T) {
	n := NewNormalizer("", true)

	got, ok := n.NormalizeValid("11 2345-6789")
	assert.True(t, ok)
	assert.Equal(t, "+5491123456789", got)

	got, ok = n.NormalizeValid("12")
	assert.False(t, ok)
	assert.Equal(t, "+54912", got)
}

func TestIsE164(t *testing.T) {
	assert.True(t, IsE164("+5491123456789"))
	assert.True(t, IsE164("+12345678"))
	assert.False(t, IsE164("+1234567"))
	assert.False(t, IsE164("+1234567890123456"))
	assert.False(t, IsE164("5491123456789"))
	assert.False(t, IsE164(""))
}

func TestWhatsAppAddress(t *testing.T) {
	assert.Equal(t, "whatsapp:+5491123456789", WhatsAppAddress("+5491123456789"))
	assert.Equal(t, "whatsapp:+5491123456789", WhatsAppAddress("whatsapp:+5491123456789"))
}
