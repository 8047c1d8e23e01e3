package protection

import (
	"math"
	"regexp"
	"strings"
)

// Protection methods reported alongside a verdict. When several heuristics
// fire on the same sample set the most specific one wins.
const (
	MethodCiphertext = "ciphertext"
	MethodHashed     = "hashed"
	MethodEncoded    = "encoded"
	MethodMasked     = "masked"
	MethodEntropy    = "high_entropy"
	MethodNone       = "none"
)

var (
	base64Re  = regexp.MustCompile(`^[A-Za-z0-9+/]{24,}={0,2}$`)
	hexBlobRe = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{32,}$`)

	// Well-known ciphertext and hash envelope prefixes. $2a$/$2b$ bcrypt,
	// pbkdf2: and $argon2 password hashes, gAAAA Fernet tokens, vault: and
	// ENC( application envelopes, PGP armor.
	ciphertextPrefixes = []string{
		"$2a$", "$2b$", "$2y$", "$argon2", "pbkdf2:", "$pbkdf2",
		"gAAAA", "ENC(", "vault:", "-----BEGIN PGP",
	}
)

// ShannonEntropy returns the entropy of a string in bits per character.
func ShannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	total := 0
	for _, r := range s {
		freq[r]++
		total++
	}
	entropy := 0.0
	for _, n := range freq {
		p := float64(n) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// looksCiphertext matches known ciphertext and password-hash envelopes.
func looksCiphertext(s string) bool {
	for _, prefix := range ciphertextPrefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

// looksHexBlob matches long hex strings such as digest output. Requires at
// least one a-f character so long numeric values (account numbers, phone
// numbers stored unformatted) do not count as hashes.
func looksHexBlob(s string) bool {
	if !hexBlobRe.MatchString(s) {
		return false
	}
	for _, r := range strings.TrimPrefix(strings.ToLower(s), "0x") {
		if r >= 'a' && r <= 'f' {
			return true
		}
	}
	return false
}

func looksBase64(s string) bool {
	return base64Re.MatchString(s)
}

// looksMasked matches values a masking proxy would emit: runs of *, X or #
// replacing most of the value, optionally with a short cleartext tail.
func looksMasked(s string) bool {
	if s == "" {
		return false
	}
	maskChars := 0
	for _, r := range s {
		if r == '*' || r == 'X' || r == 'x' || r == '#' || r == '•' {
			maskChars++
		}
	}
	return float64(maskChars)/float64(len([]rune(s))) >= 0.5
}

// classifyValue returns the protection method one raw value exhibits, or
// MethodNone for apparent cleartext. entropyThreshold is in bits per character.
func classifyValue(s string, entropyThreshold float64) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return MethodNone
	}
	switch {
	case looksCiphertext(s):
		return MethodCiphertext
	case looksHexBlob(s):
		return MethodHashed
	case looksMasked(s):
		return MethodMasked
	case looksBase64(s) && ShannonEntropy(s) >= entropyThreshold:
		return MethodEncoded
	case len(s) >= 16 && ShannonEntropy(s) >= entropyThreshold:
		return MethodEntropy
	default:
		return MethodNone
	}
}
