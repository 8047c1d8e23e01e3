package protection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShannonEntropy(t *testing.T) {
	assert.Equal(t, 0.0, ShannonEntropy(""))
	assert.Equal(t, 0.0, ShannonEntropy("aaaa"))
	assert.InDelta(t, 1.0, ShannonEntropy("abab"), 0.01)
	assert.Greater(t, ShannonEntropy("k8Qw!zP3#mN9$vL2"), 3.5)
}

func TestClassifyValue_Ciphertext(t *testing.T) {
	values := []string{
		"$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy",
		"$argon2id$v=19$m=65536,t=3,p=2$c29tZXNhbHQ$hash",
		"pbkdf2:sha256:260000$salt$hash",
		"gAAAAABh4x7J8q2k3v9n1m5p7r0t2w4y6a8c0e2g4i6k8m0o2q4s6u8w0y2a4c6",
		"ENC(k3J9mQ2pX7vL0nR5)",
		"vault:v1:abcdef0123456789",
	}
	for _, v := range values {
		assert.Equal(t, MethodCiphertext, classifyValue(v, 4.5), "value %q", v)
	}
}

func TestClassifyValue_HexBlob(t *testing.T) {
	assert.Equal(t, MethodHashed, classifyValue("5f4dcc3b5aa765d61d8327deb882cf99", 4.5))
	assert.Equal(t, MethodHashed, classifyValue("0xDEADBEEFDEADBEEFDEADBEEFDEADBEEF", 4.5))

	// Long digit-only strings are account numbers, not digests.
	assert.Equal(t, MethodNone, classifyValue("12345678901234567890123456789012", 4.5))
}

func TestClassifyValue_Masked(t *testing.T) {
	assert.Equal(t, MethodMasked, classifyValue("****-****-****-1234", 4.5))
	assert.Equal(t, MethodMasked, classifyValue("XXXXXXXX123", 4.5))
	assert.Equal(t, MethodMasked, classifyValue("j***@e******.com", 4.5))

	assert.Equal(t, MethodNone, classifyValue("john@example.com", 4.5))
}

func TestClassifyValue_Cleartext(t *testing.T) {
	cleartext := []string{
		"john.smith@example.com",
		"4111111111111111",
		"+1 555 123 4567",
		"John Smith",
		"",
		"  ",
	}
	for _, v := range cleartext {
		assert.Equal(t, MethodNone, classifyValue(v, 4.5), "value %q", v)
	}
}

func TestClassifyValue_Base64HighEntropy(t *testing.T) {
	// Base64 of random bytes carries high entropy.
	got := classifyValue("U2FsdGVkX1+qJ3kP9mZ8vR2tY5wB7nD4xG6hK0lM1oQ=", 4.5)
	assert.Contains(t, []string{MethodEncoded, MethodEntropy}, got)
}

func TestJudge_ProtectedFractionThreshold(t *testing.T) {
	v := &liveValidator{sampleSize: 10, entropyThreshold: 4.5, protectedFraction: 0.9}
	col := colFixture()

	bcrypt := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

	// 10/10 protected values.
	all := make([]string, 10)
	for i := range all {
		all[i] = bcrypt
	}
	res := v.judge(col, all)
	assert.True(t, res.IsProtected)
	assert.Equal(t, "protected", res.Status)
	assert.Equal(t, MethodCiphertext, res.Method)

	// 8/10 protected stays below the 0.9 bar.
	mixed := append(all[:8:8], "john@example.com", "jane@example.com")
	res = v.judge(col, mixed)
	assert.False(t, res.IsProtected)
	assert.Equal(t, "unprotected", res.Status)
}

func TestJudge_EmptySampleIsUnknown(t *testing.T) {
	v := &liveValidator{sampleSize: 10, entropyThreshold: 4.5, protectedFraction: 0.9}
	res := v.judge(colFixture(), nil)

	assert.False(t, res.IsProtected)
	assert.Equal(t, "unknown", res.Status)
	assert.Equal(t, 0, res.SampleSize)
}
