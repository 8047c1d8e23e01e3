package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueValidators(t *testing.T) {
	cases := []struct {
		category string
		value    string
		want     bool
	}{
		{CategoryEmail, "jane.doe@example.com", true},
		{CategoryEmail, "not-an-email", false},
		{CategoryEmail, "a@b", false},

		{CategoryPhone, "+1 (555) 123-4567", true},
		{CategoryPhone, "0812345678", true},
		{CategoryPhone, "12", false},
		{CategoryPhone, "call me maybe", false},

		{CategoryNationalID, "123-45-6789", true},
		{CategoryNationalID, "123456789", true},
		{CategoryNationalID, "12ab", false},

		// 4111111111111111 passes Luhn, 4111111111111112 does not.
		{CategoryPaymentCard, "4111111111111111", true},
		{CategoryPaymentCard, "4111 1111 1111 1111", true},
		{CategoryPaymentCard, "4111111111111112", false},
		{CategoryPaymentCard, "1234", false},

		{CategoryIPAddress, "10.0.0.1", true},
		{CategoryIPAddress, "2001:db8::1", true},
		{CategoryIPAddress, "999.0.0.1", false},

		{CategoryDateOfBirth, "1987-06-05", true},
		{CategoryDateOfBirth, "06/05/1987", true},
		{CategoryDateOfBirth, "3021-01-01", false},
		{CategoryDateOfBirth, "yesterday", false},

		{CategoryPostalCode, "90210", true},
		{CategoryPostalCode, "90210-1234", true},
		{CategoryPostalCode, "K1A 0B1", true},
		{CategoryPostalCode, "9021", false},

		{CategoryGeoCode, "37.7749, -122.4194", true},
		{CategoryGeoCode, "37,122", false},
	}

	for _, tc := range cases {
		valid, ok := valueValidators[tc.category]
		require.True(t, ok, "no validator for %s", tc.category)
		assert.Equal(t, tc.want, valid(tc.value), "%s(%q)", tc.category, tc.value)
	}
}

func TestAnalyzeSamples_ConfirmsEmailColumn(t *testing.T) {
	samples := []string{
		"alice@example.com",
		"bob@example.org",
		"carol@example.net",
		"NULL",
		"dave@example.io",
	}

	scores := AnalyzeSamples(samples)
	require.NotEmpty(t, scores)
	assert.Equal(t, CategoryEmail, scores[0].Category)
	assert.Equal(t, 1.0, scores[0].MatchFraction)

	best := BestConfirmed(samples, 0.70)
	require.NotNil(t, best)
	assert.Equal(t, CategoryEmail, best.Category)
}

func TestBestConfirmed_BelowThreshold(t *testing.T) {
	// 2 of 5 values look like IPs, well under the confirmation threshold.
	samples := []string{"10.0.0.1", "192.168.1.1", "build-42", "release", "none"}
	assert.Nil(t, BestConfirmed(samples, 0.70))
}

func TestBestConfirmed_EmptyAndNullSamples(t *testing.T) {
	assert.Nil(t, BestConfirmed(nil, 0.70))
	assert.Nil(t, BestConfirmed([]string{"", "NULL", "null"}, 0.70))
}

func TestPersonNameFraction(t *testing.T) {
	names := []string{"John Smith", "Jane Doe", "Mary O'Brien", "Jean-Luc Picard", "Ana Maria Silva"}
	assert.InDelta(t, 1.0, PersonNameFraction(names), 0.01)

	idents := []string{"customers", "orders", "products", "orders", "customers"}
	assert.Equal(t, 0.0, PersonNameFraction(idents))
}

func TestMetadataShapeFraction(t *testing.T) {
	// Snake-case identifiers from a small repeated vocabulary.
	idents := []string{"customers", "orders", "products", "orders", "customers", "orders"}
	assert.Greater(t, MetadataShapeFraction(idents), 0.8)

	names := []string{"John Smith", "Jane Doe", "Mary Major", "Rick Deckard", "Eleanor Shellstrop"}
	assert.Less(t, MetadataShapeFraction(names), 0.2)
}

func TestAnalyzeSamples_IdentifiersDoNotScoreAsNames(t *testing.T) {
	samples := []string{"customers", "orders", "products", "orders", "customers", "orders"}
	for _, score := range AnalyzeSamples(samples) {
		assert.NotEqual(t, CategoryPersonName, score.Category)
	}
}

func TestCategoryFraction(t *testing.T) {
	frac, ok := CategoryFraction([]string{"10.0.0.1", "172.16.0.1", "nope", "x"}, CategoryIPAddress)
	require.True(t, ok)
	assert.InDelta(t, 0.5, frac, 0.01)

	_, ok = CategoryFraction([]string{"a"}, "bank_account")
	assert.False(t, ok, "bank_account has no value test")

	frac, ok = CategoryFraction([]string{"John Smith", "Jane Doe"}, CategoryPersonName)
	require.True(t, ok)
	assert.InDelta(t, 1.0, frac, 0.01)
}
