package classify

import (
	"fmt"
	"net"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Built-in sensitivity categories with value tests. These match the category
// keys of the seeded rule definitions.
const (
	CategoryEmail       = "email"
	CategoryPhone       = "phone"
	CategoryNationalID  = "tax_id"
	CategoryPaymentCard = "payment_card"
	CategoryBankAccount = "bank_account"
	CategoryIPAddress   = "ip_address"
	CategoryDateOfBirth = "date_of_birth"
	CategoryPostalCode  = "postal_code"
	CategoryPersonName  = "person_name"
	CategoryGeoCode     = "geo_code"
)

// CategoryScore is the content analyzer's output for one category.
type CategoryScore struct {
	Category      string  `json:"category"`
	MatchFraction float64 `json:"match_fraction"`
	Confidence    int     `json:"confidence"`
	Reason        string  `json:"reason"`
}

var (
	emailRe      = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	phoneRe      = regexp.MustCompile(`^\+?[0-9][0-9 .\-()]{5,18}[0-9]$`)
	nationalIDRe = regexp.MustCompile(`^[0-9]{3}-?[0-9]{2}-?[0-9]{4}$|^[0-9]{9,13}$`)
	cardShapeRe  = regexp.MustCompile(`^[0-9][0-9 \-]{11,21}[0-9]$`)
	postalRe     = regexp.MustCompile(`^[0-9]{5}(-[0-9]{4})?$|^[A-Za-z][0-9][A-Za-z] ?[0-9][A-Za-z][0-9]$`)
	geoCodeRe    = regexp.MustCompile(`^-?[0-9]{1,3}\.[0-9]{3,},\s*-?[0-9]{1,3}\.[0-9]{3,}$`)
	snakeIdentRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

	dobLayouts = []string{"2006-01-02", "01/02/2006", "02/01/2006", "2006/01/02", "02-01-2006", "Jan 2, 2006"}
)

// valueValidators maps each category with a value test to its validator.
// person_name is scored separately because it needs cross-sample statistics.
var valueValidators = map[string]func(string) bool{
	CategoryEmail:       isEmail,
	CategoryPhone:       isPhone,
	CategoryNationalID:  isNationalID,
	CategoryPaymentCard: isPaymentCard,
	CategoryIPAddress:   isIPAddress,
	CategoryDateOfBirth: isDateOfBirth,
	CategoryPostalCode:  isPostalCode,
	CategoryGeoCode:     isGeoCode,
}

func isEmail(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

func isPhone(s string) bool {
	s = strings.TrimSpace(s)
	if !phoneRe.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= 7 && digits <= 15
}

func isNationalID(s string) bool {
	return nationalIDRe.MatchString(strings.TrimSpace(s))
}

// isPaymentCard requires both card-number shape and a valid Luhn checksum, so
// arbitrary long digit strings do not count as card numbers.
func isPaymentCard(s string) bool {
	s = strings.TrimSpace(s)
	if !cardShapeRe.MatchString(s) {
		return false
	}
	digits := make([]int, 0, 19)
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func isIPAddress(s string) bool {
	return net.ParseIP(strings.TrimSpace(s)) != nil
}

// isDateOfBirth accepts common date layouts with a plausible birth year.
func isDateOfBirth(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dobLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		year := t.Year()
		if year >= 1900 && year <= time.Now().Year() {
			return true
		}
	}
	return false
}

func isPostalCode(s string) bool {
	return postalRe.MatchString(strings.TrimSpace(s))
}

func isGeoCode(s string) bool {
	return geoCodeRe.MatchString(strings.TrimSpace(s))
}

// isPersonNameShape checks one value for person-name shape: two to four
// capitalized alphabetic tokens.
func isPersonNameShape(s string) bool {
	s = strings.TrimSpace(s)
	tokens := strings.Fields(s)
	if len(tokens) < 2 || len(tokens) > 4 {
		return false
	}
	for _, tok := range tokens {
		runes := []rune(tok)
		if !unicode.IsUpper(runes[0]) {
			return false
		}
		for _, r := range runes[1:] {
			if !unicode.IsLetter(r) && r != '\'' && r != '-' && r != '.' {
				return false
			}
		}
	}
	return true
}

func nonNullSamples(samples []string) []string {
	out := make([]string, 0, len(samples))
	for _, s := range samples {
		t := strings.TrimSpace(s)
		if t == "" || strings.EqualFold(t, "null") || strings.EqualFold(t, "nil") {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchFraction(samples []string, valid func(string) bool) float64 {
	if len(samples) == 0 {
		return 0
	}
	matched := 0
	for _, s := range samples {
		if valid(s) {
			matched++
		}
	}
	return float64(matched) / float64(len(samples))
}

// MetadataShapeFraction scores how strongly samples look like structural
// metadata rather than personal data: lowercase snake_case identifiers drawn
// from a small repeated vocabulary (table names, operation types and the like).
func MetadataShapeFraction(samples []string) float64 {
	samples = nonNullSamples(samples)
	if len(samples) == 0 {
		return 0
	}
	identLike := 0
	distinct := make(map[string]struct{}, len(samples))
	for _, s := range samples {
		if snakeIdentRe.MatchString(s) {
			identLike++
		}
		distinct[strings.ToLower(s)] = struct{}{}
	}
	frac := float64(identLike) / float64(len(samples))
	// A small repeated vocabulary reinforces the metadata verdict; identifier
	// shape alone already dominates for columns like table_name.
	if len(samples) >= 5 && len(distinct)*2 <= len(samples) {
		frac = (frac + 1.0) / 2
		if frac > 1 {
			frac = 1
		}
	}
	return frac
}

// PersonNameFraction scores how strongly samples look like real person names:
// capitalized multi-token values with high value diversity.
func PersonNameFraction(samples []string) float64 {
	samples = nonNullSamples(samples)
	if len(samples) == 0 {
		return 0
	}
	frac := matchFraction(samples, isPersonNameShape)
	// Low diversity argues against person names; a names column rarely repeats.
	distinct := make(map[string]struct{}, len(samples))
	for _, s := range samples {
		distinct[strings.ToLower(s)] = struct{}{}
	}
	if len(samples) >= 5 && len(distinct)*2 <= len(samples) {
		frac /= 2
	}
	return frac
}

// AnalyzeSamples scores non-null samples against every category with a value
// test, best match first. Purely advisory input to the decision fuser.
func AnalyzeSamples(samples []string) []CategoryScore {
	clean := nonNullSamples(samples)
	if len(clean) == 0 {
		return nil
	}

	scores := make([]CategoryScore, 0, len(valueValidators)+1)
	for category, valid := range valueValidators {
		frac := matchFraction(clean, valid)
		if frac == 0 {
			continue
		}
		scores = append(scores, CategoryScore{
			Category:      category,
			MatchFraction: frac,
			Confidence:    int(frac * 100),
			Reason:        fmt.Sprintf("%.0f%% of %d sampled values match the %s pattern", frac*100, len(clean), category),
		})
	}

	// person_name needs the metadata disambiguator: columns full of snake_case
	// identifiers must not score as names no matter what the column is called.
	personFrac := PersonNameFraction(samples)
	metaFrac := MetadataShapeFraction(samples)
	if personFrac > 0 && personFrac > metaFrac {
		scores = append(scores, CategoryScore{
			Category:      CategoryPersonName,
			MatchFraction: personFrac,
			Confidence:    int(personFrac * 100),
			Reason:        fmt.Sprintf("%.0f%% of %d sampled values have person-name shape", personFrac*100, len(clean)),
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].MatchFraction != scores[j].MatchFraction {
			return scores[i].MatchFraction > scores[j].MatchFraction
		}
		return scores[i].Category < scores[j].Category
	})
	return scores
}

// CategoryFraction returns the fraction of non-null samples passing the
// category's value test and whether the category has one at all.
func CategoryFraction(samples []string, category string) (float64, bool) {
	if category == CategoryPersonName {
		return PersonNameFraction(samples), true
	}
	valid, ok := valueValidators[category]
	if !ok {
		return 0, false
	}
	return matchFraction(nonNullSamples(samples), valid), true
}

// BestConfirmed returns the strongest category whose match fraction meets the
// confirmation threshold, or nil when nothing is confirmed.
func BestConfirmed(samples []string, threshold float64) *CategoryScore {
	scores := AnalyzeSamples(samples)
	if len(scores) == 0 {
		return nil
	}
	if scores[0].MatchFraction >= threshold {
		return &scores[0]
	}
	return nil
}
