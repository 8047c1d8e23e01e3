package bootstrap

import (
	"fmt"

	"datagovapi/models"
	"datagovapi/pkg/logger"
	"datagovapi/repository"
)

// builtinRules are seeded when the rule table is empty so a fresh deployment
// classifies common PII out of the box. Administrators tune or disable them
// afterwards; seeding never overwrites existing rules.
var builtinRules = []models.RuleDefinition{
	{
		Category:        "email",
		DisplayName:     "Email Address",
		Tier:            models.TierMedium,
		Hints:           "email, e_mail, mail_addr",
		ValuePattern:    `^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`,
		RequiresMasking: true,
		Description:     "Personal email addresses",
	},
	{
		Category:        "phone",
		DisplayName:     "Phone Number",
		Tier:            models.TierMedium,
		Hints:           "phone, mobile, msisdn, tel_no, fax",
		RequiresMasking: true,
		Description:     "Personal telephone numbers",
	},
	{
		Category:           "tax_id",
		DisplayName:        "National / Tax ID",
		Tier:               models.TierCritical,
		Hints:              "ssn, tax_id, national_id, nid, passport",
		ValuePattern:       `^[0-9]{3}-?[0-9]{2}-?[0-9]{4}$`,
		RequiresEncryption: true,
		Description:        "Government-issued identification numbers",
	},
	{
		Category:           "payment_card",
		DisplayName:        "Payment Card Number",
		Tier:               models.TierCritical,
		Hints:              "card_no, card_number, pan, cc_num, credit_card",
		ValuePattern:       `^[0-9][0-9 \-]{11,21}[0-9]$`,
		RequiresEncryption: true,
		RequiresMasking:    true,
		Description:        "Payment card primary account numbers",
	},
	{
		Category:           "bank_account",
		DisplayName:        "Bank Account",
		Tier:               models.TierHigh,
		Hints:              "iban, account_no, acct_num, routing, swift, bic",
		RequiresEncryption: true,
		Description:        "Bank account and routing identifiers",
	},
	{
		Category:     "ip_address",
		DisplayName:  "IP Address",
		Tier:         models.TierLow,
		Hints:        "ip, ip_addr, client_addr, remote_addr",
		ValuePattern: `^([0-9]{1,3}\.){3}[0-9]{1,3}$|^[0-9a-fA-F:]{3,39}$`,
		Description:  "Network addresses attributable to a person",
	},
	{
		Category:        "date_of_birth",
		DisplayName:     "Date of Birth",
		Tier:            models.TierHigh,
		Hints:           "dob, birth, birthdate, born_on",
		RequiresMasking: true,
		Description:     "Birth dates",
	},
	{
		Category:    "postal_code",
		DisplayName: "Postal Code",
		Tier:        models.TierLow,
		Hints:       "zip, zipcode, postal, postcode",
		Description: "Postal and ZIP codes",
	},
	{
		Category:        "person_name",
		DisplayName:     "Person Name",
		Tier:            models.TierMedium,
		Hints:           "first_name, last_name, full_name, surname, given_name, customer_name",
		RequiresMasking: true,
		Description:     "Personal names",
	},
	{
		Category:    "geo_code",
		DisplayName: "Geolocation",
		Tier:        models.TierMedium,
		Hints:       "lat, latitude, longitude, lng, geo, coords",
		Description: "Precise geographic coordinates",
	},
}

// LoadData seeds the builtin rule set when the rule table is empty.
func LoadData() error {
	logger.Infof("Starting bootstrap data loading...")

	ruleRepo := repository.NewRuleRepository()
	if err := seedBuiltinRules(ruleRepo); err != nil {
		return err
	}

	logger.Infof("Bootstrap data loading completed successfully")
	return nil
}

func seedBuiltinRules(repo repository.RuleRepository) error {
	count, err := repo.Count(nil)
	if err != nil {
		logger.Errorf("Failed to count rules: %v", err)
		return fmt.Errorf("failed to count rules: %v", err)
	}
	if count > 0 {
		logger.Infof("Rule table has %d rules, skipping seed", count)
		return nil
	}

	for i := range builtinRules {
		rule := builtinRules[i]
		rule.Enabled = true
		rule.Version = 1
		if err := repo.Create(nil, &rule); err != nil {
			logger.Errorf("Failed to seed rule %s: %v", rule.Category, err)
			return fmt.Errorf("failed to seed rule %s: %v", rule.Category, err)
		}
	}
	logger.Infof("Seeded %d builtin rules", len(builtinRules))
	return nil
}
