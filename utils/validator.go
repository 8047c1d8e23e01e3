package utils

import (
	"net"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct validates a struct using its validation tags.
func ValidateStruct(obj interface{}) error {
	return validate.Struct(obj)
}

// IsValidHost validates a data source host: localhost, IPv4/IPv6, or hostname.
func IsValidHost(host string) bool {
	if host == "" {
		return false
	}

	if strings.ToLower(host) == "localhost" {
		return true
	}

	if net.ParseIP(host) != nil {
		return true
	}

	// Hostname validation - letters, numbers, dots, and hyphens
	if len(host) > 253 {
		return false
	}
	for _, char := range host {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '-' || char == '_') {
			return false
		}
	}
	if strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") ||
		strings.HasPrefix(host, "-") || strings.HasSuffix(host, "-") {
		return false
	}
	return true
}
