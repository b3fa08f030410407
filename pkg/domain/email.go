package domain

import "strings"

// NormalizeEmail canonicalizes an address for uniqueness checks: it trims and
// lowercases, and for Google mail it drops dots and any "+tag" from the local
// part and folds googlemail.com into gmail.com.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	if domain == "gmail.com" || domain == "googlemail.com" {
		local, _, _ = strings.Cut(local, "+")
		local = strings.ReplaceAll(local, ".", "")
		domain = "gmail.com"
	}
	return local + "@" + domain
}
