package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var externalIDPattern = regexp.MustCompile(`^\+?\d{8,15}$`)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var (
	digitPattern = regexp.MustCompile(`\d`)
	carNoPattern = regexp.MustCompile(`^\S+$`)
)

// MaxCarNoHolders is how many identities may register the same car number.
const MaxCarNoHolders = 2

// Identity is a registered principal. ExternalID is the client-facing login
// identifier (a phone number); IdentityToken is issued once at join and never rotated.
type Identity struct {
	ID            string
	ExternalID    string
	PasswordHash  string
	IdentityToken string // stored in clear; doubles as a re-authentication credential
	Active        bool
	Profile       Profile
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Profile holds account-holder editable fields.
type Profile struct {
	Name        string
	Email       string
	Nickname    string
	LicenseNo   string
	CarNo       string
	Prefix      string
	BossName    string
	CompanyName string
	Telephone   string
	Fax         string
}

// ValidExternalID reports whether id looks like an external identifier (8–15 digits, optional leading +).
func ValidExternalID(id string) bool {
	return externalIDPattern.MatchString(id)
}

// ValidEmail reports whether s is a well-formed email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidCarNo reports whether s is a non-empty car number without whitespace.
func ValidCarNo(s string) bool {
	return carNoPattern.MatchString(s)
}

// ValidateRequired checks the fields every account holder must fill in: a
// name, a well-formed email, and a license number containing a digit.
func (p Profile) ValidateRequired() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return errors.New("name is required")
	case p.Email == "":
		return errors.New("email is required")
	case !ValidEmail(p.Email):
		return errors.New("invalid email format")
	case !digitPattern.MatchString(p.LicenseNo):
		return errors.New("license number must contain a digit")
	}
	return nil
}

// FilledRequired reports whether p passes ValidateRequired.
func (p Profile) FilledRequired() bool {
	return p.ValidateRequired() == nil
}

// Validate validates the identity for persistence. Returns an error describing the first validation failure.
func (i *Identity) Validate() error {
	if i.ID == "" {
		return errors.New("id is required")
	}
	if !ValidExternalID(i.ExternalID) {
		return errors.New("external id must be 8-15 digits")
	}
	if i.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	if i.IdentityToken == "" {
		return errors.New("identity token is required")
	}
	if i.Profile.Email != "" && !ValidEmail(i.Profile.Email) {
		return errors.New("invalid email format")
	}
	return nil
}

// Merge applies the non-empty fields of update onto p.
func (p *Profile) Merge(update Profile) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&p.Name, update.Name)
	set(&p.Email, update.Email)
	set(&p.Nickname, update.Nickname)
	set(&p.LicenseNo, update.LicenseNo)
	set(&p.CarNo, update.CarNo)
	set(&p.Prefix, update.Prefix)
	set(&p.BossName, update.BossName)
	set(&p.CompanyName, update.CompanyName)
	set(&p.Telephone, update.Telephone)
	set(&p.Fax, update.Fax)
}
