package domain

import "testing"

func validIdentity() *Identity {
	return &Identity{
		ID:            "id-1",
		ExternalID:    "+821012345678",
		PasswordHash:  "hash",
		IdentityToken: "+821012345678-abc",
		Active:        true,
	}
}

func TestValidExternalID(t *testing.T) {
	testCases := []struct {
		id   string
		want bool
	}{
		{"01012345678", true},
		{"+821012345678", true},
		{"12345678", true},
		{"1234567", false},
		{"1234567890123456", false},
		{"010-1234-5678", false},
		{"", false},
		{"abcdefghij", false},
	}
	for _, tc := range testCases {
		if got := ValidExternalID(tc.id); got != tc.want {
			t.Errorf("ValidExternalID(%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestIdentity_Validate(t *testing.T) {
	if err := validIdentity().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	i := validIdentity()
	i.ExternalID = "abc"
	if err := i.Validate(); err == nil {
		t.Error("Validate with bad external id: want error")
	}
	i = validIdentity()
	i.PasswordHash = ""
	if err := i.Validate(); err == nil {
		t.Error("Validate without password hash: want error")
	}
	i = validIdentity()
	i.Profile.Email = "not-an-email"
	if err := i.Validate(); err == nil {
		t.Error("Validate with bad email: want error")
	}
}

func TestProfile_Merge(t *testing.T) {
	p := Profile{Name: "Kim", Email: "kim@example.com", CarNo: "12가3456"}
	p.Merge(Profile{Email: "new@example.com", Fax: "0212345678"})
	if p.Name != "Kim" {
		t.Errorf("Name = %q, want unchanged", p.Name)
	}
	if p.Email != "new@example.com" {
		t.Errorf("Email = %q", p.Email)
	}
	if p.Fax != "0212345678" {
		t.Errorf("Fax = %q", p.Fax)
	}
	if p.CarNo != "12가3456" {
		t.Errorf("CarNo = %q, want unchanged", p.CarNo)
	}
}

func TestProfile_ValidateRequired(t *testing.T) {
	filled := Profile{Name: "Kim", Email: "kim@example.com", LicenseNo: "11-22-333333-44"}
	testCases := []struct {
		name   string
		mutate func(p *Profile)
		ok     bool
	}{
		{"complete", func(p *Profile) {}, true},
		{"missing name", func(p *Profile) { p.Name = " " }, false},
		{"missing email", func(p *Profile) { p.Email = "" }, false},
		{"bad email", func(p *Profile) { p.Email = "kim@" }, false},
		{"missing license", func(p *Profile) { p.LicenseNo = "" }, false},
		{"license without digit", func(p *Profile) { p.LicenseNo = "none" }, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := filled
			tc.mutate(&p)
			if err := p.ValidateRequired(); (err == nil) != tc.ok {
				t.Errorf("ValidateRequired() = %v, want ok=%v", err, tc.ok)
			}
			if p.FilledRequired() != tc.ok {
				t.Errorf("FilledRequired() = %v, want %v", p.FilledRequired(), tc.ok)
			}
		})
	}
}

func TestValidCarNo(t *testing.T) {
	for s, want := range map[string]bool{"12가3456": true, "": false, "12 3456": false, "\t": false} {
		if got := ValidCarNo(s); got != want {
			t.Errorf("ValidCarNo(%q) = %v, want %v", s, got, want)
		}
	}
}
