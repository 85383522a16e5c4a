package domain

import (
	"strings"
	"time"
)

type Person struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Initials  string    `json:"initials"`
	Color     string    `json:"color"`
	Version   int       `json:"version,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Person) Touch(now time.Time) {
	p.UpdatedAt = now
	p.Version++
}

// DeriveInitials returns the first two characters of name, uppercased.
func DeriveInitials(name string) string {
	r := []rune(strings.TrimSpace(name))
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}

// PersonPalette is cycled through when a person is created without a colour.
var PersonPalette = []string{
	"#8ec07c", "#fabd2f", "#83a598", "#d3869b",
	"#fe8019", "#b8bb26", "#fb4934", "#928374",
}
