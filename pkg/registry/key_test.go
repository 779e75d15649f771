package registry

import (
	"testing"

	"github.com/atlas-intel/dossier/pkg/payload"
)

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare domain", in: "acme.com", want: "acme.com"},
		{name: "https url with path", in: "https://www.acme.com/path", want: "www.acme.com"},
		{name: "http url", in: "http://acme.com", want: "acme.com"},
		{name: "query string", in: "acme.com?utm=x", want: "acme.com"},
		{name: "fragment", in: "acme.com#about", want: "acme.com"},
		{name: "uppercase", in: "WWW.Acme.COM", want: "www.acme.com"},
		{name: "surrounding whitespace", in: "  acme.com  ", want: "acme.com"},
		{name: "empty", in: "", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeDomain(tc.in); got != tc.want {
				t.Fatalf("NormalizeDomain(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "  Acme   GmbH ", want: "acme gmbh"},
		{in: "Acme GmbH", want: "acme gmbh"},
		{in: "", want: ""},
	}

	for _, tc := range tests {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildEntityKey(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		entity string
		want   string
	}{
		{name: "domain wins over name", domain: "acme.com", entity: "Acme GmbH", want: "domain:acme.com"},
		{name: "name fallback", domain: "", entity: "Acme GmbH", want: "name:acme gmbh"},
		{name: "unresolvable", domain: "", entity: "", want: payload.Placeholder},
		{name: "url domain normalized", domain: "https://acme.com/x", entity: "", want: "domain:acme.com"},
		{name: "whitespace only name", domain: "", entity: "   ", want: payload.Placeholder},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := BuildEntityKey(tc.domain, tc.entity); got != tc.want {
				t.Fatalf("BuildEntityKey(%q, %q) = %q, want %q", tc.domain, tc.entity, got, tc.want)
			}
		})
	}
}

func TestBuildEntityKey_Deterministic(t *testing.T) {
	a := BuildEntityKey("https://www.acme.com/path", "ignored")
	b := BuildEntityKey("  WWW.ACME.COM  ", "other")
	if a != b {
		t.Fatalf("equivalent domains produced different keys: %q vs %q", a, b)
	}
}
