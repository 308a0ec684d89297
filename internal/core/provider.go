// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the application's logic.
package core

import "fmt"

// Provider identifies the source control platform an event originated from.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGitLab Provider = "gitlab"
)

// ParseProvider maps the provider segment of a webhook URL to a known Provider.
// It is the single place where the raw string is interpreted; everything past
// the HTTP boundary works with the typed value.
func ParseProvider(raw string) (Provider, error) {
	switch Provider(raw) {
	case ProviderGitHub:
		return ProviderGitHub, nil
	case ProviderGitLab:
		return ProviderGitLab, nil
	default:
		return "", fmt.Errorf("unknown provider %q", raw)
	}
}

func (p Provider) String() string {
	return string(p)
}
