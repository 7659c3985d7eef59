package config

import "strings"

// Location is one country entry in the location map.
type Location struct {
	Name     string `mapstructure:"name"`
	Currency string `mapstructure:"currency"`
}

// Locations maps country codes to checkout locations. Unknown codes fall
// back to the configured defaults rather than failing: a test row with an
// unconfigured country still runs, it just bills in the default currency.
type Locations struct {
	DefaultLocation string              `mapstructure:"default_location"`
	DefaultCurrency string              `mapstructure:"default_currency"`
	Entries         map[string]Location `mapstructure:"entries"`
}

// CurrencyFor returns the lowercase currency code for a country code.
func (l Locations) CurrencyFor(country string) string {
	if entry, ok := l.Entries[strings.ToLower(country)]; ok && entry.Currency != "" {
		return strings.ToLower(entry.Currency)
	}
	return strings.ToLower(l.DefaultCurrency)
}

// NameFor returns the display name for a country code.
func (l Locations) NameFor(country string) string {
	if entry, ok := l.Entries[strings.ToLower(country)]; ok && entry.Name != "" {
		return entry.Name
	}
	return strings.ToUpper(country)
}

// Normalize returns the country code to use, applying the default when the
// test row left it blank.
func (l Locations) Normalize(country string) string {
	country = strings.ToLower(strings.TrimSpace(country))
	if country == "" {
		return strings.ToLower(l.DefaultLocation)
	}
	return country
}
