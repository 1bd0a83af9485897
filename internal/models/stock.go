package models

import "time"

// Stock represents one member of the screening universe
type Stock struct {
	Symbol      string    `json:"symbol" yaml:"symbol"`
	Name        string    `json:"name" yaml:"name"`
	ISIN        string    `json:"isin" yaml:"isin"`
	HasOptions  bool      `json:"has_options" yaml:"has_options"`
	LastUpdated time.Time `json:"last_updated,omitempty" yaml:"-"`
}

// InstrumentKey returns the upstream equity instrument key, or "" without an ISIN
func (s Stock) InstrumentKey() string {
	if s.ISIN == "" {
		return ""
	}
	return "NSE_EQ|" + s.ISIN
}
