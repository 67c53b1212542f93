package relay

import "time"

// Relay is one monitored endpoint. Health flags are tri-state: nil means
// the checker has not yet observed that dimension.
type Relay struct {
	URL     string `json:"url"`
	Network string `json:"network,omitempty"`

	Online *bool `json:"online,omitempty"`
	Read   *bool `json:"read,omitempty"`
	Write  *bool `json:"write,omitempty"`
	Auth   *bool `json:"auth,omitempty"`
	Dead   *bool `json:"dead,omitempty"`

	Info *Info `json:"info,omitempty"`

	DNS map[string]any `json:"dns,omitempty"`
	Geo map[string]any `json:"geo,omitempty"`
	SSL map[string]any `json:"ssl,omitempty"`

	// Retention is advisory freshness metadata. Nothing in the cache
	// enforces it as an expiry.
	Retention map[string]any `json:"retention,omitempty"`

	LastSeen    *time.Time `json:"last_seen,omitempty"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
}

// Info is the relay's self-declared NIP-11 information document, reduced to
// the fields the cache indexes and queries. Limitation stays an open map so
// lookups by key ("payment_required", "auth_required", ...) survive relays
// that declare fields we never modelled.
type Info struct {
	Name           string         `json:"name,omitempty"`
	Description    string         `json:"description,omitempty"`
	Pubkey         string         `json:"pubkey,omitempty"`
	Contact        string         `json:"contact,omitempty"`
	Software       string         `json:"software,omitempty"`
	Version        string         `json:"version,omitempty"`
	SupportedNIPs  []int          `json:"supported_nips,omitempty"`
	Limitation     map[string]any `json:"limitation,omitempty"`
	RelayCountries []string       `json:"relay_countries,omitempty"`
	PaymentsURL    string         `json:"payments_url,omitempty"`
}

// New returns a skeletal record for a freshly discovered candidate:
// canonical url plus derived network, everything else unobserved.
func New(rawURL string) *Relay {
	u := Canonical(rawURL)
	return &Relay{
		URL:     u,
		Network: NetworkOf(u),
	}
}

// SupportsNIP reports whether the stored information document advertises nip.
func (r *Relay) SupportsNIP(nip int) bool {
	if r.Info == nil {
		return false
	}
	for _, n := range r.Info.SupportedNIPs {
		if n == nip {
			return true
		}
	}
	return false
}

func boolVal(p *bool) bool { return p != nil && *p }

// IsOnline reports the last observed connect status.
func (r *Relay) IsOnline() bool { return boolVal(r.Online) }

// IsDead reports whether the relay has been flagged dead by the checker.
func (r *Relay) IsDead() bool { return boolVal(r.Dead) }
