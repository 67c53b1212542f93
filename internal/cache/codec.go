package cache

import (
	"encoding/json"
	"fmt"

	"github.com/nostrwatch/relaymon/internal/domain/relay"
	"github.com/nostrwatch/relaymon/internal/store"
)

// encode turns a typed record into its stored document. The url is
// canonicalized and the network derived here so every document in the store
// carries normalized ingestion-time fields.
func encode(r *relay.Relay) (store.Doc, error) {
	cp := *r
	cp.URL = relay.Canonical(r.URL)
	if cp.Network == "" {
		cp.Network = relay.NetworkOf(cp.URL)
	}

	raw, err := json.Marshal(&cp)
	if err != nil {
		return nil, fmt.Errorf("encode relay: %w", err)
	}
	var d store.Doc
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("encode relay: %w", err)
	}
	return d, nil
}

func decode(d store.Doc) (*relay.Relay, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("decode relay: %w", err)
	}
	var r relay.Relay
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode relay: %w", err)
	}
	return &r, nil
}
