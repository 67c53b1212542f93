// Package probe provides the default implementations of the monitor's
// external collaborators: a go-nostr based relay checker and an HTTP seed
// bootstrap.
package probe

import (
	"context"
	"strconv"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip11"
	"go.uber.org/zap"

	"github.com/nostrwatch/relaymon/internal/domain/relay"
)

// ephemeralKind lands in the 20000-29999 range, so relays accept the write
// probe without storing anything.
const ephemeralKind = 20001

type Prober struct {
	log     *zap.Logger
	timeout time.Duration
}

func NewProber(timeout time.Duration, log *zap.Logger) *Prober {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Prober{
		log:     log.With(zap.String("component", "prober")),
		timeout: timeout,
	}
}

// Check probes one relay: NIP-11 information document, websocket connect,
// read and write. An unreachable relay is a valid observation
// (online=false), not an error; only an aborted probe is.
func (p *Prober) Check(ctx context.Context, url string) (*relay.Relay, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res := relay.New(url)

	if info, err := nip11.Fetch(ctx, url); err == nil {
		res.Info = convertInfo(info)
	} else {
		p.log.Debug("nip11 fetch failed", zap.String("url", url), zap.Error(err))
	}

	rl, err := nostr.RelayConnect(ctx, url)
	if err != nil {
		if ctx.Err() != nil && err != nil {
			// Probe was cancelled, not the relay refusing us.
			return nil, ctx.Err()
		}
		offline := false
		res.Online = &offline
		return res, nil
	}
	defer rl.Close()

	online := true
	res.Online = &online

	readOK := p.probeRead(ctx, rl)
	res.Read = &readOK

	writeOK := p.probeWrite(ctx, rl)
	res.Write = &writeOK

	if res.Info != nil {
		if v, ok := res.Info.Limitation["auth_required"].(bool); ok {
			res.Auth = &v
		}
	}
	return res, nil
}

func (p *Prober) probeRead(ctx context.Context, rl *nostr.Relay) bool {
	sub, err := rl.Subscribe(ctx, nostr.Filters{{Kinds: []int{nostr.KindTextNote}, Limit: 1}})
	if err != nil {
		return false
	}
	defer sub.Unsub()

	select {
	case <-sub.EndOfStoredEvents:
		return true
	case <-sub.Events:
		return true
	case <-ctx.Done():
		return false
	}
}

// probeWrite publishes an ephemeral event signed with a throwaway key.
func (p *Prober) probeWrite(ctx context.Context, rl *nostr.Relay) bool {
	sk := nostr.GeneratePrivateKey()
	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		return false
	}
	ev := nostr.Event{
		PubKey:    pk,
		CreatedAt: nostr.Now(),
		Kind:      ephemeralKind,
		Tags:      nostr.Tags{},
		Content:   "monitor write probe",
	}
	if err := ev.Sign(sk); err != nil {
		return false
	}
	return rl.Publish(ctx, ev) == nil
}

func convertInfo(doc nip11.RelayInformationDocument) *relay.Info {
	info := &relay.Info{
		Name:           doc.Name,
		Description:    doc.Description,
		Pubkey:         doc.PubKey,
		Contact:        doc.Contact,
		Software:       doc.Software,
		Version:        doc.Version,
		SupportedNIPs:  nipNumbers(doc.SupportedNIPs),
		RelayCountries: doc.RelayCountries,
		PaymentsURL:    doc.PaymentsURL,
	}
	if doc.Limitation != nil {
		info.Limitation = map[string]any{
			"auth_required":    doc.Limitation.AuthRequired,
			"payment_required": doc.Limitation.PaymentRequired,
		}
		if doc.Limitation.MaxMessageLength > 0 {
			info.Limitation["max_message_length"] = doc.Limitation.MaxMessageLength
		}
		if doc.Limitation.MaxSubscriptions > 0 {
			info.Limitation["max_subscriptions"] = doc.Limitation.MaxSubscriptions
		}
		if doc.Limitation.MaxLimit > 0 {
			info.Limitation["max_limit"] = doc.Limitation.MaxLimit
		}
	}
	return info
}

// nipNumbers normalizes the NIP-11 supported_nips array, which relays
// publish as a mix of numbers and strings.
func nipNumbers(raw []any) []int {
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case int:
			out = append(out, n)
		case float64:
			out = append(out, int(n))
		case string:
			if i, err := strconv.Atoi(n); err == nil {
				out = append(out, i)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
