package relay

import (
	"net"
	"strings"
)

// Network classifications derived from the relay address at ingestion time.
const (
	NetClearnet = "clearnet"
	NetTor      = "tor"
	NetI2P      = "i2p"
	NetLoki     = "loki"
	NetLocal    = "local"
)

// NetworkOf classifies the transport/address family of a relay URL.
func NetworkOf(rawURL string) string {
	u := Canonical(rawURL)
	if _, rest, ok := strings.Cut(u, "://"); ok {
		u = rest
	}
	host, _, _ := strings.Cut(u, "/")
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	switch {
	case strings.HasSuffix(host, ".onion"):
		return NetTor
	case strings.HasSuffix(host, ".i2p"):
		return NetI2P
	case strings.HasSuffix(host, ".loki"):
		return NetLoki
	case host == "localhost" || strings.HasSuffix(host, ".local"):
		return NetLocal
	}

	if ip := net.ParseIP(strings.Trim(host, "[]")); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() {
			return NetLocal
		}
	}
	return NetClearnet
}
