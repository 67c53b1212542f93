package cache

import "context"

// SupportsQueries answer NIP support, for one relay or across the whole
// store. The store-wide forms are explicit methods rather than a nil relay
// argument.
type SupportsQueries struct{ c *Cache }

// NIP reports whether the relay at url advertises nip.
func (q *SupportsQueries) NIP(ctx context.Context, url string, nip int) (bool, error) {
	doc, err := q.c.relayDoc(ctx, url)
	if err != nil {
		return false, err
	}
	return predSupportsNIP(nip)(doc), nil
}

// NIPs reports, per requested nip, whether the relay at url advertises it.
func (q *SupportsQueries) NIPs(ctx context.Context, url string, nips []int) (map[int]bool, error) {
	doc, err := q.c.relayDoc(ctx, url)
	if err != nil {
		return nil, err
	}
	out := make(map[int]bool, len(nips))
	for _, nip := range nips {
		out[nip] = predSupportsNIP(nip)(doc)
	}
	return out, nil
}

// AllNIPs reports whether the relay at url advertises every requested nip.
func (q *SupportsQueries) AllNIPs(ctx context.Context, url string, nips []int) (bool, error) {
	m, err := q.NIPs(ctx, url, nips)
	if err != nil {
		return false, err
	}
	for _, ok := range m {
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// RelaysByNIP is the store-wide form: the urls of every relay advertising
// nip.
func (q *SupportsQueries) RelaysByNIP(ctx context.Context, nip int) ([]string, error) {
	return q.c.urls(ctx, predSupportsNIP(nip)), ctx.Err()
}

// RelaysByNIPs maps each requested nip to the urls advertising it.
func (q *SupportsQueries) RelaysByNIPs(ctx context.Context, nips []int) (map[int][]string, error) {
	out := make(map[int][]string, len(nips))
	for _, nip := range nips {
		urls, err := q.RelaysByNIP(ctx, nip)
		if err != nil {
			return nil, err
		}
		out[nip] = urls
	}
	return out, nil
}

// RelaysByAllNIPs intersects the per-nip url sets and returns the urls
// common to all of them. With no nips requested there is nothing to
// constrain on, so every relay qualifies.
func (q *SupportsQueries) RelaysByAllNIPs(ctx context.Context, nips []int) ([]string, error) {
	if len(nips) == 0 {
		return q.c.urls(ctx, nil), ctx.Err()
	}

	common, err := q.RelaysByNIP(ctx, nips[0])
	if err != nil {
		return nil, err
	}
	for _, nip := range nips[1:] {
		urls, err := q.RelaysByNIP(ctx, nip)
		if err != nil {
			return nil, err
		}
		in := make(map[string]bool, len(urls))
		for _, u := range urls {
			in[u] = true
		}
		kept := common[:0]
		for _, u := range common {
			if in[u] {
				kept = append(kept, u)
			}
		}
		common = kept
		if len(common) == 0 {
			break
		}
	}
	return common, nil
}

// urls collects the url field of matching documents.
func (c *Cache) urls(ctx context.Context, pred Predicate) []string {
	var out []string
	for doc := range c.Select(ctx, []string{"url"}, pred) {
		if u, ok := doc["url"].(string); ok {
			out = append(out, u)
		}
	}
	return out
}
