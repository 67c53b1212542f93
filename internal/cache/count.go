package cache

import "context"

// CountQueries is the explicit, static list of countable reads: each method
// runs the corresponding Get query and returns its length. One is not a
// count and has no counterpart here; All counts keys without decoding.
type CountQueries struct{ c *Cache }

func (q *CountQueries) All(ctx context.Context) (int, error) {
	ids, err := q.c.Get.AllIDs(ctx)
	return len(ids), err
}

func (q *CountQueries) Online(ctx context.Context) (int, error) {
	rs, err := q.c.Get.Online(ctx)
	return len(rs), err
}

func (q *CountQueries) Network(ctx context.Context, kind string) (int, error) {
	rs, err := q.c.Get.Network(ctx, kind)
	return len(rs), err
}

func (q *CountQueries) Public(ctx context.Context) (int, error) {
	rs, err := q.c.Get.Public(ctx)
	return len(rs), err
}

func (q *CountQueries) Paid(ctx context.Context) (int, error) {
	rs, err := q.c.Get.Paid(ctx)
	return len(rs), err
}

func (q *CountQueries) SupportsNIP(ctx context.Context, nip int) (int, error) {
	rs, err := q.c.Get.SupportsNIP(ctx, nip)
	return len(rs), err
}

func (q *CountQueries) DoesNotSupportNIP(ctx context.Context, nip int) (int, error) {
	rs, err := q.c.Get.DoesNotSupportNIP(ctx, nip)
	return len(rs), err
}
