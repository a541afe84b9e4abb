package estimate

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/rpggio/waitwatch/internal/domain/occupancy"
)

type bucketKey struct {
	weekday time.Weekday
	hour    int
}

// entry is one measurement held by a bucket, keyed like the store orders
// sessions: by entry time, then identity.
type entry struct {
	id       string
	entered  time.Time
	identity string
	duration float64
}

func (e entry) before(o entry) bool {
	if !e.entered.Equal(o.entered) {
		return e.entered.Before(o.entered)
	}
	return e.identity < o.identity
}

// bucketState holds the measurements of one bucket in entry order and the
// filter state folded over them.
type bucketState struct {
	entries []entry
	state   State
}

func (b *bucketState) refold(p Params) {
	b.state = p.Initial()
	for _, e := range b.entries {
		b.state = Update(b.state, e.duration, p)
	}
}

// Cache keeps one filter state per weekday/hour bucket so predictions do not
// refold the whole history. It is updated as sessions close and rebuilt from
// the store periodically so the lookback window slides.
// Each bucket state always equals Fold over its sessions in entry order, no
// matter the order in which they closed.
type Cache struct {
	mu      sync.RWMutex
	params  Params
	loc     *time.Location
	buckets map[bucketKey]*bucketState
	since   time.Time
	builtAt time.Time
}

// NewCache creates an empty cache. It ignores closures until the first Rebuild.
func NewCache(params Params, loc *time.Location) *Cache {
	return &Cache{
		params:  params,
		loc:     locationOrUTC(loc),
		buckets: make(map[bucketKey]*bucketState),
	}
}

// Rebuild replaces every bucket with a fold of sessions entered at or after since.
func (c *Cache) Rebuild(sessions []occupancy.Session, since, at time.Time) {
	buckets := make(map[bucketKey]*bucketState)
	for _, sess := range sessions {
		if sess.EnteredAt.Before(since) {
			continue
		}
		key, e, ok := c.entryFor(sess)
		if !ok {
			continue
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucketState{}
			buckets[key] = b
		}
		b.entries = append(b.entries, e)
	}
	for _, b := range buckets {
		sort.SliceStable(b.entries, func(i, j int) bool { return b.entries[i].before(b.entries[j]) })
		b.refold(c.params)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets = buckets
	c.since = since
	c.builtAt = at
}

// SessionClosed adds a newly closed session to its bucket. A session that
// entered after every measurement already held is folded in directly;
// otherwise the bucket is refolded in entry order. A session already held
// is ignored.
func (c *Cache) SessionClosed(sess occupancy.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.builtAt.IsZero() || sess.EnteredAt.Before(c.since) {
		return
	}
	key, e, ok := c.entryFor(sess)
	if !ok {
		return
	}
	b, ok := c.buckets[key]
	if !ok {
		b = &bucketState{state: c.params.Initial()}
		c.buckets[key] = b
	}
	if e.id != "" {
		for _, held := range b.entries {
			if held.id == e.id {
				return
			}
		}
	}

	i := sort.Search(len(b.entries), func(i int) bool { return e.before(b.entries[i]) })
	if i == len(b.entries) {
		b.entries = append(b.entries, e)
		b.state = Update(b.state, e.duration, c.params)
		return
	}
	b.entries = slices.Insert(b.entries, i, e)
	b.refold(c.params)
}

// Lookup returns the bucket state and sample count. Empty buckets return the prior.
func (c *Cache) Lookup(weekday time.Weekday, hour int) (State, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.buckets[bucketKey{weekday: weekday, hour: hour}]
	if !ok {
		return c.params.Initial(), 0
	}
	return b.state, len(b.entries)
}

// BuiltAt returns when the cache was last rebuilt; zero if never.
func (c *Cache) BuiltAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.builtAt
}

// Stale reports whether the cache needs a rebuild at now.
func (c *Cache) Stale(now time.Time, refresh time.Duration) bool {
	built := c.BuiltAt()
	return built.IsZero() || now.Sub(built) >= refresh
}

func (c *Cache) entryFor(sess occupancy.Session) (bucketKey, entry, bool) {
	d, ok := sess.Duration()
	if !ok {
		return bucketKey{}, entry{}, false
	}
	entered := sess.EnteredAt.In(c.loc)
	key := bucketKey{weekday: entered.Weekday(), hour: entered.Hour()}
	return key, entry{id: sess.ID, entered: sess.EnteredAt, identity: sess.Identity, duration: d}, true
}
