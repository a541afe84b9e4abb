package detection

import "strconv"

// IdentityMap translates raw tracker ids into stable identities.
// Stable identities are decimal strings allocated from 1 upward and never reused.
// It is not safe for concurrent use.
type IdentityMap struct {
	stable map[string]string
	last   int64
}

// NewIdentityMap returns an empty map whose first identity is "1".
func NewIdentityMap() *IdentityMap {
	return &IdentityMap{stable: make(map[string]string)}
}

// Seed makes the next allocated identity last+1.
// Seeding backwards is ignored so identities stay monotonic.
func (m *IdentityMap) Seed(last int64) {
	if last > m.last {
		m.last = last
	}
}

// Stable returns the stable identity for raw, allocating one on first sight.
func (m *IdentityMap) Stable(raw string) string {
	if id, ok := m.stable[raw]; ok {
		return id
	}
	m.last++
	id := strconv.FormatInt(m.last, 10)
	m.stable[raw] = id
	return id
}

// Last returns the most recently allocated identity number.
func (m *IdentityMap) Last() int64 {
	return m.last
}

// Len returns the number of raw ids seen.
func (m *IdentityMap) Len() int {
	return len(m.stable)
}
