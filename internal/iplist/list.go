// Package iplist implements the ordered, de-duplicated IP sets behind the
// console's whitelist and blacklist.
package iplist

import (
	"slices"
	"sync"

	"grimm.is/iwaf/internal/validation"
)

// Result is the outcome of a list mutation.
type Result string

const (
	Added     Result = "success"
	Duplicate Result = "duplicate"
	Invalid   Result = "invalid"
	Removed   Result = "removed"
)

// Severity maps a result onto the notification severity shown to the user.
func (r Result) Severity() string {
	switch r {
	case Added:
		return "success"
	case Duplicate:
		return "warning"
	case Invalid:
		return "error"
	}
	return "info"
}

// Name identifies one of the console's two lists.
type Name string

const (
	Whitelist Name = "whitelist"
	Blacklist Name = "blacklist"
)

// ParseName accepts the list names used in URLs and CLI arguments.
func ParseName(s string) (Name, bool) {
	switch Name(s) {
	case Whitelist, Blacklist:
		return Name(s), true
	}
	return "", false
}

// List is an insertion-ordered set of IP strings. Safe for concurrent use.
type List struct {
	mu      sync.RWMutex
	name    Name
	entries []string
}

// New creates a list pre-populated with seed. Invalid and repeated seed
// entries are skipped; the accepted entries are returned in order.
func New(name Name, seed ...string) *List {
	l := &List{name: name}
	for _, ip := range seed {
		l.Add(ip)
	}
	return l
}

// Name returns which list this is.
func (l *List) Name() Name {
	return l.name
}

// Add appends ip unless it is invalid or already present.
func (l *List) Add(ip string) Result {
	if !validation.IsValidIP(ip) {
		return Invalid
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if slices.Contains(l.entries, ip) {
		return Duplicate
	}
	l.entries = append(l.entries, ip)
	return Added
}

// Remove deletes every occurrence of ip. Removing an absent entry is a no-op
// and still reports Removed.
func (l *List) Remove(ip string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = slices.DeleteFunc(l.entries, func(e string) bool { return e == ip })
	return Removed
}

// Contains reports whether ip is a member.
func (l *List) Contains(ip string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Contains(l.entries, ip)
}

// Len returns the number of members.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// List returns a copy of the members in insertion order.
func (l *List) List() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}

// Replace swaps the contents for entries, applying the same validation and
// de-duplication as Add. It returns the rejected inputs.
func (l *List) Replace(entries []string) (rejected []string) {
	next := make([]string, 0, len(entries))
	for _, ip := range entries {
		if !validation.IsValidIP(ip) || slices.Contains(next, ip) {
			rejected = append(rejected, ip)
			continue
		}
		next = append(next, ip)
	}

	l.mu.Lock()
	l.entries = next
	l.mu.Unlock()
	return rejected
}
