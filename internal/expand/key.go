package expand

import (
	"hash/fnv"
	"strconv"
)

// Role names one text field of a detected auth component.
// Role values never contain '-', which keeps derived keys unambiguous.
type Role string

const (
	RoleForm     Role = "form"
	RoleHTML     Role = "html"
	RoleUsername Role = "username"
	RolePassword Role = "password"
	RoleSubmit   Role = "submit"
)

// Scope is the display context a result is rendered in: the single-URL slot
// or position N of the batch list.
type Scope struct {
	batch bool
	index int
}

// Single is the scope of the single-URL result.
func Single() Scope { return Scope{} }

// Batch is the scope of the batch entry at position index.
func Batch(index int) Scope { return Scope{batch: true, index: index} }

// Key identifies one content block for expand/collapse purposes.
type Key string

// NewKey derives the key of the block showing role for the result at url in
// scope. It is pure: the same inputs always give the same key, so keys are
// recomputed on every render instead of being stored.
//
// Single keys are "single-<role>-<url>", batch keys are
// "predefined-<role>-<index>-<url>". The prefixes differ, roles contain no
// '-', and the decimal index is terminated by the first '-' after it, so
// distinct (scope, role, url) triples never share a key.
func NewKey(scope Scope, role Role, url string) Key {
	if !scope.batch {
		return Key("single-" + string(role) + "-" + url)
	}
	return Key("predefined-" + string(role) + "-" + strconv.Itoa(scope.index) + "-" + url)
}

// Anchor returns a short identifier safe to use as an HTML id or URL
// fragment, derived from k.
func (k Key) Anchor() string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(k))
	return "blk-" + strconv.FormatUint(h.Sum64(), 36)
}
