// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StackGate Contributors

package access

// Set is a set of permission keys. Membership is the only operation
// authorization needs; ordering is irrelevant.
type Set map[Key]struct{}

// NewSet builds a set from keys.
func NewSet(keys ...Key) Set {
	s := make(Set, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether the key is in the set.
func (s Set) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// HasAll reports whether every key is in the set. An empty requirement is
// vacuously satisfied.
func (s Set) HasAll(keys ...Key) bool {
	for _, k := range keys {
		if !s.Has(k) {
			return false
		}
	}
	return true
}

// HasAny reports whether at least one key is in the set.
func (s Set) HasAny(keys ...Key) bool {
	for _, k := range keys {
		if s.Has(k) {
			return true
		}
	}
	return false
}

// Keys returns the members of the set in unspecified order.
func (s Set) Keys() []Key {
	out := make([]Key, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}
