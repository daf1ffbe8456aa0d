package model

import "testing"

func TestScopeAllows(t *testing.T) {
	cases := []struct {
		have, need string
		want       bool
	}{
		{ScopeAdmin, ScopeAdmin, true},
		{ScopeAdmin, ScopeWrite, true},
		{ScopeAdmin, ScopeRead, true},
		{ScopeWrite, ScopeRead, true},
		{ScopeWrite, ScopeWrite, true},
		{ScopeWrite, ScopeAdmin, false},
		{ScopeRead, ScopeWrite, false},
		{"bogus", ScopeRead, false},
		{ScopeRead, "bogus", false},
	}
	for _, c := range cases {
		if got := ScopeAllows(c.have, c.need); got != c.want {
			t.Errorf("ScopeAllows(%q, %q) = %v, want %v", c.have, c.need, got, c.want)
		}
	}
}
