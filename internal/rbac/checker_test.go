package rbac_test

import (
	"testing"

	"github.com/quizforge/quizforge/internal/rbac"
)

func TestDefaultPolicy(t *testing.T) {
	c := rbac.NewChecker(nil)

	cases := []struct {
		role string
		perm string
		want bool
	}{
		{"user", "quiz:sim", true},
		{"user", "history:view-own", true},
		{"user", "test:write", false},
		{"user", "question:write", false},
		{"admin", "question:write", true},
		{"admin", "quiz:sim", true},
		{"ghost", "quiz:sim", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestWildcardPrefix(t *testing.T) {
	c := rbac.NewChecker(map[string][]string{
		"editor": {"test:*", "history:view-own"},
	})

	if !c.Has("editor", "test:write") || !c.Has("editor", "test:delete") {
		t.Error("test:* should cover all test permissions")
	}
	if c.Has("editor", "user:create") {
		t.Error("test:* must not cover user permissions")
	}
	if !c.Any("editor", "user:create", "history:view-own") {
		t.Error("Any should succeed when one permission matches")
	}
	if c.Any("editor", "user:create", "event:read") {
		t.Error("Any should fail when nothing matches")
	}
}
