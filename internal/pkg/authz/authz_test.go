package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCasbin_DefaultPolicies(t *testing.T) {
	a, err := NewCasbin(nil)
	require.NoError(t, err)

	tests := []struct {
		role string
		obj  string
		act  string
		want bool
	}{
		{role: "member", obj: "attendance.scan", act: "write", want: true},
		{role: "member", obj: "attendance.session", act: "read", want: true},
		{role: "member", obj: "attendance.session", act: "write", want: false},
		{role: "member", obj: "attendance.secret", act: "read", want: false},
		{role: "admin", obj: "attendance.session", act: "write", want: true},
		{role: "admin", obj: "attendance.scan", act: "write", want: true},
		{role: "super_admin", obj: "attendance.archive", act: "read", want: true},
		{role: "super_admin", obj: "livestatus", act: "read", want: true},
		{role: "guest", obj: "attendance.scan", act: "write", want: false},
		{role: "", obj: "attendance.scan", act: "write", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.role+" "+tt.obj+" "+tt.act, func(t *testing.T) {
			got, err := a.Authorize(context.Background(), tt.role, tt.obj, tt.act)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCasbin_CustomPolicies(t *testing.T) {
	t.Run("wildcards", func(t *testing.T) {
		a, err := NewCasbin([]string{"p, root, *, *", " ", "p, root, *, *"})
		require.NoError(t, err)

		ok, err := a.Authorize(context.Background(), "root", "anything", "delete")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, line := range []string{"p, admin, obj", "x, a, b", "g, admin", "p, , obj, act"} {
			_, err := NewCasbin([]string{line})
			assert.ErrorIs(t, err, ErrBadPolicy, line)
		}
	})
}
