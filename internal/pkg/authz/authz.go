// Package authz decides whether a role may perform an action on an object.
// Policies use the casbin RBAC model with role inheritance.
package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/samber/lo"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// ErrBadPolicy is returned for a policy line that is neither "p,sub,obj,act"
// nor "g,role,parent".
var ErrBadPolicy = errors.New("authz: malformed policy")

// Authorizer answers access questions.
type Authorizer interface {
	Authorize(ctx context.Context, role, obj, act string) (bool, error)
}

// DefaultPolicies grant members read and scan access, admins session control
// and super admins everything admins can do.
var DefaultPolicies = []string{
	"g, admin, member",
	"g, super_admin, admin",
	"p, member, attendance.session, read",
	"p, member, attendance.scan, write",
	"p, member, livestatus, read",
	"p, admin, attendance.session, write",
	"p, admin, attendance.secret, read",
	"p, admin, attendance.archive, read",
}

// Casbin is an in-memory enforcer loaded from policy lines. Policies are
// fixed after construction so concurrent Authorize calls only read.
type Casbin struct {
	e *casbin.Enforcer
}

// NewCasbin builds an enforcer from lines such as "p, admin, attendance.session, write"
// and "g, super_admin, admin". An empty list loads DefaultPolicies.
func NewCasbin(lines []string) (*Casbin, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("authz: model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz: enforcer: %w", err)
	}

	if len(lines) == 0 {
		lines = DefaultPolicies
	}
	policies, groupings, err := parse(lines)
	if err != nil {
		return nil, err
	}

	if len(policies) > 0 {
		if _, err := e.AddPolicies(policies); err != nil {
			return nil, fmt.Errorf("authz: add policies: %w", err)
		}
	}
	if len(groupings) > 0 {
		if _, err := e.AddGroupingPolicies(groupings); err != nil {
			return nil, fmt.Errorf("authz: add groupings: %w", err)
		}
	}

	return &Casbin{e: e}, nil
}

func (c *Casbin) Authorize(_ context.Context, role, obj, act string) (bool, error) {
	if role == "" {
		return false, nil
	}
	return c.e.Enforce(role, obj, act)
}

func parse(lines []string) (policies, groupings [][]string, err error) {
	rows := lo.FilterMap(lines, func(line string, _ int) ([]string, bool) {
		fields := lo.Map(strings.Split(line, ","), func(s string, _ int) string { return strings.TrimSpace(s) })
		return fields, len(lo.Compact(fields)) > 0
	})

	for _, row := range rows {
		switch {
		case row[0] == "p" && len(row) == 4 && !lo.Contains(row[1:], ""):
			policies = append(policies, row[1:])
		case row[0] == "g" && len(row) == 3 && !lo.Contains(row[1:], ""):
			groupings = append(groupings, row[1:])
		default:
			return nil, nil, fmt.Errorf("%w: %q", ErrBadPolicy, strings.Join(row, ","))
		}
	}
	policies = lo.UniqBy(policies, func(p []string) string { return strings.Join(p, ",") })
	return policies, groupings, nil
}
