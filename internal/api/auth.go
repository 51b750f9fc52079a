// Package api implements the HTTP handlers and helpers of the planner service.
package api

import (
	"net/http"
	"strings"
)

// Roles known to the API.
const (
	RoleAdmin   = "admin"
	RolePlanner = "planner"
	RoleViewer  = "viewer"
)

type Principal struct {
	Tenant string
	Role   string // admin, planner, viewer
}

// getPrincipal reads tenant and role from the X-Tenant-Id and X-Role headers.
// Requests without them act as the demo tenant's admin.
func (s *Server) getPrincipal(r *http.Request) Principal {
	tenant := strings.TrimSpace(r.Header.Get("X-Tenant-Id"))
	role := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Role")))
	if tenant == "" {
		tenant = s.defaultTenant()
	}
	if role == "" {
		role = RoleAdmin
	}
	return Principal{Tenant: tenant, Role: role}
}

func (s *Server) defaultTenant() string {
	if s.DefaultTenant != "" {
		return s.DefaultTenant
	}
	return "t_demo"
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanPlan reports whether the principal may start runs.
func (p Principal) CanPlan() bool { return p.Role == RoleAdmin || p.Role == RolePlanner }
