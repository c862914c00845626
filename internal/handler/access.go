package handler

import (
	"context"

	"github.com/mhollis/keyturn/internal/auth"
	"github.com/mhollis/keyturn/internal/model"
)

// leaseVisible reports whether the caller may read this lease: managers
// see everything, tenants only their own lease.
func leaseVisible(ctx context.Context, lease *model.Lease) bool {
	if auth.CanManage(ctx) {
		return true
	}
	return lease.TenantID != nil && *lease.TenantID == auth.UserID(ctx)
}
