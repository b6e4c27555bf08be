// Package testutil provides shared helpers for service and handler tests.
package testutil

import (
	"context"
	"time"

	id "fichaje/pkg/domain"
	"fichaje/pkg/requestcontext"
)

// ContextAt returns a background context frozen at the given instant.
func ContextAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

// ActorContext returns a context carrying an authenticated actor and a frozen clock.
func ActorContext(now time.Time, userID id.UserID, companyID id.CompanyID, role id.Role) context.Context {
	return requestcontext.WithActor(ContextAt(now), userID, companyID, role)
}

// MustTime parses an RFC3339 timestamp or panics; for fixture literals only.
func MustTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}
