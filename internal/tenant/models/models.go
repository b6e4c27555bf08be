package models

import (
	"time"

	id "fichaje/pkg/domain"
)

// Company is the tenant root. Administration of companies lives in the
// back-office collaborator; the core only scopes data by it.
type Company struct {
	ID        id.CompanyID `json:"id"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"created_at"`
}

// Branch is a physical site of a company.
type Branch struct {
	ID        id.BranchID  `json:"id"`
	CompanyID id.CompanyID `json:"company_id"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"created_at"`
}

// User is a platform account. Identity verification is out of scope; the core
// trusts the authenticated user id from the token.
type User struct {
	ID     id.UserID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Active bool      `json:"active"`
}

// Membership binds a user to a company (and usually one branch) with a role.
// Every punch, schedule and incident hangs off a membership, so resolving it
// is the entry choke point for all attendance operations.
type Membership struct {
	ID        id.MembershipID `json:"id"`
	UserID    id.UserID       `json:"user_id"`
	CompanyID id.CompanyID    `json:"company_id"`
	BranchID  id.BranchID     `json:"branch_id"`
	Role      id.Role         `json:"role"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}
