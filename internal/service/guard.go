package service

import "context"

// UniquenessGuard checks whether a candidate code collides with
// another published coupon. Check must run after code normalization
// and before any write; the storage-level unique index remains the
// authoritative guard against the residual read-then-write race.
type UniquenessGuard interface {
	Check(ctx context.Context, code string, excludeID int64) (bool, error)
}

// CodeChecker is the repository capability the guard needs.
type CodeChecker interface {
	CodeExists(ctx context.Context, code string, excludeID int64) (bool, error)
}

// CodeGuard implements UniquenessGuard over the repository with a
// fresh read per check.
type CodeGuard struct {
	repo CodeChecker
}

// NewCodeGuard creates a CodeGuard backed by the given repository.
func NewCodeGuard(repo CodeChecker) *CodeGuard {
	return &CodeGuard{repo: repo}
}

// Check reports whether a published coupon other than excludeID
// already carries the code. Pass excludeID 0 on create.
func (g *CodeGuard) Check(ctx context.Context, code string, excludeID int64) (bool, error) {
	return g.repo.CodeExists(ctx, code, excludeID)
}
