// Package uow provides the atomic scope shared by the ledger and request
// stores. A scope is carried in the context: every store call made with the
// scoped context participates in it, and nested Do calls join the outer scope.
package uow

import "context"

// UnitOfWork runs fn inside one atomic scope. If fn returns an error every
// mutation made through the scoped context is discarded.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
