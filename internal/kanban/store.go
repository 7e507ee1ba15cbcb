package kanban

import (
	"context"

	"boardd/internal/model"
)

// BoardStore persists boards and their column documents. Implementations
// guarantee atomicity per column document only: a save either fully
// replaces the column or leaves the prior state in place. Nothing spans
// two documents atomically.
type BoardStore interface {
	CreateBoard(ctx context.Context, board *model.Board, columns []model.Column) error
	GetBoard(ctx context.Context, id string) (*model.Board, error)
	SaveBoard(ctx context.Context, board *model.Board) error
	DeleteBoard(ctx context.Context, id string) error
	ListBoards(ctx context.Context) ([]model.Board, error)

	GetColumn(ctx context.Context, boardID, columnID string) (*model.Column, error)
	SaveColumn(ctx context.Context, boardID string, column *model.Column) error
	DeleteColumn(ctx context.Context, boardID, columnID string) error

	// MutateColumn applies mutate to the current column document and
	// saves the result, as a single read-modify-write. An error from
	// mutate aborts the save.
	MutateColumn(ctx context.Context, boardID, columnID string, mutate func(*model.Column) error) error
}

// UserStore persists user accounts and resolves session tokens.
type UserStore interface {
	FindByToken(ctx context.Context, token string) (*model.User, error)
	FindByProviderLogin(ctx context.Context, provider, login string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
}
