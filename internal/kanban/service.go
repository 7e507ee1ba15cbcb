package kanban

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"boardd/internal/model"
	"boardd/internal/provider"
)

// Service enforces board authorization and sequences engine calls with
// persistence. All mutations go through here.
type Service struct {
	store     BoardStore
	engine    *Engine
	providers *provider.Registry
	log       *zap.Logger
}

func NewService(store BoardStore, engine *Engine, providers *provider.Registry, log *zap.Logger) *Service {
	return &Service{store: store, engine: engine, providers: providers, log: log}
}

var defaultColumns = []model.Column{
	{Name: "Inbox", Role: model.RoleFirst},
	{Name: "Doing"},
	{Name: "Done"},
}

// BoardSummary is the listing shape: id and name only.
type BoardSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateBoard creates a board with the default Inbox/Doing/Done columns
// and the owner as its sole authorized user.
func (s *Service) CreateBoard(ctx context.Context, name, ownerID string) (*model.Board, error) {
	return s.createWithDefaultColumns(ctx, name, []string{ownerID})
}

func (s *Service) createWithDefaultColumns(ctx context.Context, name string, authorized []string) (*model.Board, error) {
	board := &model.Board{
		ID:              uuid.NewString(),
		Name:            name,
		AuthorizedUsers: authorized,
	}
	columns := make([]model.Column, len(defaultColumns))
	for i, col := range defaultColumns {
		col.ID = uuid.NewString()
		col.Cards = []model.Card{}
		columns[i] = col
		board.ColumnIDs = append(board.ColumnIDs, col.ID)
	}
	if err := s.store.CreateBoard(ctx, board, columns); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	s.log.Info("board created", zap.String("board", board.ID), zap.String("name", name))
	return board, nil
}

// Seed creates a default board on first run if no board exists yet.
func (s *Service) Seed(ctx context.Context, name string) error {
	boards, err := s.store.ListBoards(ctx)
	if err != nil {
		return err
	}
	if len(boards) > 0 {
		return nil
	}
	_, err = s.createWithDefaultColumns(ctx, name, nil)
	return err
}

// ListBoards returns the boards that authorize the requesting user.
func (s *Service) ListBoards(ctx context.Context, userID string) ([]BoardSummary, error) {
	boards, err := s.store.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	summaries := []BoardSummary{}
	for i := range boards {
		if boards[i].Authorizes(userID) {
			summaries = append(summaries, BoardSummary{ID: boards[i].ID, Name: boards[i].Name})
		}
	}
	return summaries, nil
}

// Snapshot loads the full board with columns populated, for reads and
// exports.
func (s *Service) Snapshot(ctx context.Context, id, userID string) (*model.Snapshot, error) {
	board, err := s.authorized(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, board)
}

func (s *Service) DeleteBoard(ctx context.Context, id, userID string) error {
	if _, err := s.authorized(ctx, id, userID); err != nil {
		return err
	}
	if err := s.store.DeleteBoard(ctx, id); err != nil {
		return err
	}
	s.log.Info("board deleted", zap.String("board", id))
	return nil
}

// AddAuthorizedUser grants a user access. Adding an already-present user
// is a conflict, not an idempotent success.
func (s *Service) AddAuthorizedUser(ctx context.Context, id, requesterID, userID string) ([]string, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("malformed user id %q", userID)}
	}
	board, err := s.authorized(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if board.Authorizes(userID) {
		return nil, &ConflictError{Reason: "user already authorized"}
	}
	board.AuthorizedUsers = append(board.AuthorizedUsers, userID)
	if err := s.store.SaveBoard(ctx, board); err != nil {
		return nil, err
	}
	return board.AuthorizedUsers, nil
}

// RemoveAuthorizedUser revokes access. Removing a user who is not on the
// list fails with NotFoundError.
func (s *Service) RemoveAuthorizedUser(ctx context.Context, id, requesterID, userID string) ([]string, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("malformed user id %q", userID)}
	}
	board, err := s.authorized(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	at := -1
	for i, existing := range board.AuthorizedUsers {
		if existing == userID {
			at = i
			break
		}
	}
	if at < 0 {
		return nil, &NotFoundError{Resource: "authorized user", ID: userID}
	}
	board.AuthorizedUsers = append(board.AuthorizedUsers[:at], board.AuthorizedUsers[at+1:]...)
	if err := s.store.SaveBoard(ctx, board); err != nil {
		return nil, err
	}
	return board.AuthorizedUsers, nil
}

// UpdateLinks merges the given repos into the board's links for one
// provider, keyed by repo id.
func (s *Service) UpdateLinks(ctx context.Context, id, userID, providerName string, repos []model.RemoteRepo) (model.Links, error) {
	board, err := s.authorized(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if board.Links == nil {
		board.Links = model.Links{}
	}
	if board.Links[providerName] == nil {
		board.Links[providerName] = map[string]model.RemoteRepo{}
	}
	for _, repo := range repos {
		board.Links[providerName][fmt.Sprintf("%d", repo.ID)] = repo
	}
	if err := s.store.SaveBoard(ctx, board); err != nil {
		return nil, err
	}
	return board.Links, nil
}

// ImportCards runs a provider batch import into the board's first
// column and returns the refreshed board.
func (s *Service) ImportCards(ctx context.Context, id, userID, providerName string, body []byte) (*model.Snapshot, error) {
	board, err := s.authorized(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	prov, ok := s.providers.Get(providerName)
	if !ok {
		return nil, &NotFoundError{Resource: "provider", ID: providerName}
	}
	firstID, err := s.engine.firstColumnID(ctx, board)
	if err != nil {
		return nil, err
	}
	var payloads []model.CardAttributes
	if err := prov.BatchImport(board, body, func(attrs model.CardAttributes) {
		payloads = append(payloads, attrs)
	}); err != nil {
		return nil, fmt.Errorf("provider %s import: %w", providerName, err)
	}
	if _, err := s.engine.BatchImport(ctx, board.ID, firstID, payloads); err != nil {
		return nil, err
	}
	return s.snapshot(ctx, board)
}

// MoveCard routes a move to the engine: one column document touched for
// a same-column move, two for a cross-column move.
func (s *Service) MoveCard(ctx context.Context, id, userID, cardID, oldColumn, newColumn string, newIndex int) error {
	board, err := s.authorized(ctx, id, userID)
	if err != nil {
		return err
	}
	for _, colID := range []string{oldColumn, newColumn} {
		if !containsString(board.ColumnIDs, colID) {
			return &NotFoundError{Resource: "column", ID: colID}
		}
	}
	if oldColumn == newColumn {
		return s.engine.MoveWithinColumn(ctx, board.ID, oldColumn, cardID, newIndex)
	}
	return s.engine.MoveAcrossColumns(ctx, board.ID, oldColumn, newColumn, cardID, newIndex)
}

// AddCard appends a manually created card to the column at the given
// board index.
func (s *Service) AddCard(ctx context.Context, id, userID string, columnIndex int, attrs model.CardAttributes) (*model.Snapshot, error) {
	board, err := s.authorized(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	colID, err := columnAt(board, columnIndex)
	if err != nil {
		return nil, err
	}
	card, err := buildCard(attrs)
	if err != nil {
		return nil, err
	}
	err = s.store.MutateColumn(ctx, board.ID, colID, func(col *model.Column) error {
		col.Cards = append(col.Cards, card)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, board)
}

// RemoveCard splices the card at the given position out of its column.
func (s *Service) RemoveCard(ctx context.Context, id, userID string, columnIndex, cardIndex int) (*model.Snapshot, error) {
	board, err := s.authorized(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	colID, err := columnAt(board, columnIndex)
	if err != nil {
		return nil, err
	}
	err = s.store.MutateColumn(ctx, board.ID, colID, func(col *model.Column) error {
		if cardIndex < 0 || cardIndex >= len(col.Cards) {
			return &NotFoundError{Resource: "card", ID: fmt.Sprintf("index %d", cardIndex)}
		}
		col.Cards = append(col.Cards[:cardIndex], col.Cards[cardIndex+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, board)
}

// RemoveColumn splices the column at the given index out of the board
// order, then drops its document.
func (s *Service) RemoveColumn(ctx context.Context, id, userID string, columnIndex int) (*model.Snapshot, error) {
	board, err := s.authorized(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	colID, err := columnAt(board, columnIndex)
	if err != nil {
		return nil, err
	}
	board.ColumnIDs = append(board.ColumnIDs[:columnIndex], board.ColumnIDs[columnIndex+1:]...)
	if err := s.store.SaveBoard(ctx, board); err != nil {
		return nil, err
	}
	if err := s.store.DeleteColumn(ctx, board.ID, colID); err != nil {
		return nil, err
	}
	return s.snapshot(ctx, board)
}

// Webhook applies an unauthenticated provider notification to the board.
func (s *Service) Webhook(ctx context.Context, boardID, providerName, repoID, action string, issue *model.RemoteIssue) error {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}
	prov, ok := s.providers.Get(providerName)
	if !ok {
		return &NotFoundError{Resource: "provider", ID: providerName}
	}
	var attrs model.CardAttributes
	switch action {
	case "opened", "created", "closed", "reopened":
		if issue == nil {
			return &ValidationError{Reason: "webhook payload has no issue"}
		}
		if action == "opened" {
			attrs = prov.NewCard(repoID, issue)
		}
	}
	return s.engine.WebhookUpsert(ctx, board, action, issue, attrs)
}

// authorized loads a board and checks the requesting user against its
// authorized set.
func (s *Service) authorized(ctx context.Context, boardID, userID string) (*model.Board, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if !board.Authorizes(userID) {
		return nil, &ForbiddenError{BoardID: boardID, UserID: userID}
	}
	return board, nil
}

func (s *Service) snapshot(ctx context.Context, board *model.Board) (*model.Snapshot, error) {
	columns, err := s.loadColumns(ctx, board)
	if err != nil {
		return nil, err
	}
	return &model.Snapshot{
		ID:              board.ID,
		Name:            board.Name,
		Columns:         columns,
		AuthorizedUsers: board.AuthorizedUsers,
		Links:           board.Links,
	}, nil
}

func (s *Service) loadColumns(ctx context.Context, board *model.Board) ([]model.Column, error) {
	columns := make([]model.Column, 0, len(board.ColumnIDs))
	for _, colID := range board.ColumnIDs {
		col, err := s.store.GetColumn(ctx, board.ID, colID)
		if err != nil {
			return nil, err
		}
		columns = append(columns, *col)
	}
	return columns, nil
}

func columnAt(board *model.Board, index int) (string, error) {
	if index < 0 || index >= len(board.ColumnIDs) {
		return "", &NotFoundError{Resource: "column", ID: fmt.Sprintf("index %d", index)}
	}
	return board.ColumnIDs[index], nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
