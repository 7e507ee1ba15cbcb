package store

import (
	"context"
	"sync"

	"boardd/internal/kanban"
	"boardd/internal/model"
)

// MemoryStore is an in-process BoardStore and UserStore with the same
// per-document atomicity as the S3 implementation. It backs tests and
// local runs without a bucket.
type MemoryStore struct {
	mu      sync.Mutex
	boards  map[string]model.Board
	columns map[string]map[string]model.Column // boardID -> columnID -> column
	users   []model.User

	// FailColumnSave, when set, makes saves of that column fail. Tests
	// use it to exercise the cross-column consistency gap.
	FailColumnSave string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		boards:  make(map[string]model.Board),
		columns: make(map[string]map[string]model.Column),
	}
}

func (m *MemoryStore) CreateBoard(ctx context.Context, board *model.Board, columns []model.Column) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[board.ID] = cloneBoard(board)
	cols := make(map[string]model.Column, len(columns))
	for _, col := range columns {
		cols[col.ID] = cloneColumn(&col)
	}
	m.columns[board.ID] = cols
	return nil
}

func (m *MemoryStore) GetBoard(ctx context.Context, id string) (*model.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	board, ok := m.boards[id]
	if !ok {
		return nil, &kanban.NotFoundError{Resource: "board", ID: id}
	}
	board = cloneBoard(&board)
	return &board, nil
}

func (m *MemoryStore) SaveBoard(ctx context.Context, board *model.Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[board.ID] = cloneBoard(board)
	return nil
}

func (m *MemoryStore) DeleteBoard(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[id]; !ok {
		return &kanban.NotFoundError{Resource: "board", ID: id}
	}
	delete(m.boards, id)
	delete(m.columns, id)
	return nil
}

func (m *MemoryStore) ListBoards(ctx context.Context) ([]model.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	boards := make([]model.Board, 0, len(m.boards))
	for _, board := range m.boards {
		boards = append(boards, cloneBoard(&board))
	}
	return boards, nil
}

func (m *MemoryStore) GetColumn(ctx context.Context, boardID, columnID string) (*model.Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.columns[boardID][columnID]
	if !ok {
		return nil, &kanban.NotFoundError{Resource: "column", ID: columnID}
	}
	col = cloneColumn(&col)
	return &col, nil
}

func (m *MemoryStore) SaveColumn(ctx context.Context, boardID string, column *model.Column) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveColumnLocked(boardID, column)
}

func (m *MemoryStore) DeleteColumn(ctx context.Context, boardID, columnID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.columns[boardID], columnID)
	return nil
}

func (m *MemoryStore) MutateColumn(ctx context.Context, boardID, columnID string, mutate func(*model.Column) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.columns[boardID][columnID]
	if !ok {
		return &kanban.NotFoundError{Resource: "column", ID: columnID}
	}
	col = cloneColumn(&col)
	if err := mutate(&col); err != nil {
		return err
	}
	return m.saveColumnLocked(boardID, &col)
}

func (m *MemoryStore) saveColumnLocked(boardID string, column *model.Column) error {
	if m.FailColumnSave == column.ID {
		return &storageError{key: column.ID}
	}
	if m.columns[boardID] == nil {
		m.columns[boardID] = make(map[string]model.Column)
	}
	m.columns[boardID][column.ID] = cloneColumn(column)
	return nil
}

func (m *MemoryStore) FindByToken(ctx context.Context, token string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].Token == token {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, &kanban.NotFoundError{Resource: "user"}
}

func (m *MemoryStore) FindByProviderLogin(ctx context.Context, provider, login string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].Provider == provider && m.users[i].Login == login {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, &kanban.NotFoundError{Resource: "user", ID: login}
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = append(m.users, *user)
	return nil
}

type storageError struct {
	key string
}

func (e *storageError) Error() string {
	return "storage failure saving " + e.key
}

func cloneBoard(b *model.Board) model.Board {
	out := *b
	out.ColumnIDs = append([]string(nil), b.ColumnIDs...)
	out.AuthorizedUsers = append([]string(nil), b.AuthorizedUsers...)
	if b.Links != nil {
		out.Links = model.Links{}
		for prov, repos := range b.Links {
			out.Links[prov] = make(map[string]model.RemoteRepo, len(repos))
			for id, repo := range repos {
				out.Links[prov][id] = repo
			}
		}
	}
	return out
}

func cloneColumn(c *model.Column) model.Column {
	out := *c
	out.Cards = make([]model.Card, len(c.Cards))
	for i, card := range c.Cards {
		if card.RemoteObject != nil {
			remote := *card.RemoteObject
			card.RemoteObject = &remote
		}
		out.Cards[i] = card
	}
	return out
}
