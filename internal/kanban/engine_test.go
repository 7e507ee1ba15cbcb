package kanban_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"boardd/internal/kanban"
	"boardd/internal/model"
	"boardd/internal/store"
)

func card(id string) model.Card {
	return model.Card{ID: id, Title: id}
}

func remoteCard(id string, remoteID int64) model.Card {
	return model.Card{ID: id, Title: id, RemoteObject: &model.RemoteIssue{ID: remoteID, Title: id}}
}

// seedBoard creates a board with Inbox (role first), Doing and Done
// columns holding the given cards.
func seedBoard(t *testing.T, st *store.MemoryStore, inbox, doing, done []model.Card) *model.Board {
	t.Helper()
	board := &model.Board{
		ID:              "b1",
		Name:            "Test Board",
		ColumnIDs:       []string{"inbox", "doing", "done"},
		AuthorizedUsers: []string{},
	}
	columns := []model.Column{
		{ID: "inbox", Name: "Inbox", Role: model.RoleFirst, Cards: inbox},
		{ID: "doing", Name: "Doing", Cards: doing},
		{ID: "done", Name: "Done", Cards: done},
	}
	require.NoError(t, st.CreateBoard(context.Background(), board, columns))
	return board
}

func cardIDs(t *testing.T, st *store.MemoryStore, boardID, columnID string) []string {
	t.Helper()
	col, err := st.GetColumn(context.Background(), boardID, columnID)
	require.NoError(t, err)
	ids := make([]string, len(col.Cards))
	for i, c := range col.Cards {
		ids[i] = c.ID
	}
	return ids
}

func TestMoveWithinColumn(t *testing.T) {
	ctx := context.Background()

	t.Run("moves first card to the end", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedBoard(t, st, []model.Card{card("A"), card("B"), card("C")}, nil, nil)
		e := kanban.NewEngine(st, zap.NewNop())

		require.NoError(t, e.MoveWithinColumn(ctx, "b1", "inbox", "A", 2))
		assert.Equal(t, []string{"B", "C", "A"}, cardIDs(t, st, "b1", "inbox"))
	})

	t.Run("clamps an index past the end", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedBoard(t, st, []model.Card{card("A"), card("B"), card("C")}, nil, nil)
		e := kanban.NewEngine(st, zap.NewNop())

		require.NoError(t, e.MoveWithinColumn(ctx, "b1", "inbox", "A", 99))
		assert.Equal(t, []string{"B", "C", "A"}, cardIDs(t, st, "b1", "inbox"))
	})

	t.Run("clamps a negative index to zero", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedBoard(t, st, []model.Card{card("A"), card("B"), card("C")}, nil, nil)
		e := kanban.NewEngine(st, zap.NewNop())

		require.NoError(t, e.MoveWithinColumn(ctx, "b1", "inbox", "C", -5))
		assert.Equal(t, []string{"C", "A", "B"}, cardIDs(t, st, "b1", "inbox"))
	})

	t.Run("moving a card back restores the original sequence", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedBoard(t, st, []model.Card{card("A"), card("B"), card("C")}, nil, nil)
		e := kanban.NewEngine(st, zap.NewNop())

		require.NoError(t, e.MoveWithinColumn(ctx, "b1", "inbox", "B", 2))
		require.NoError(t, e.MoveWithinColumn(ctx, "b1", "inbox", "B", 1))
		assert.Equal(t, []string{"A", "B", "C"}, cardIDs(t, st, "b1", "inbox"))
	})

	t.Run("missing card leaves the column unchanged", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedBoard(t, st, []model.Card{card("A")}, nil, nil)
		e := kanban.NewEngine(st, zap.NewNop())

		err := e.MoveWithinColumn(ctx, "b1", "inbox", "nope", 0)
		var nf *kanban.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, []string{"A"}, cardIDs(t, st, "b1", "inbox"))
	})
}

func TestMoveAcrossColumns(t *testing.T) {
	ctx := context.Background()

	t.Run("preserves the total card count", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedBoard(t, st, []model.Card{card("A"), card("B")}, []model.Card{card("X")}, nil)
		e := kanban.NewEngine(st, zap.NewNop())

		require.NoError(t, e.MoveAcrossColumns(ctx, "b1", "inbox", "doing", "A", 1))
		inbox := cardIDs(t, st, "b1", "inbox")
		doing := cardIDs(t, st, "b1", "doing")
		assert.Equal(t, []string{"B"}, inbox)
		assert.Equal(t, []string{"X", "A"}, doing)
		assert.Len(t, append(inbox, doing...), 3)
	})

	t.Run("clamps the destination index", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedBoard(t, st, []model.Card{card("A")}, []model.Card{card("X"), card("Y")}, nil)
		e := kanban.NewEngine(st, zap.NewNop())

		require.NoError(t, e.MoveAcrossColumns(ctx, "b1", "inbox", "doing", "A", 42))
		assert.Equal(t, []string{"X", "Y", "A"}, cardIDs(t, st, "b1", "doing"))
	})

	t.Run("card absent in source leaves both columns unchanged", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedBoard(t, st, nil, nil, nil)
		e := kanban.NewEngine(st, zap.NewNop())

		err := e.MoveAcrossColumns(ctx, "b1", "inbox", "doing", "card1", 0)
		var nf *kanban.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Empty(t, cardIDs(t, st, "b1", "inbox"))
		assert.Empty(t, cardIDs(t, st, "b1", "doing"))
	})

	t.Run("destination save failure surfaces the consistency gap", func(t *testing.T) {
		// The two column saves are independent. When the destination
		// write fails after the source write succeeded, the card is
		// gone from both columns and the caller gets the error.
		st := store.NewMemoryStore()
		seedBoard(t, st, []model.Card{card("A")}, nil, nil)
		st.FailColumnSave = "doing"
		e := kanban.NewEngine(st, zap.NewNop())

		err := e.MoveAcrossColumns(ctx, "b1", "inbox", "doing", "A", 0)
		require.Error(t, err)
		assert.Empty(t, cardIDs(t, st, "b1", "inbox"))
		assert.Empty(t, cardIDs(t, st, "b1", "doing"))
	})
}

func TestBatchImport(t *testing.T) {
	ctx := context.Background()

	t.Run("appends exactly N cards after the existing ones", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedBoard(t, st, []model.Card{card("old1"), card("old2")}, nil, nil)
		e := kanban.NewEngine(st, zap.NewNop())

		payloads := []model.CardAttributes{
			{Title: "one", RemoteObject: &model.RemoteIssue{ID: 1, Title: "one"}},
			{Title: "two", RemoteObject: &model.RemoteIssue{ID: 2, Title: "two"}},
			{Title: "three", RemoteObject: &model.RemoteIssue{ID: 3, Title: "three"}},
		}
		n, err := e.BatchImport(ctx, "b1", "inbox", payloads)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		col, err := st.GetColumn(ctx, "b1", "inbox")
		require.NoError(t, err)
		require.Len(t, col.Cards, 5)
		assert.Equal(t, "old1", col.Cards[0].ID)
		assert.Equal(t, "old2", col.Cards[1].ID)
		assert.Equal(t, "one", col.Cards[2].Title)
		assert.Equal(t, "three", col.Cards[4].Title)
		assert.NotEmpty(t, col.Cards[2].ID)
	})

	t.Run("a bad payload aborts the batch before anything persists", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedBoard(t, st, []model.Card{card("old")}, nil, nil)
		e := kanban.NewEngine(st, zap.NewNop())

		payloads := []model.CardAttributes{
			{Title: "fine"},
			{Title: ""}, // invalid
		}
		_, err := e.BatchImport(ctx, "b1", "inbox", payloads)
		require.Error(t, err)
		assert.Equal(t, []string{"old"}, cardIDs(t, st, "b1", "inbox"))
	})
}

func TestWebhookUpsert(t *testing.T) {
	ctx := context.Background()

	t.Run("opened appends one card to the first column", func(t *testing.T) {
		st := store.NewMemoryStore()
		board := seedBoard(t, st, []model.Card{card("existing")}, nil, nil)
		e := kanban.NewEngine(st, zap.NewNop())

		issue := &model.RemoteIssue{ID: 77, Title: "new issue"}
		attrs := model.CardAttributes{Title: issue.Title, RemoteObject: issue}
		require.NoError(t, e.WebhookUpsert(ctx, board, "opened", issue, attrs))

		col, err := st.GetColumn(ctx, "b1", "inbox")
		require.NoError(t, err)
		require.Len(t, col.Cards, 2)
		assert.Equal(t, "new issue", col.Cards[1].Title)
		require.NotNil(t, col.Cards[1].RemoteObject)
		assert.Equal(t, int64(77), col.Cards[1].RemoteObject.ID)
	})

	t.Run("closed replaces the remoteObject without moving the card", func(t *testing.T) {
		st := store.NewMemoryStore()
		board := seedBoard(t, st,
			[]model.Card{card("plain")},
			[]model.Card{remoteCard("linked", 42), card("after")},
			nil)
		e := kanban.NewEngine(st, zap.NewNop())

		update := &model.RemoteIssue{ID: 42, Title: "linked", State: "closed"}
		require.NoError(t, e.WebhookUpsert(ctx, board, "closed", update, model.CardAttributes{}))

		col, err := st.GetColumn(ctx, "b1", "doing")
		require.NoError(t, err)
		require.Len(t, col.Cards, 2)
		assert.Equal(t, "linked", col.Cards[0].ID)
		assert.Equal(t, "closed", col.Cards[0].RemoteObject.State)
		assert.Equal(t, "after", col.Cards[1].ID)
	})

	t.Run("closed on an unknown issue changes nothing", func(t *testing.T) {
		st := store.NewMemoryStore()
		board := seedBoard(t, st, []model.Card{remoteCard("linked", 1)}, nil, nil)
		e := kanban.NewEngine(st, zap.NewNop())

		err := e.WebhookUpsert(ctx, board, "closed", &model.RemoteIssue{ID: 999}, model.CardAttributes{})
		var nf *kanban.NotFoundError
		require.ErrorAs(t, err, &nf)

		col, getErr := st.GetColumn(ctx, "b1", "inbox")
		require.NoError(t, getErr)
		require.Len(t, col.Cards, 1)
		assert.Equal(t, int64(1), col.Cards[0].RemoteObject.ID)
	})

	t.Run("first match wins on duplicate remote ids", func(t *testing.T) {
		st := store.NewMemoryStore()
		board := seedBoard(t, st,
			[]model.Card{remoteCard("first", 5)},
			[]model.Card{remoteCard("second", 5)},
			nil)
		e := kanban.NewEngine(st, zap.NewNop())

		update := &model.RemoteIssue{ID: 5, State: "closed"}
		require.NoError(t, e.WebhookUpsert(ctx, board, "reopened", update, model.CardAttributes{}))

		inbox, err := st.GetColumn(ctx, "b1", "inbox")
		require.NoError(t, err)
		assert.Equal(t, "closed", inbox.Cards[0].RemoteObject.State)

		doing, err := st.GetColumn(ctx, "b1", "doing")
		require.NoError(t, err)
		assert.Equal(t, "", doing.Cards[0].RemoteObject.State)
	})

	t.Run("unknown actions are a no-op", func(t *testing.T) {
		st := store.NewMemoryStore()
		board := seedBoard(t, st, []model.Card{card("A")}, nil, nil)
		e := kanban.NewEngine(st, zap.NewNop())

		require.NoError(t, e.WebhookUpsert(ctx, board, "labeled", &model.RemoteIssue{ID: 1}, model.CardAttributes{}))
		assert.Equal(t, []string{"A"}, cardIDs(t, st, "b1", "inbox"))
	})
}
