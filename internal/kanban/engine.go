package kanban

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"boardd/internal/model"
)

// Engine applies ordering mutations to column documents. Every operation
// preserves two invariants: a card id appears at most once per column,
// and insert positions are clamped to [0, len] of the sequence after any
// removal.
type Engine struct {
	store BoardStore
	log   *zap.Logger
}

func NewEngine(store BoardStore, log *zap.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// MoveWithinColumn splices the card out of its current position and
// reinserts it at the clamped index, in one column read-modify-write.
func (e *Engine) MoveWithinColumn(ctx context.Context, boardID, columnID, cardID string, newIndex int) error {
	return e.store.MutateColumn(ctx, boardID, columnID, func(col *model.Column) error {
		i := indexOfCard(col.Cards, cardID)
		if i < 0 {
			return &NotFoundError{Resource: "card", ID: cardID}
		}
		card := col.Cards[i]
		col.Cards = append(col.Cards[:i], col.Cards[i+1:]...)
		col.Cards = insertCard(col.Cards, card, newIndex)
		return nil
	})
}

// MoveAcrossColumns removes the card from the source column and inserts
// it into the destination at the clamped index. The two column saves are
// independent: if one fails after the other succeeded, the card is
// logically duplicated or lost and needs manual reconciliation. There is
// no cross-document transaction to lean on.
func (e *Engine) MoveAcrossColumns(ctx context.Context, boardID, sourceID, destID, cardID string, newIndex int) error {
	src, err := e.store.GetColumn(ctx, boardID, sourceID)
	if err != nil {
		return err
	}
	i := indexOfCard(src.Cards, cardID)
	if i < 0 {
		return &NotFoundError{Resource: "card", ID: cardID}
	}
	card := src.Cards[i]

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.store.MutateColumn(gctx, boardID, sourceID, func(col *model.Column) error {
			j := indexOfCard(col.Cards, cardID)
			if j < 0 {
				return &NotFoundError{Resource: "card", ID: cardID}
			}
			col.Cards = append(col.Cards[:j], col.Cards[j+1:]...)
			return nil
		})
	})
	g.Go(func() error {
		return e.store.MutateColumn(gctx, boardID, destID, func(col *model.Column) error {
			col.Cards = insertCard(col.Cards, card, newIndex)
			return nil
		})
	})
	return g.Wait()
}

// BatchImport constructs a card per payload and appends them all to the
// column in payload order, saving the column once. A payload that fails
// to build aborts the whole batch before anything is persisted, so the
// column never references half-committed cards.
func (e *Engine) BatchImport(ctx context.Context, boardID, columnID string, payloads []model.CardAttributes) (int, error) {
	cards := make([]model.Card, 0, len(payloads))
	for _, attrs := range payloads {
		card, err := buildCard(attrs)
		if err != nil {
			return 0, fmt.Errorf("build imported card: %w", err)
		}
		cards = append(cards, card)
	}
	err := e.store.MutateColumn(ctx, boardID, columnID, func(col *model.Column) error {
		col.Cards = append(col.Cards, cards...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.log.Info("batch import committed",
		zap.String("board", boardID),
		zap.String("column", columnID),
		zap.Int("cards", len(cards)))
	return len(cards), nil
}

// WebhookUpsert applies a provider webhook to the board. "opened"
// appends a new card, built from attrs, to the board's first column.
// "created", "closed" and "reopened" replace the remoteObject of the
// card matching the issue id, scanning columns in board order; the
// card's column and index are left untouched even on close/reopen. Any
// other action is a no-op.
func (e *Engine) WebhookUpsert(ctx context.Context, board *model.Board, action string, issue *model.RemoteIssue, attrs model.CardAttributes) error {
	switch action {
	case "opened":
		firstID, err := e.firstColumnID(ctx, board)
		if err != nil {
			return err
		}
		card, err := buildCard(attrs)
		if err != nil {
			return err
		}
		return e.store.MutateColumn(ctx, board.ID, firstID, func(col *model.Column) error {
			col.Cards = append(col.Cards, card)
			return nil
		})
	case "created", "closed", "reopened":
		columnID, cardID, err := e.findByRemoteID(ctx, board, issue.ID)
		if err != nil {
			return err
		}
		return e.store.MutateColumn(ctx, board.ID, columnID, func(col *model.Column) error {
			i := indexOfCard(col.Cards, cardID)
			if i < 0 {
				return &NotFoundError{Resource: "card", ID: cardID}
			}
			col.Cards[i].RemoteObject = issue
			return nil
		})
	default:
		e.log.Debug("ignoring webhook action", zap.String("action", action))
		return nil
	}
}

// firstColumnID returns the id of the column tagged RoleFirst, falling
// back to the first column in board order.
func (e *Engine) firstColumnID(ctx context.Context, board *model.Board) (string, error) {
	if len(board.ColumnIDs) == 0 {
		return "", &NotFoundError{Resource: "column"}
	}
	for _, id := range board.ColumnIDs {
		col, err := e.store.GetColumn(ctx, board.ID, id)
		if err != nil {
			return "", err
		}
		if col.Role == model.RoleFirst {
			return id, nil
		}
	}
	return board.ColumnIDs[0], nil
}

// findByRemoteID scans all columns in board order for the first card
// whose remoteObject id matches. First match wins; a duplicate remote id
// elsewhere on the board is never reached.
func (e *Engine) findByRemoteID(ctx context.Context, board *model.Board, remoteID int64) (columnID, cardID string, err error) {
	for _, colID := range board.ColumnIDs {
		col, err := e.store.GetColumn(ctx, board.ID, colID)
		if err != nil {
			return "", "", err
		}
		for _, card := range col.Cards {
			if card.RemoteObject != nil && card.RemoteObject.ID == remoteID {
				return colID, card.ID, nil
			}
		}
	}
	return "", "", &NotFoundError{Resource: "card", ID: fmt.Sprintf("remote:%d", remoteID)}
}

func buildCard(attrs model.CardAttributes) (model.Card, error) {
	if attrs.Title == "" {
		return model.Card{}, &ValidationError{Reason: "card title is required"}
	}
	return model.Card{
		ID:           uuid.NewString(),
		Title:        attrs.Title,
		Body:         attrs.Body,
		RemoteObject: attrs.RemoteObject,
	}, nil
}

func indexOfCard(cards []model.Card, id string) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func insertCard(cards []model.Card, card model.Card, at int) []model.Card {
	if at < 0 {
		at = 0
	}
	if at > len(cards) {
		at = len(cards)
	}
	out := make([]model.Card, 0, len(cards)+1)
	out = append(out, cards[:at]...)
	out = append(out, card)
	out = append(out, cards[at:]...)
	return out
}
