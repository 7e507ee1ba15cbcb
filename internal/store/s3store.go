package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"boardd/internal/kanban"
	"boardd/internal/model"
)

const (
	boardsPrefix = "boards/"
	usersKey     = "users.json"

	opTimeout = 10 * time.Second
)

// S3Store implements kanban.BoardStore and kanban.UserStore on top of a
// bucket. A PutObject fully replaces one document or fails leaving the
// prior object intact; there is no multi-key transaction, so cross-column
// operations are only as consistent as their individual saves.
type S3Store struct {
	client *s3.Client
	bucket string
	log    *zap.Logger

	// serializes read-modify-write of users.json within this process
	usersMu sync.Mutex
}

func NewS3Store(client *s3.Client, bucket string, log *zap.Logger) *S3Store {
	return &S3Store{client: client, bucket: bucket, log: log}
}

func boardKey(id string) string {
	return boardsPrefix + id + "/board.json"
}

func columnKey(boardID, columnID string) string {
	return boardsPrefix + boardID + "/columns/" + columnID + ".json"
}

func (s *S3Store) CreateBoard(ctx context.Context, board *model.Board, columns []model.Column) error {
	for i := range columns {
		if err := s.SaveColumn(ctx, board.ID, &columns[i]); err != nil {
			return err
		}
	}
	return s.putJSON(ctx, boardKey(board.ID), board)
}

func (s *S3Store) GetBoard(ctx context.Context, id string) (*model.Board, error) {
	var board model.Board
	if err := s.getJSON(ctx, boardKey(id), &board); err != nil {
		if isNoSuchKey(err) {
			return nil, &kanban.NotFoundError{Resource: "board", ID: id}
		}
		return nil, err
	}
	return &board, nil
}

func (s *S3Store) SaveBoard(ctx context.Context, board *model.Board) error {
	return s.putJSON(ctx, boardKey(board.ID), board)
}

func (s *S3Store) DeleteBoard(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	prefix := boardsPrefix + id + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
		Prefix: &prefix,
	})
	deleted := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("error listing board objects: %w", err)
		}
		for _, obj := range page.Contents {
			_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: &s.bucket,
				Key:    obj.Key,
			})
			if err != nil {
				return fmt.Errorf("error deleting %s: %w", aws.ToString(obj.Key), err)
			}
			deleted++
		}
	}
	if deleted == 0 {
		return &kanban.NotFoundError{Resource: "board", ID: id}
	}
	s.log.Debug("board objects deleted", zap.String("board", id), zap.Int("objects", deleted))
	return nil
}

func (s *S3Store) ListBoards(ctx context.Context) ([]model.Board, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	prefix := boardsPrefix
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
		Prefix: &prefix,
	})
	var boards []model.Board
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing boards: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, "/board.json") {
				continue
			}
			var board model.Board
			if err := s.getJSON(ctx, key, &board); err != nil {
				return nil, err
			}
			boards = append(boards, board)
		}
	}
	return boards, nil
}

func (s *S3Store) GetColumn(ctx context.Context, boardID, columnID string) (*model.Column, error) {
	var col model.Column
	if err := s.getJSON(ctx, columnKey(boardID, columnID), &col); err != nil {
		if isNoSuchKey(err) {
			return nil, &kanban.NotFoundError{Resource: "column", ID: columnID}
		}
		return nil, err
	}
	return &col, nil
}

func (s *S3Store) SaveColumn(ctx context.Context, boardID string, column *model.Column) error {
	return s.putJSON(ctx, columnKey(boardID, column.ID), column)
}

func (s *S3Store) DeleteColumn(ctx context.Context, boardID, columnID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(columnKey(boardID, columnID)),
	})
	if err != nil {
		return fmt.Errorf("error deleting column %s: %w", columnID, err)
	}
	return nil
}

func (s *S3Store) MutateColumn(ctx context.Context, boardID, columnID string, mutate func(*model.Column) error) error {
	col, err := s.GetColumn(ctx, boardID, columnID)
	if err != nil {
		return err
	}
	if err := mutate(col); err != nil {
		return err
	}
	return s.SaveColumn(ctx, boardID, col)
}

func (s *S3Store) FindByToken(ctx context.Context, token string) (*model.User, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Token == token {
			return &users[i], nil
		}
	}
	return nil, &kanban.NotFoundError{Resource: "user"}
}

func (s *S3Store) FindByProviderLogin(ctx context.Context, provider, login string) (*model.User, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Provider == provider && users[i].Login == login {
			return &users[i], nil
		}
	}
	return nil, &kanban.NotFoundError{Resource: "user", ID: login}
}

func (s *S3Store) CreateUser(ctx context.Context, user *model.User) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	users = append(users, *user)
	return s.putJSON(ctx, usersKey, users)
}

func (s *S3Store) loadUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.getJSON(ctx, usersKey, &users); err != nil {
		if isNoSuchKey(err) {
			return nil, nil
		}
		return nil, err
	}
	return users, nil
}

func (s *S3Store) getJSON(ctx context.Context, key string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("error loading %s: %w", key, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error decoding %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) putJSON(ctx context.Context, key string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding %s: %w", key, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("error saving %s: %w", key, err)
	}
	return nil
}
