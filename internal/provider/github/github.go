// Package github adapts GitHub issues to board cards.
package github

import (
	"encoding/json"
	"fmt"

	"boardd/internal/model"
)

const Name = "github"

type Provider struct{}

func New() *Provider { return &Provider{} }

// importRequest is the body posted by the import flow: the open issues
// of one repository, already fetched from the GitHub API by the client.
type importRequest struct {
	OpenIssues []model.RemoteIssue `json:"openIssues"`
}

func (p *Provider) BatchImport(board *model.Board, body []byte, emit func(model.CardAttributes)) error {
	var req importRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("decode github import body: %w", err)
	}
	for i := range req.OpenIssues {
		issue := req.OpenIssues[i]
		emit(p.attributes(&issue))
	}
	return nil
}

func (p *Provider) NewCard(repoID string, issue *model.RemoteIssue) model.CardAttributes {
	remote := *issue
	remote.RepoID = repoID
	return p.attributes(&remote)
}

// CanImport mirrors the board frontend's repo filter.
func (p *Provider) CanImport(repo model.RemoteRepo) bool {
	return repo.HasIssues && repo.OpenIssues > 0
}

func (p *Provider) attributes(issue *model.RemoteIssue) model.CardAttributes {
	return model.CardAttributes{
		Title:        issue.Title,
		Body:         issue.Body,
		RemoteObject: issue,
	}
}
