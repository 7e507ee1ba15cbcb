package model

// RoleFirst marks the column that receives imported cards and cards
// opened via webhook.
const RoleFirst = 1

// RemoteIssue is the last-known state of an issue on an external
// tracker, as delivered by an import or a webhook.
type RemoteIssue struct {
	ID      int64  `json:"id"`
	Number  int    `json:"number,omitempty"`
	Title   string `json:"title"`
	Body    string `json:"body,omitempty"`
	State   string `json:"state,omitempty"`
	HTMLURL string `json:"html_url,omitempty"`
	RepoID  string `json:"repoId,omitempty"`
}

// RemoteRepo describes a repository on an external tracker that a board
// is linked to.
type RemoteRepo struct {
	ID         int64  `json:"id"`
	FullName   string `json:"full_name"`
	IssuesURL  string `json:"issues_url,omitempty"`
	HasIssues  bool   `json:"has_issues"`
	OpenIssues int    `json:"open_issues_count"`
}

// Links maps provider name to linked repos keyed by repo id.
type Links map[string]map[string]RemoteRepo

type Card struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Body         string       `json:"body,omitempty"`
	RemoteObject *RemoteIssue `json:"remoteObject,omitempty"`
}

// CardAttributes is what a provider emits for each card to create; the
// ordering engine assigns the id and the column.
type CardAttributes struct {
	Title        string
	Body         string
	RemoteObject *RemoteIssue
}

// Column is the unit of atomic mutation: every reorder, insert and
// removal is a read-modify-write of one column document.
type Column struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  int    `json:"role,omitempty"`
	Cards []Card `json:"cards"`
}

// Board is the persisted board metadata. Columns holds column ids in
// board order; the column documents themselves are stored separately.
type Board struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	ColumnIDs       []string `json:"columns"`
	AuthorizedUsers []string `json:"authorizedUsers"`
	Links           Links    `json:"links,omitempty"`
}

// Authorizes reports whether the given user may read or mutate the board.
func (b *Board) Authorizes(userID string) bool {
	for _, id := range b.AuthorizedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// Snapshot is a board with its columns populated, as served to clients
// and written by the JSON export.
type Snapshot struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Columns         []Column `json:"columns"`
	AuthorizedUsers []string `json:"authorizedUsers"`
	Links           Links    `json:"links,omitempty"`
}

// User is an account resolved from a session token. A valid token
// resolves to exactly one user.
type User struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Login    string `json:"login"`
	Name     string `json:"name,omitempty"`
	Token    string `json:"token,omitempty"`
}
