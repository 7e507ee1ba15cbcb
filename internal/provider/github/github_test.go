package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardd/internal/model"
)

func TestBatchImport(t *testing.T) {
	p := New()

	t.Run("emits one payload per open issue, in order", func(t *testing.T) {
		body := []byte(`{"openIssues":[
			{"id":1,"number":10,"title":"first","body":"a"},
			{"id":2,"number":11,"title":"second"}
		]}`)
		var got []model.CardAttributes
		err := p.BatchImport(nil, body, func(attrs model.CardAttributes) {
			got = append(got, attrs)
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "first", got[0].Title)
		assert.Equal(t, "a", got[0].Body)
		require.NotNil(t, got[1].RemoteObject)
		assert.Equal(t, int64(2), got[1].RemoteObject.ID)
	})

	t.Run("malformed body fails without emitting", func(t *testing.T) {
		emitted := 0
		err := p.BatchImport(nil, []byte(`{"openIssues":"nope"}`), func(model.CardAttributes) {
			emitted++
		})
		require.Error(t, err)
		assert.Zero(t, emitted)
	})
}

func TestNewCard(t *testing.T) {
	p := New()
	issue := &model.RemoteIssue{ID: 9, Title: "leaky faucet", Body: "drip"}

	attrs := p.NewCard("1234", issue)
	assert.Equal(t, "leaky faucet", attrs.Title)
	assert.Equal(t, "drip", attrs.Body)
	require.NotNil(t, attrs.RemoteObject)
	assert.Equal(t, "1234", attrs.RemoteObject.RepoID)
	// The caller's issue is not mutated.
	assert.Empty(t, issue.RepoID)
}

func TestCanImport(t *testing.T) {
	p := New()
	assert.True(t, p.CanImport(model.RemoteRepo{HasIssues: true, OpenIssues: 2}))
	assert.False(t, p.CanImport(model.RemoteRepo{HasIssues: true, OpenIssues: 0}))
	assert.False(t, p.CanImport(model.RemoteRepo{HasIssues: false, OpenIssues: 5}))
}
