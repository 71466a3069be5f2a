package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestParseRejectsUnknownKind(t *testing.T) {
	payload := decode(t, `{"repository":{"html_url":"https://git.x/o/r","full_name":"o/r"}}`)

	for _, kind := range []string{"release", "fork", "ping", ""} {
		_, err := Parse(kind, payload)
		assert.ErrorIs(t, err, ErrUnsupportedKind, "kind %q", kind)
	}
}

func TestParseKindCaseInsensitive(t *testing.T) {
	payload := decode(t, `{"repository":{"html_url":"https://git.x/o/r","full_name":"o/r"}}`)

	ev, err := Parse("Push", payload)
	require.NoError(t, err)
	assert.Equal(t, KindPush, ev.Kind)
}

func TestParseRequiresRepository(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no repository", `{}`},
		{"empty url", `{"repository":{"html_url":"","full_name":"o/r"}}`},
		{"empty name", `{"repository":{"html_url":"https://git.x/o/r","full_name":""}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("push", decode(t, tt.raw))
			assert.ErrorIs(t, err, ErrMissingRepo)
		})
	}
}

func TestParsePush(t *testing.T) {
	payload := decode(t, `{
		"ref": "refs/heads/main",
		"compare_url": "https://git.x/o/r/compare/a...b",
		"pusher": {"username": "alice"},
		"commits": [
			{"id": "aaa", "message": "first", "url": "https://git.x/o/r/commit/aaa"},
			{"id": "bbb", "message": "second", "url": "https://git.x/o/r/commit/bbb"}
		],
		"repository": {"html_url": "https://git.x/o/r", "full_name": "o/r"}
	}`)

	ev, err := Parse("push", payload)
	require.NoError(t, err)
	require.NotNil(t, ev.Push)

	assert.Equal(t, "https://git.x/o/r", ev.RepoURL)
	assert.Equal(t, "o/r", ev.RepoName)
	assert.Equal(t, "main", ev.Push.Branch)
	assert.Equal(t, 2, ev.Push.CommitCount)
	assert.Equal(t, "second", ev.Push.LatestCommitMessage)
	assert.Equal(t, "alice", ev.Push.PusherName)
	assert.Equal(t, "https://git.x/o/r/compare/a...b", ev.Push.CompareURL)
}

func TestParsePushDefaults(t *testing.T) {
	payload := decode(t, `{
		"repository": {"html_url": "https://git.x/o/r", "full_name": "o/r"}
	}`)

	ev, err := Parse("push", payload)
	require.NoError(t, err)
	require.NotNil(t, ev.Push)

	assert.Empty(t, ev.Push.Ref)
	assert.Empty(t, ev.Push.Branch)
	assert.Zero(t, ev.Push.CommitCount)
	assert.Empty(t, ev.Push.LatestCommitMessage)
	assert.Equal(t, UnknownUser, ev.Push.PusherName)
}

func TestParsePushPusherLoginFallback(t *testing.T) {
	payload := decode(t, `{
		"pusher": {"login": "bob"},
		"repository": {"html_url": "https://git.x/o/r", "full_name": "o/r"}
	}`)

	ev, err := Parse("push", payload)
	require.NoError(t, err)
	assert.Equal(t, "bob", ev.Push.PusherName)
}

func TestParsePushMalformedNested(t *testing.T) {
	// Wrong-typed nested fields degrade to defaults rather than failing.
	payload := decode(t, `{
		"ref": "refs/heads/dev",
		"pusher": "not-an-object",
		"commits": [42, {"message": "kept"}],
		"repository": {"html_url": "https://git.x/o/r", "full_name": "o/r"}
	}`)

	ev, err := Parse("push", payload)
	require.NoError(t, err)
	assert.Equal(t, "dev", ev.Push.Branch)
	assert.Equal(t, UnknownUser, ev.Push.PusherName)
	assert.Equal(t, 1, ev.Push.CommitCount)
	assert.Equal(t, "kept", ev.Push.LatestCommitMessage)
}

func TestParsePullRequest(t *testing.T) {
	payload := decode(t, `{
		"action": "opened",
		"number": 42,
		"pull_request": {
			"title": "Add feature",
			"user": {"username": "carol"},
			"html_url": "https://git.x/o/r/pulls/42",
			"base": {"ref": "main"},
			"head": {"ref": "feature"}
		},
		"repository": {"html_url": "https://git.x/o/r", "full_name": "o/r"}
	}`)

	ev, err := Parse("pull_request", payload)
	require.NoError(t, err)
	require.NotNil(t, ev.PullRequest)

	pr := ev.PullRequest
	assert.Equal(t, "opened", pr.Action)
	assert.Equal(t, 42, pr.Number)
	assert.Equal(t, "Add feature", pr.Title)
	assert.Equal(t, "carol", pr.Username)
	assert.Equal(t, "https://git.x/o/r/pulls/42", pr.URL)
	assert.Equal(t, "main", pr.BaseBranch)
	assert.Equal(t, "feature", pr.HeadBranch)
}

func TestParseIssue(t *testing.T) {
	payload := decode(t, `{
		"action": "closed",
		"issue": {
			"number": 7,
			"title": "Bug report",
			"user": {"login": "dave"},
			"html_url": "https://git.x/o/r/issues/7"
		},
		"repository": {"html_url": "https://git.x/o/r", "full_name": "o/r"}
	}`)

	ev, err := Parse("issues", payload)
	require.NoError(t, err)
	require.NotNil(t, ev.Issue)

	assert.Equal(t, "closed", ev.Issue.Action)
	assert.Equal(t, 7, ev.Issue.Number)
	assert.Equal(t, "Bug report", ev.Issue.Title)
	assert.Equal(t, "dave", ev.Issue.Username)
}

func TestRepositoryURL(t *testing.T) {
	payload := decode(t, `{"repository":{"html_url":"https://git.x/o/r"}}`)
	assert.Equal(t, "https://git.x/o/r", RepositoryURL(payload))
	assert.Empty(t, RepositoryURL(map[string]any{}))
	assert.Empty(t, RepositoryURL(nil))
}
