package event

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedKind = errors.New("unsupported event kind")
	ErrMissingRepo     = errors.New("payload is missing repository information")
)

// RepositoryURL extracts repository.html_url from a decoded payload.
// Returns "" when absent.
func RepositoryURL(payload map[string]any) string {
	return getString(getMap(payload, "repository"), "html_url")
}

// Parse converts an event kind and decoded payload into a typed Event.
// Kind is matched case-insensitively against push, pull_request and issues.
func Parse(kind string, payload map[string]any) (*Event, error) {
	k := Kind(strings.ToLower(kind))
	switch k {
	case KindPush, KindPullRequest, KindIssue:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}

	repo := getMap(payload, "repository")
	repoURL := getString(repo, "html_url")
	repoName := getString(repo, "full_name")
	if repoURL == "" || repoName == "" {
		return nil, ErrMissingRepo
	}

	ev := &Event{
		Kind:     k,
		RepoURL:  repoURL,
		RepoName: repoName,
	}

	switch k {
	case KindPush:
		ev.Push = parsePush(payload)
	case KindPullRequest:
		ev.PullRequest = parsePullRequest(payload)
	case KindIssue:
		ev.Issue = parseIssue(payload)
	}
	return ev, nil
}

func parsePush(payload map[string]any) *PushDetails {
	d := &PushDetails{
		Ref:        getString(payload, "ref"),
		CompareURL: getString(payload, "compare_url"),
		PusherName: userName(getMap(payload, "pusher")),
	}

	// refs/heads/main -> main
	if d.Ref != "" {
		parts := strings.Split(d.Ref, "/")
		d.Branch = parts[len(parts)-1]
	}

	for _, c := range getSlice(payload, "commits") {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		d.Commits = append(d.Commits, Commit{
			ID:      getString(cm, "id"),
			Message: getString(cm, "message"),
			URL:     getString(cm, "url"),
		})
	}
	d.CommitCount = len(d.Commits)
	if d.CommitCount > 0 {
		d.LatestCommitMessage = d.Commits[d.CommitCount-1].Message
	}
	return d
}

func parsePullRequest(payload map[string]any) *PullRequestDetails {
	pr := getMap(payload, "pull_request")
	return &PullRequestDetails{
		Action:     getString(payload, "action"),
		Number:     getInt(payload, "number"),
		Title:      getString(pr, "title"),
		Username:   userName(getMap(pr, "user")),
		URL:        getString(pr, "html_url"),
		BaseBranch: getString(getMap(pr, "base"), "ref"),
		HeadBranch: getString(getMap(pr, "head"), "ref"),
	}
}

func parseIssue(payload map[string]any) *IssueDetails {
	issue := getMap(payload, "issue")
	return &IssueDetails{
		Action:   getString(payload, "action"),
		Number:   getInt(issue, "number"),
		Title:    getString(issue, "title"),
		Username: userName(getMap(issue, "user")),
		URL:      getString(issue, "html_url"),
	}
}

// userName resolves username, falling back to login, then UnknownUser.
func userName(user map[string]any) string {
	if name := getString(user, "username"); name != "" {
		return name
	}
	if name := getString(user, "login"); name != "" {
		return name
	}
	return UnknownUser
}

func getMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	v, _ := m[key].(map[string]any)
	return v
}

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

func getSlice(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	v, _ := m[key].([]any)
	return v
}

func getInt(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
