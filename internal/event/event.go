// Package event turns raw webhook payloads into typed events.
//
// Payload access is deliberately loose: upstream JSON shapes vary between
// forge versions, so every optional field falls back to a named default
// instead of failing the whole event. Only the repository identity is
// mandatory. Nothing untyped leaks past Parse.
package event

// Kind identifies the webhook event variant.
type Kind string

const (
	KindPush        Kind = "push"
	KindPullRequest Kind = "pull_request"
	KindIssue       Kind = "issues"
)

// UnknownUser is the fallback when a payload carries no usable author name.
const UnknownUser = "Unknown"

// Event is one parsed webhook event. Exactly one of the detail pointers
// matching Kind is non-nil.
type Event struct {
	Kind     Kind
	RepoURL  string
	RepoName string

	Push        *PushDetails
	PullRequest *PullRequestDetails
	Issue       *IssueDetails
}

// Commit is one pushed commit.
type Commit struct {
	ID      string
	Message string
	URL     string
}

// PushDetails carries push-specific fields.
type PushDetails struct {
	Ref                 string
	Branch              string
	Commits             []Commit
	CommitCount         int
	LatestCommitMessage string
	PusherName          string
	CompareURL          string
}

// PullRequestDetails carries pull-request-specific fields.
type PullRequestDetails struct {
	Action     string
	Number     int
	Title      string
	Username   string
	URL        string
	BaseBranch string
	HeadBranch string
}

// IssueDetails carries issue-specific fields.
type IssueDetails struct {
	Action   string
	Number   int
	Title    string
	Username string
	URL      string
}
