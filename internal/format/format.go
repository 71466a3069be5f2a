// Package format renders parsed events as notification text.
package format

import (
	"fmt"
	"strings"

	"gitrelay/internal/event"
)

// maxCommitMessageLen caps the latest-commit line; longer messages get an
// ellipsis suffix.
const maxCommitMessageLen = 100

var prActionLabels = map[string]string{
	"opened":                 "opened",
	"closed":                 "closed",
	"reopened":               "reopened",
	"synchronized":           "updated",
	"edited":                 "edited",
	"assigned":               "assigned",
	"unassigned":             "unassigned",
	"review_requested":       "review requested",
	"review_request_removed": "review request removed",
	"labeled":                "labeled",
	"unlabeled":              "unlabeled",
	"merged":                 "merged",
}

var issueActionLabels = map[string]string{
	"opened":       "opened",
	"closed":       "closed",
	"reopened":     "reopened",
	"edited":       "edited",
	"assigned":     "assigned",
	"unassigned":   "unassigned",
	"labeled":      "labeled",
	"unlabeled":    "unlabeled",
	"milestoned":   "milestone added",
	"demilestoned": "milestone removed",
}

// Format renders an event as a multi-line notification message. It is a
// pure function: no I/O, and identical input yields identical output.
func Format(ev *event.Event) string {
	switch ev.Kind {
	case event.KindPush:
		return formatPush(ev)
	case event.KindPullRequest:
		return formatPullRequest(ev)
	case event.KindIssue:
		return formatIssue(ev)
	default:
		return fmt.Sprintf("[%s] unrecognized event", ev.RepoName)
	}
}

func formatPush(ev *event.Event) string {
	d := ev.Push

	var b strings.Builder
	fmt.Fprintf(&b, "📦 [%s] New push\n", ev.RepoName)
	fmt.Fprintf(&b, "🌿 Branch: %s\n", d.Branch)
	fmt.Fprintf(&b, "👤 Pusher: %s\n", d.PusherName)
	fmt.Fprintf(&b, "📝 Commits: %d", d.CommitCount)

	if d.LatestCommitMessage != "" {
		fmt.Fprintf(&b, "\n💬 Latest: %s", truncate(d.LatestCommitMessage, maxCommitMessageLen))
	}
	if d.CompareURL != "" {
		fmt.Fprintf(&b, "\n🔗 %s", d.CompareURL)
	}
	return b.String()
}

func formatPullRequest(ev *event.Event) string {
	d := ev.PullRequest

	var b strings.Builder
	fmt.Fprintf(&b, "🔀 [%s] Pull request\n", ev.RepoName)
	fmt.Fprintf(&b, "📋 #%d: %s\n", d.Number, d.Title)
	fmt.Fprintf(&b, "👤 By: %s\n", d.Username)
	fmt.Fprintf(&b, "✅ Status: %s", actionLabel(prActionLabels, d.Action))

	if d.BaseBranch != "" && d.HeadBranch != "" {
		fmt.Fprintf(&b, "\n🎯 %s ← %s", d.BaseBranch, d.HeadBranch)
	}
	if d.URL != "" {
		fmt.Fprintf(&b, "\n🔗 %s", d.URL)
	}
	return b.String()
}

func formatIssue(ev *event.Event) string {
	d := ev.Issue

	var b strings.Builder
	fmt.Fprintf(&b, "🐛 [%s] Issue\n", ev.RepoName)
	fmt.Fprintf(&b, "📋 #%d: %s\n", d.Number, d.Title)
	fmt.Fprintf(&b, "👤 By: %s\n", d.Username)
	fmt.Fprintf(&b, "✅ Status: %s", actionLabel(issueActionLabels, d.Action))

	if d.URL != "" {
		fmt.Fprintf(&b, "\n🔗 %s", d.URL)
	}
	return b.String()
}

// actionLabel maps an upstream action to its display label. Actions not
// in the table are shown verbatim.
func actionLabel(table map[string]string, action string) string {
	if label, ok := table[action]; ok {
		return label
	}
	return action
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
