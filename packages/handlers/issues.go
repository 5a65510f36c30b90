package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"aipr/packages/config"
	"aipr/types"

	"github.com/google/go-github/github"
	"golang.org/x/oauth2"
)

// NewGitHubClient returns a REST client, authenticated when token is set.
func NewGitHubClient(ctx context.Context, token string) *github.Client {
	if token == "" {
		return github.NewClient(nil)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

// ResolveIssue returns the issue to work on: fetched from GitHub when an
// issue number and repository are configured, otherwise the configured
// title and body.
func ResolveIssue(ctx context.Context, cfg *config.Config) (types.Issue, error) {
	if !cfg.FetchIssue() {
		return types.Issue{
			Number: cfg.Issue.Number,
			Title:  cfg.Issue.Title,
			Body:   cfg.Issue.Body,
		}, nil
	}

	client := NewGitHubClient(ctx, cfg.GitHub.Token)
	return FetchIssue(ctx, client, cfg.GitHub.Repository, cfg.Issue.Number)
}

// FetchIssue reads one issue from repoName ("owner/repo").
func FetchIssue(ctx context.Context, client *github.Client, repoName string, issueNumber int) (types.Issue, error) {
	parts := strings.Split(repoName, "/")
	if len(parts) != 2 {
		slog.Error("Invalid repo name format", "repoName", repoName)
		return types.Issue{}, fmt.Errorf("invalid repository %q, expected owner/repo", repoName)
	}
	owner := parts[0]
	repo := parts[1]

	slog.Info("Fetching issue", "repo", repoName, "issueNumber", issueNumber)

	issue, _, err := client.Issues.Get(ctx, owner, repo, issueNumber)
	if err != nil {
		return types.Issue{}, fmt.Errorf("failed to fetch issue #%d from %s: %w", issueNumber, repoName, err)
	}

	slog.Info("Issue", "issueNumber", issue.GetNumber(), "issueTitle", issue.GetTitle())

	return types.Issue{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		Body:   issue.GetBody(),
	}, nil
}
