package github

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dshills/apigate/internal/annotate"
	"github.com/dshills/apigate/internal/diffmap"
)

// PullRequest binds a client to one pull request. Comments and statuses
// target the head commit it was opened at.
type PullRequest struct {
	client *Client
	owner  string
	repo   string
	pull   *Pull
}

// OpenPullRequest fetches pull request number of owner/repo.
func OpenPullRequest(ctx context.Context, c *Client, owner, repo string, number int) (*PullRequest, error) {
	pull, err := c.GetPull(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}
	return &PullRequest{client: c, owner: owner, repo: repo, pull: pull}, nil
}

// Number returns the pull request number.
func (p *PullRequest) Number() int { return p.pull.Number }

// HeadSHA returns the commit comments and statuses are attached to.
func (p *PullRequest) HeadSHA() string { return p.pull.Head.SHA }

// TargetBranch returns the base branch.
func (p *PullRequest) TargetBranch() string { return p.pull.Base.Ref }

// Files returns the patches of every changed file.
func (p *PullRequest) Files(ctx context.Context) ([]diffmap.FilePatch, error) {
	files, err := p.client.ListFiles(ctx, p.owner, p.repo, p.pull.Number)
	if err != nil {
		return nil, err
	}
	out := make([]diffmap.FilePatch, len(files))
	for i, f := range files {
		out[i] = diffmap.FilePatch{Path: f.Filename, Patch: f.Patch}
	}
	return out, nil
}

// ReviewComments returns the keys of the inline comments already posted.
// Comments on outdated diffs have no position and are left out.
func (p *PullRequest) ReviewComments(ctx context.Context) ([]annotate.Key, error) {
	comments, err := p.client.ListReviewComments(ctx, p.owner, p.repo, p.pull.Number)
	if err != nil {
		return nil, err
	}
	keys := make([]annotate.Key, 0, len(comments))
	for _, c := range comments {
		if c.Position == nil {
			continue
		}
		keys = append(keys, annotate.Key{Path: c.Path, Position: *c.Position, Body: c.Body})
	}
	return keys, nil
}

// CreateReviewComment posts pl on the head commit. A pull request without
// commits has nothing to comment on and is skipped.
func (p *PullRequest) CreateReviewComment(ctx context.Context, pl annotate.Placement) error {
	if p.pull.Commits < 1 {
		p.client.logger.Debug("skipping review comment on PR without commits", zap.Int("pr", p.pull.Number))
		return nil
	}
	return p.client.CreateReviewComment(ctx, p.owner, p.repo, p.pull.Number, p.pull.Head.SHA, pl.Path, pl.Position, pl.Body)
}

// CreateIssueComment posts body to the conversation.
func (p *PullRequest) CreateIssueComment(ctx context.Context, body string) error {
	return p.client.CreateIssueComment(ctx, p.owner, p.repo, p.pull.Number, body)
}

// Labels returns the current label names.
func (p *PullRequest) Labels(ctx context.Context) ([]string, error) {
	return p.client.ListLabels(ctx, p.owner, p.repo, p.pull.Number)
}

// AddLabels adds labels.
func (p *PullRequest) AddLabels(ctx context.Context, labels ...string) error {
	return p.client.AddLabels(ctx, p.owner, p.repo, p.pull.Number, labels...)
}

// RemoveLabel removes label; see Client.RemoveLabel.
func (p *PullRequest) RemoveLabel(ctx context.Context, label string) error {
	return p.client.RemoveLabel(ctx, p.owner, p.repo, p.pull.Number, label)
}

// SetStatus sets a commit status on the head commit. A pull request
// without commits is skipped.
func (p *PullRequest) SetStatus(ctx context.Context, state, statusContext, description, targetURL string) error {
	if p.pull.Commits < 1 {
		p.client.logger.Debug("skipping status on PR without commits", zap.Int("pr", p.pull.Number))
		return nil
	}
	return p.client.CreateStatus(ctx, p.owner, p.repo, p.pull.Head.SHA, Status{
		State:       state,
		TargetURL:   targetURL,
		Description: description,
		Context:     statusContext,
	})
}

func (p *PullRequest) String() string {
	return fmt.Sprintf("%s/%s#%d", p.owner, p.repo, p.pull.Number)
}
