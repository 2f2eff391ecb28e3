package checker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/apigate/internal/annotate"
	"github.com/dshills/apigate/internal/apidb"
	"github.com/dshills/apigate/internal/buildlog"
	"github.com/dshills/apigate/internal/diffmap"
	"github.com/dshills/apigate/internal/redact"
	"github.com/dshills/apigate/internal/report"
)

// Commit status contexts.
const (
	ContextBuild = "Build Checker"
	ContextAPI   = "API Checker"
)

// Commit status states.
const (
	StatePending = "pending"
	StateSuccess = "success"
	StateFailure = "failure"
	StateError   = "error"
)

// ErrBuildFailed is returned by Run when the pull request did not build.
var ErrBuildFailed = errors.New("build failed")

// PullRequest is the code review host as seen by the checker.
type PullRequest interface {
	TargetBranch() string
	Files(ctx context.Context) ([]diffmap.FilePatch, error)
	ReviewComments(ctx context.Context) ([]annotate.Key, error)
	CreateReviewComment(ctx context.Context, p annotate.Placement) error
	CreateIssueComment(ctx context.Context, body string) error
	Labels(ctx context.Context) ([]string, error)
	AddLabels(ctx context.Context, labels ...string) error
	RemoveLabel(ctx context.Context, label string) error
	SetStatus(ctx context.Context, state, statusContext, description, targetURL string) error
}

// SnapshotStore holds the accepted API snapshot of every category.
type SnapshotStore interface {
	Query(ctx context.Context, category string) (*apidb.Snapshot, error)
	Import(ctx context.Context, category string, next *apidb.Snapshot) (*apidb.ComparisonResult, error)
}

// Labels names the pull request labels the checker manages.
type Labels struct {
	InternalAPIChanged string
	ACRRequired        string
	ACRAccepted        string
}

// Options configures a Checker.
type Options struct {
	// Branches maps a target branch to its API category. Branches not
	// listed are not checked.
	Branches map[string]string
	Labels   Labels
	Report   report.Config
	Annotate annotate.Config
	Logger   *zap.Logger
}

// Inputs are the artifacts of the pull request build.
type Inputs struct {
	// BuildFailed reports whether the build exited unsuccessfully.
	BuildFailed bool
	// BuildLog is the MSBuild file-logger output. A missing file means no
	// diagnostics.
	BuildLog string
	// SnapshotPath is the API extracted from the build.
	SnapshotPath string
	// BuildURL links each commit status back to the CI run.
	BuildURL string
}

// Checker runs the build and API checks of a pull request.
type Checker struct {
	store    SnapshotStore
	opts     Options
	placer   *annotate.Placer
	renderer *report.Renderer
	logger   *zap.Logger
}

// New returns a Checker comparing against st.
func New(st SnapshotStore, opts Options) *Checker {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		store:    st,
		opts:     opts,
		placer:   annotate.New(opts.Annotate),
		renderer: report.New(opts.Report),
		logger:   logger,
	}
}

// Category returns the API category of branch.
func (c *Checker) Category(branch string) (string, bool) {
	cat, ok := c.opts.Branches[branch]
	return cat, ok && cat != ""
}

// Run checks pr. An unmanaged target branch is skipped without error.
func (c *Checker) Run(ctx context.Context, pr PullRequest, in Inputs) error {
	branch := pr.TargetBranch()
	category, ok := c.Category(branch)
	if !ok {
		c.logger.Info("branch is not managed, skipping", zap.String("branch", branch))
		return nil
	}
	log := c.logger.With(zap.String("branch", branch), zap.String("category", category))

	c.addLabels(ctx, pr, log, category)

	if err := pr.SetStatus(ctx, StatePending, ContextBuild, "Build started.", in.BuildURL); err != nil {
		return err
	}
	if err := pr.SetStatus(ctx, StatePending, ContextAPI, "Wait for build to finish.", in.BuildURL); err != nil {
		return err
	}

	if err := c.checkBuild(ctx, pr, in, log); err != nil {
		return err
	}
	return c.checkAPI(ctx, pr, in, category, log)
}

func (c *Checker) checkBuild(ctx context.Context, pr PullRequest, in Inputs, log *zap.Logger) error {
	buildLog, _, err := buildlog.LoadIfExists(in.BuildLog)
	if err != nil {
		return c.systemError(ctx, pr, ContextBuild, in.BuildURL, fmt.Errorf("reading build log: %w", err))
	}

	if in.BuildFailed {
		log.Warn("build failed", zap.Int("errors", len(buildLog.Errors)))
		if err := pr.SetStatus(ctx, StateFailure, ContextBuild, "Build failed.", in.BuildURL); err != nil {
			return err
		}
		if body := report.BuildErrors(buildLog.Errors); body != "" {
			if err := pr.CreateIssueComment(ctx, redact.Secrets(body)); err != nil {
				return fmt.Errorf("posting build errors: %w", err)
			}
		}
		return ErrBuildFailed
	}

	if err := pr.SetStatus(ctx, StateSuccess, ContextBuild, "Build finished.", in.BuildURL); err != nil {
		return err
	}
	if len(buildLog.Warnings) == 0 {
		return nil
	}
	if err := c.postWarnings(ctx, pr, buildLog.Warnings, log); err != nil {
		return c.systemError(ctx, pr, ContextBuild, in.BuildURL, err)
	}
	return nil
}

// postWarnings places warnings on the changed lines of pr, skipping any
// comment the pull request already carries.
func (c *Checker) postWarnings(ctx context.Context, pr PullRequest, warnings []buildlog.Diagnostic, log *zap.Logger) error {
	var (
		files    []diffmap.FilePatch
		existing []annotate.Key
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		files, err = pr.Files(gctx)
		if err != nil {
			return fmt.Errorf("listing changed files: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		existing, err = pr.ReviewComments(gctx)
		if err != nil {
			return fmt.Errorf("listing review comments: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	idx, err := diffmap.Build(files)
	if err != nil {
		return err
	}
	placements := c.placer.Place(idx, warnings, annotate.NewSet(existing...))
	for _, p := range placements {
		if err := pr.CreateReviewComment(ctx, p); err != nil {
			return fmt.Errorf("commenting on %s position %d: %w", p.Path, p.Position, err)
		}
		log.Debug("review comment posted",
			zap.String("path", p.Path),
			zap.Int("position", p.Position),
			zap.Int("line", p.Line))
	}
	log.Info("warnings placed",
		zap.Int("warnings", len(warnings)),
		zap.Int("comments", len(placements)),
		zap.Int("existing", len(existing)))
	return nil
}

func (c *Checker) checkAPI(ctx context.Context, pr PullRequest, in Inputs, category string, log *zap.Logger) error {
	if err := pr.SetStatus(ctx, StatePending, ContextAPI, "API check started.", in.BuildURL); err != nil {
		return err
	}

	res, err := c.compare(ctx, category, in.SnapshotPath)
	if err != nil {
		return c.systemError(ctx, pr, ContextAPI, in.BuildURL, err)
	}
	log.Info("api compared",
		zap.Int("added", len(res.Added)),
		zap.Int("changed", len(res.Changed)),
		zap.Int("removed", len(res.Removed)),
		zap.Int("hidden", res.HiddenChangedCount))

	if err := c.applyLabels(ctx, pr, res, log); err != nil {
		return c.systemError(ctx, pr, ContextAPI, in.BuildURL, err)
	}

	if body := c.renderer.Render(res); body != "" {
		if err := pr.CreateIssueComment(ctx, body); err != nil {
			return c.systemError(ctx, pr, ContextAPI, in.BuildURL, fmt.Errorf("posting api report: %w", err))
		}
	}

	return pr.SetStatus(ctx, StateSuccess, ContextAPI, "API check finished.", in.BuildURL)
}

func (c *Checker) compare(ctx context.Context, category, snapshotPath string) (*apidb.ComparisonResult, error) {
	var (
		next   *apidb.Snapshot
		stored *apidb.Snapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		next, err = apidb.LoadSnapshotFile(snapshotPath)
		return err
	})
	g.Go(func() error {
		var err error
		stored, err = c.store.Query(gctx, category)
		if err != nil {
			return fmt.Errorf("querying %s snapshot: %w", category, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return apidb.Compare(stored, next)
}

// applyLabels sets the internal change and ACR labels. Individual label
// edits that fail are logged and skipped.
func (c *Checker) applyLabels(ctx context.Context, pr PullRequest, res *apidb.ComparisonResult, log *zap.Logger) error {
	lbl := c.opts.Labels

	if lbl.InternalAPIChanged != "" {
		if res.InternalAPIChanged() {
			c.addLabels(ctx, pr, log, lbl.InternalAPIChanged)
		} else {
			c.removeLabel(ctx, pr, log, lbl.InternalAPIChanged)
		}
	}

	if lbl.ACRRequired == "" {
		return nil
	}
	if !res.PublicAPIChanged() {
		c.removeLabel(ctx, pr, log, lbl.ACRRequired)
		return nil
	}
	accepted, err := c.hasLabel(ctx, pr, lbl.ACRAccepted)
	if err != nil {
		return err
	}
	if !accepted {
		c.addLabels(ctx, pr, log, lbl.ACRRequired)
	}
	return nil
}

func (c *Checker) hasLabel(ctx context.Context, pr PullRequest, name string) (bool, error) {
	if name == "" {
		return false, nil
	}
	labels, err := pr.Labels(ctx)
	if err != nil {
		return false, fmt.Errorf("listing labels: %w", err)
	}
	for _, l := range labels {
		if l == name {
			return true, nil
		}
	}
	return false, nil
}

func (c *Checker) addLabels(ctx context.Context, pr PullRequest, log *zap.Logger, labels ...string) {
	if err := pr.AddLabels(ctx, labels...); err != nil {
		log.Warn("adding labels failed", zap.Strings("labels", labels), zap.Error(err))
	}
}

func (c *Checker) removeLabel(ctx context.Context, pr PullRequest, log *zap.Logger, label string) {
	if err := pr.RemoveLabel(ctx, label); err != nil {
		log.Warn("removing label failed", zap.String("label", label), zap.Error(err))
	}
}

// systemError marks statusContext as errored and returns cause.
func (c *Checker) systemError(ctx context.Context, pr PullRequest, statusContext, buildURL string, cause error) error {
	c.logger.Error("check failed", zap.String("context", statusContext), zap.Error(cause))
	if err := pr.SetStatus(context.WithoutCancel(ctx), StateError, statusContext, "System error.", buildURL); err != nil {
		c.logger.Warn("setting error status failed", zap.Error(err))
	}
	return cause
}
