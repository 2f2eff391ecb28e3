package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/apigate/internal/annotate"
	"github.com/dshills/apigate/internal/buildlog"
	"github.com/dshills/apigate/internal/config"
	"github.com/dshills/apigate/internal/diffmap"
	"github.com/dshills/apigate/internal/gitctx"
	"github.com/dshills/apigate/internal/github"
	"github.com/dshills/apigate/internal/output"
)

// Annotate flags
var (
	flagLog           string
	flagRange         string
	flagMergeBase     bool
	flagPR            int
	flagOwner         string
	flagRepo          string
	flagPost          bool
	flagIncludeErrors bool
	flagFailOnError   bool
)

var annotateCmd = &cobra.Command{
	Use:   "annotate --log <file> [--range <rev> | --pr <number>]",
	Short: "Place build warnings on changed lines",
	Long: "Map the diagnostics of a build log onto review comment positions of a diff. The diff is the " +
		"working tree against HEAD, a local revision range (--range) or a GitHub pull request (--pr). " +
		"With --pr and --post the comments are created on the pull request.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagLog == "" {
			return fmt.Errorf("--log is required")
		}
		if flagRange != "" && flagPR > 0 {
			return fmt.Errorf("--range and --pr are mutually exclusive")
		}
		if flagPost && flagPR <= 0 {
			return fmt.Errorf("--post requires --pr")
		}

		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		blog, err := buildlog.Load(flagLog)
		if err != nil {
			fail(err)
			return nil
		}
		diags := blog.Warnings
		if flagIncludeErrors {
			diags = blog.All()
		}

		ctx, cancel := commandContext()
		defer cancel()

		var (
			files    []diffmap.FilePatch
			existing = annotate.NewSet()
			pr       *github.PullRequest
		)
		if flagPR > 0 {
			pr, err = openPullRequestFromFlags(ctx, cfg)
			if err != nil {
				fail(err)
				return nil
			}
			if files, err = pr.Files(ctx); err != nil {
				fail(err)
				return nil
			}
			keys, err := pr.ReviewComments(ctx)
			if err != nil {
				fail(err)
				return nil
			}
			existing = annotate.NewSet(keys...)
		} else {
			opts := gitctx.DiffOptions{Exclude: cfg.Annotate.Exclude}
			var res gitctx.DiffResult
			if flagRange != "" {
				res, err = gitctx.Range(flagRange, flagMergeBase, opts)
			} else {
				res, err = gitctx.Working(opts)
			}
			if err != nil {
				fail(err)
				return nil
			}
			logger.Debug("local diff",
				zap.String("mode", res.Mode),
				zap.String("range", res.Range),
				zap.String("branch", res.Repo.Branch),
				zap.String("head", res.Repo.Head),
				zap.Int("files", len(res.Files)))
			files = res.Files
		}

		idx, err := diffmap.Build(files)
		if err != nil {
			fail(err)
			return nil
		}
		placements := annotate.New(cfg.Annotate).Place(idx, diags, existing)
		logger.Info("diagnostics placed",
			zap.Int("files", idx.Len()),
			zap.Int("diagnostics", len(diags)),
			zap.Int("placements", len(placements)))

		if flagPost {
			for _, p := range placements {
				if err := pr.CreateReviewComment(ctx, p); err != nil {
					fail(err)
					return nil
				}
			}
			fmt.Fprintf(os.Stderr, "Posted %d review comments to %s.\n", len(placements), pr)
		}

		if placements == nil {
			placements = []annotate.Placement{}
		}
		d := &output.Diagnostics{Version: version, Log: blog, Placements: placements}
		if err := output.WriteDiagnostics(d, flagFormat, flagOut); err != nil {
			fail(err)
			return nil
		}
		if flagFailOnError && len(blog.Errors) > 0 {
			exitCode = ExitFindings
		}
		return nil
	},
}

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics <build.log>",
	Short: "List the warnings and errors of a build log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blog, err := buildlog.Load(args[0])
		if err != nil {
			fail(err)
			return nil
		}
		d := &output.Diagnostics{Version: version, Log: blog}
		if err := output.WriteDiagnostics(d, flagFormat, flagOut); err != nil {
			fail(err)
			return nil
		}
		if flagFailOnError && len(blog.Errors) > 0 {
			exitCode = ExitFindings
		}
		return nil
	},
}

// openPullRequestFromFlags resolves owner/repo from flags or the origin
// remote and fetches pull request --pr.
func openPullRequestFromFlags(ctx context.Context, cfg config.Config) (*github.PullRequest, error) {
	owner, repo := flagOwner, flagRepo
	if owner == "" || repo == "" {
		detectedOwner, detectedRepo, err := gitctx.DetectRepo()
		if err != nil {
			return nil, fmt.Errorf("%w (use --owner and --repo)", err)
		}
		if owner == "" {
			owner = detectedOwner
		}
		if repo == "" {
			repo = detectedRepo
		}
	}

	client, err := newGitHubClient(cfg)
	if err != nil {
		return nil, err
	}
	return github.OpenPullRequest(ctx, client, owner, repo, flagPR)
}

func init() {
	for _, cmd := range []*cobra.Command{annotateCmd, diagnosticsCmd} {
		addOutputFlags(cmd, "text, json, sarif")
		cmd.Flags().BoolVar(&flagFailOnError, "fail-on-error", false, "Exit 1 when the log contains errors")
	}

	annotateCmd.Flags().StringVar(&flagLog, "log", "", "MSBuild log file")
	annotateCmd.Flags().StringVar(&flagRange, "range", "", "Revision range to diff (e.g., origin/main..HEAD)")
	annotateCmd.Flags().BoolVar(&flagMergeBase, "merge-base", true, "Use merge base for branch comparisons")
	annotateCmd.Flags().IntVar(&flagPR, "pr", 0, "GitHub pull request number")
	annotateCmd.Flags().StringVar(&flagOwner, "owner", "", "GitHub repository owner (auto-detected if omitted)")
	annotateCmd.Flags().StringVar(&flagRepo, "repo", "", "GitHub repository name (auto-detected if omitted)")
	annotateCmd.Flags().BoolVar(&flagPost, "post", false, "Create the review comments on the pull request")
	annotateCmd.Flags().BoolVar(&flagIncludeErrors, "include-errors", false, "Place errors as well as warnings")
}
