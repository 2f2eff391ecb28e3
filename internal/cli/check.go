package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/apigate/internal/checker"
	"github.com/dshills/apigate/internal/config"
	"github.com/dshills/apigate/internal/github"
	"github.com/dshills/apigate/internal/output"
)

// Default artifact locations relative to the CI workspace.
const (
	defaultBuildLog = "msbuild.log"
	defaultSnapshot = "Artifacts/build.api.json"
)

// Job flags
var (
	flagBuildLog    string
	flagSnapshot    string
	flagBuildFailed bool
	flagBranch      string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a pull request build (CI job)",
	Long: "Run the Build Checker and API Checker against the pull request named by the CI environment " +
		"(GITHUB_TOKEN, GITHUB_REPO_GIT_URL, GITHUB_PR_NUMBER, GITHUB_PR_TARGET_BRANCH, BUILD_URL, WORKSPACE).",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := config.LoadEnvironment(os.Getenv, config.CheckEnv...)
		if err != nil {
			fail(err)
			return nil
		}
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		client, err := github.NewClient(env.Token, cfg.GitHub.APIURL, logger)
		if err != nil {
			fail(err)
			return nil
		}
		pr, err := github.OpenPullRequest(ctx, client, env.Owner, env.Repo, env.PRNumber)
		if err != nil {
			fail(err)
			return nil
		}
		if pr.TargetBranch() != env.TargetBranch {
			logger.Warn("target branch differs from the environment",
				zap.String("pull", pr.TargetBranch()),
				zap.String("env", env.TargetBranch))
		}

		st, err := openStore(cfg)
		if err != nil {
			fail(err)
			return nil
		}
		defer st.Close()

		in := checker.Inputs{
			BuildFailed:  flagBuildFailed,
			BuildLog:     artifactPath(flagBuildLog, env.Workspace, defaultBuildLog),
			SnapshotPath: artifactPath(flagSnapshot, env.Workspace, defaultSnapshot),
			BuildURL:     env.BuildURL,
		}
		logger.Info("checking pull request",
			zap.Stringer("pull", pr),
			zap.String("branch", pr.TargetBranch()),
			zap.Bool("buildFailed", in.BuildFailed))

		if err := checker.New(st, checkerOptions(cfg)).Run(ctx, pr, in); err != nil {
			fail(err)
		}
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Record a branch's API as the accepted snapshot (CI job)",
	Long: "Import the extracted API of a merged branch into the snapshot store. The branch comes " +
		"from --branch or GITHUB_BRANCH_NAME; unmanaged branches are skipped.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		branch := flagBranch
		workspace := os.Getenv(config.EnvWorkspace)
		if branch == "" {
			env, err := config.LoadEnvironment(os.Getenv, config.UpdateEnv...)
			if err != nil {
				fail(err)
				return nil
			}
			branch = env.BranchName
		}
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		st, err := openStore(cfg)
		if err != nil {
			fail(err)
			return nil
		}
		defer st.Close()

		u := checker.NewUpdater(st, cfg.Branches, logger)
		res, err := u.Run(ctx, branch, artifactPath(flagSnapshot, workspace, defaultSnapshot))
		if err != nil {
			fail(err)
			return nil
		}
		if res == nil {
			fmt.Fprintf(os.Stdout, "%s branch is not a managed branch.\n", branch)
			return nil
		}

		category, _ := cfg.Category(branch)
		c := &output.Comparison{Category: category, Result: res, Report: cfg.Report.Config}
		if err := output.WriteComparison(c, "text", ""); err != nil {
			fail(err)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&flagBuildLog, "build-log", "", "MSBuild log file (default $WORKSPACE/"+defaultBuildLog+")")
	checkCmd.Flags().StringVar(&flagSnapshot, "snapshot", "", "Extracted API file (default $WORKSPACE/"+defaultSnapshot+")")
	checkCmd.Flags().BoolVar(&flagBuildFailed, "build-failed", false, "The pull request build failed")

	updateCmd.Flags().StringVar(&flagSnapshot, "snapshot", "", "Extracted API file (default $WORKSPACE/"+defaultSnapshot+")")
	updateCmd.Flags().StringVar(&flagBranch, "branch", "", "Branch whose API is recorded (default $GITHUB_BRANCH_NAME)")
}

// artifactPath returns flag when set, else rel inside workspace.
func artifactPath(flag, workspace, rel string) string {
	if flag != "" {
		return flag
	}
	return filepath.Join(workspace, filepath.FromSlash(rel))
}

func checkerOptions(cfg config.Config) checker.Options {
	return checker.Options{
		Branches: cfg.Branches,
		Labels: checker.Labels{
			InternalAPIChanged: cfg.Labels.InternalAPIChanged,
			ACRRequired:        cfg.Labels.ACRRequired,
			ACRAccepted:        cfg.Labels.ACRAccepted,
		},
		Report:   cfg.Report.Config,
		Annotate: cfg.Annotate,
		Logger:   logger,
	}
}
