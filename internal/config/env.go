package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/apigate/internal/gitctx"
)

// CI environment variable names.
const (
	EnvToken        = "GITHUB_TOKEN"
	EnvRepoURL      = "GITHUB_REPO_GIT_URL"
	EnvPRNumber     = "GITHUB_PR_NUMBER"
	EnvTargetBranch = "GITHUB_PR_TARGET_BRANCH"
	EnvBranchName   = "GITHUB_BRANCH_NAME"
	EnvBuildURL     = "BUILD_URL"
	EnvWorkspace    = "WORKSPACE"
)

// Required variable sets for the two CI jobs.
var (
	CheckEnv  = []string{EnvToken, EnvRepoURL, EnvPRNumber, EnvTargetBranch}
	UpdateEnv = []string{EnvBranchName}
)

// MissingEnvError lists every required variable that was unset.
type MissingEnvError struct {
	Names []string
}

func (e *MissingEnvError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Names, ", ")
}

// InvalidEnvError reports a variable that is set but cannot be used.
type InvalidEnvError struct {
	Name  string
	Value string
	Err   error
}

func (e *InvalidEnvError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Name, e.Value, e.Err)
}

func (e *InvalidEnvError) Unwrap() error { return e.Err }

var errNotPositive = errors.New("must be a positive integer")

// Environment is the CI job context.
type Environment struct {
	Token        string
	RepoURL      string
	Owner        string
	Repo         string
	PRNumber     int
	TargetBranch string
	BranchName   string
	BuildURL     string
	Workspace    string
}

// LoadEnvironment reads the CI environment through getenv (os.Getenv in
// production). Every name in required must be set.
func LoadEnvironment(getenv func(string) string, required ...string) (Environment, error) {
	var missing []string
	for _, name := range required {
		if strings.TrimSpace(getenv(name)) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Environment{}, &MissingEnvError{Names: missing}
	}

	env := Environment{
		Token:        getenv(EnvToken),
		RepoURL:      strings.TrimSpace(getenv(EnvRepoURL)),
		TargetBranch: strings.TrimSpace(getenv(EnvTargetBranch)),
		BranchName:   strings.TrimSpace(getenv(EnvBranchName)),
		BuildURL:     strings.TrimSpace(getenv(EnvBuildURL)),
		Workspace:    strings.TrimSpace(getenv(EnvWorkspace)),
	}

	if env.RepoURL != "" {
		owner, repo, err := gitctx.ParseRemoteURL(env.RepoURL)
		if err != nil {
			return Environment{}, &InvalidEnvError{Name: EnvRepoURL, Value: env.RepoURL, Err: err}
		}
		env.Owner, env.Repo = owner, repo
	}

	if v := strings.TrimSpace(getenv(EnvPRNumber)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Environment{}, &InvalidEnvError{Name: EnvPRNumber, Value: v, Err: errNotPositive}
		}
		env.PRNumber = n
	}
	return env, nil
}
