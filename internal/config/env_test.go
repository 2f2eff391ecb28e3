package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(vars map[string]string) func(string) string {
	return func(name string) string { return vars[name] }
}

func TestLoadEnvironment(t *testing.T) {
	env, err := LoadEnvironment(fakeEnv(map[string]string{
		EnvToken:        "ghp_token",
		EnvRepoURL:      "https://github.com/Samsung/TizenFX.git",
		EnvPRNumber:     "4021",
		EnvTargetBranch: "API8",
		EnvBuildURL:     "https://ci.example.com/job/42/",
		EnvWorkspace:    "/work",
	}), CheckEnv...)
	require.NoError(t, err)

	assert.Equal(t, Environment{
		Token:        "ghp_token",
		RepoURL:      "https://github.com/Samsung/TizenFX.git",
		Owner:        "Samsung",
		Repo:         "TizenFX",
		PRNumber:     4021,
		TargetBranch: "API8",
		BuildURL:     "https://ci.example.com/job/42/",
		Workspace:    "/work",
	}, env)
}

func TestLoadEnvironment_Missing(t *testing.T) {
	_, err := LoadEnvironment(fakeEnv(map[string]string{
		EnvToken: "ghp_token",
	}), CheckEnv...)

	var missing *MissingEnvError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{EnvRepoURL, EnvPRNumber, EnvTargetBranch}, missing.Names)
	assert.Contains(t, err.Error(), "GITHUB_PR_NUMBER")
}

func TestLoadEnvironment_Update(t *testing.T) {
	env, err := LoadEnvironment(fakeEnv(map[string]string{
		EnvBranchName: "devel/master",
	}), UpdateEnv...)
	require.NoError(t, err)
	assert.Equal(t, "devel/master", env.BranchName)
	assert.Zero(t, env.PRNumber)
}

func TestLoadEnvironment_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		vars     map[string]string
		wantName string
	}{
		{"bad number", map[string]string{EnvPRNumber: "abc"}, EnvPRNumber},
		{"zero number", map[string]string{EnvPRNumber: "0"}, EnvPRNumber},
		{"bad url", map[string]string{EnvRepoURL: "not a remote"}, EnvRepoURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadEnvironment(fakeEnv(tt.vars))
			var invalid *InvalidEnvError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.wantName, invalid.Name)
			assert.Contains(t, err.Error(), tt.wantName)
		})
	}
}
