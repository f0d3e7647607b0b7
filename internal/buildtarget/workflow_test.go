package buildtarget

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const releaseWorkflowPath = "../../.github/workflows/release.yml"

type workflowStep struct {
	Name string            `yaml:"name"`
	Uses string            `yaml:"uses"`
	Run  string            `yaml:"run"`
	With map[string]any    `yaml:"with"`
	Env  map[string]string `yaml:"env"`
}

type workflow struct {
	On   map[string]map[string][]string `yaml:"on"`
	Env  map[string]string              `yaml:"env"`
	Jobs map[string]struct {
		Steps []workflowStep `yaml:"steps"`
	} `yaml:"jobs"`
}

func loadReleaseWorkflow(t *testing.T) (workflow, map[string]any) {
	data, err := os.ReadFile(releaseWorkflowPath)
	require.NoError(t, err)
	var wf workflow
	require.NoError(t, yaml.Unmarshal(data, &wf))
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	return wf, raw
}

func (wf workflow) steps() []workflowStep {
	var steps []workflowStep
	for _, job := range wf.Jobs {
		steps = append(steps, job.Steps...)
	}
	return steps
}

func (wf workflow) stepUsing(prefix string) (workflowStep, bool) {
	for _, step := range wf.steps() {
		if strings.HasPrefix(step.Uses, prefix) {
			return step, true
		}
	}
	return workflowStep{}, false
}

func (wf workflow) buildStep() (workflowStep, bool) {
	for _, step := range wf.steps() {
		if strings.Contains(step.Run, "go build") {
			return step, true
		}
	}
	return workflowStep{}, false
}

func TestReleaseWorkflow_TriggersOnlyOnReleaseTags(t *testing.T) {
	wf, _ := loadReleaseWorkflow(t)
	require.Len(t, wf.On, 1, "only one trigger event")
	push, ok := wf.On["push"]
	require.True(t, ok, "triggered by push")
	require.Len(t, push, 1, "push is filtered only by tags")
	assert.Equal(t, []string{ReleaseTagPattern}, push["tags"])
}

func TestReleaseWorkflow_ArtifactPathMatchesTriple(t *testing.T) {
	wf, _ := loadReleaseWorkflow(t)
	wantPath := ArtifactPath(Release, BinaryName)

	triple, err := ParseTriple(wf.Env["TARGET"])
	require.NoError(t, err)
	assert.Equal(t, Release, triple)
	assert.Equal(t, BinaryName, wf.Env["BINARY"])

	build, ok := wf.buildStep()
	require.True(t, ok, "has build step")
	assert.Contains(t, build.Run, "-o "+wantPath)

	goEnv, err := Release.GoEnv()
	require.NoError(t, err)
	assert.Equal(t, goEnv.GOOS, build.Env["GOOS"])
	assert.Equal(t, goEnv.GOARCH, build.Env["GOARCH"])
	assert.Equal(t, goEnv.GOARM, build.Env["GOARM"])

	publish, ok := wf.stepUsing("softprops/action-gh-release")
	require.True(t, ok, "has publish step")
	assert.Equal(t, wantPath, publish.With["files"])
	assert.Equal(t, false, publish.With["draft"])
	assert.Equal(t, false, publish.With["prerelease"])
}

func TestReleaseWorkflow_BuildsBeforePublishing(t *testing.T) {
	wf, _ := loadReleaseWorkflow(t)
	buildIdx, publishIdx := -1, -1
	for i, step := range wf.steps() {
		if strings.Contains(step.Run, "go build") {
			buildIdx = i
		}
		if strings.HasPrefix(step.Uses, "softprops/action-gh-release") {
			publishIdx = i
		}
	}
	require.NotEqual(t, -1, buildIdx)
	require.NotEqual(t, -1, publishIdx)
	assert.Less(t, buildIdx, publishIdx)
}

func TestReleaseWorkflow_WritesVersionBeforeBuilding(t *testing.T) {
	wf, _ := loadReleaseWorkflow(t)
	versionIdx, buildIdx := -1, -1
	for i, step := range wf.steps() {
		if strings.Contains(step.Run, "assets/version.yaml") {
			versionIdx = i
			assert.Contains(t, step.Run, "version: ${{ github.ref_name }}")
			assert.Contains(t, step.Run, "buildGitCommit: ${{ github.sha }}")
		}
		if strings.Contains(step.Run, "go build") {
			buildIdx = i
		}
	}
	require.NotEqual(t, -1, versionIdx, "has step writing the version file")
	require.NotEqual(t, -1, buildIdx)
	assert.Less(t, versionIdx, buildIdx)
}

var secretRefPattern = regexp.MustCompile(`^\$\{\{\s*secrets\.[A-Za-z_][A-Za-z0-9_]*\s*\}\}$`)

func TestReleaseWorkflow_NoPlaintextSecrets(t *testing.T) {
	_, raw := loadReleaseWorkflow(t)
	var visit func(key string, v any)
	visit = func(key string, v any) {
		switch v := v.(type) {
		case map[string]any:
			for k, inner := range v {
				visit(k, inner)
			}
		case []any:
			for _, inner := range v {
				visit(key, inner)
			}
		case string:
			if looksLikeSecretKey(key) {
				assert.Regexp(t, secretRefPattern, v, "key %q must reference the secret store", key)
			}
		}
	}
	visit("", raw)
}

func looksLikeSecretKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, word := range []string{"TOKEN", "SECRET", "PASSWORD", "API_KEY"} {
		if strings.Contains(upper, word) {
			return true
		}
	}
	return false
}
