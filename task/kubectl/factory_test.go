package kubectl

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderJobSetsNameAndImage(t *testing.T) {
	f := New(Config{EventType: "build", Image: "registry/build:latest", Namespace: "batchelor"})
	job := f.renderJob("task-123", "", nil)

	assert.Equal(t, "task-123", job.Metadata.Name)
	assert.Equal(t, "batchelor", job.Metadata.Namespace)
	require.Len(t, job.Spec.Template.Spec.Containers, 1)
	assert.Equal(t, "registry/build:latest", job.Spec.Template.Spec.Containers[0].Image)
	assert.Equal(t, "Never", job.Spec.Template.Spec.RestartPolicy)
}

func TestRenderJobIncludesImagePullSecretsAndVolumes(t *testing.T) {
	vol := NewVolume("creds", "secret", "build-creds", []KeyToPath{{Key: "token", Path: "token"}})
	f := New(Config{
		EventType:        "build",
		Image:            "registry/build:latest",
		ImagePullSecrets: []string{"regcred"},
		Volumes:          []Volume{vol},
	})
	job := f.renderJob("task-456", "", nil)

	require.Len(t, job.Spec.Template.Spec.ImagePullSecrets, 1)
	assert.Equal(t, "regcred", job.Spec.Template.Spec.ImagePullSecrets[0].Name)
	require.Len(t, job.Spec.Template.Spec.Volumes, 1)
	assert.Equal(t, "build-creds", job.Spec.Template.Spec.Volumes[0].Secret.SecretName)
}

func TestJobStatusDecodesSucceededCount(t *testing.T) {
	kt := &kubectlTask{cfg: Config{}}
	var status jobStatus
	require.NoError(t, json.Unmarshal([]byte(`{"status":{"succeeded":1}}`), &status))

	assert.Equal(t, int32(1), status.Status.Succeeded)
	_ = kt
}
