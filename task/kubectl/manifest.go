// Package kubectl implements the task.Factory/task.Task contract by
// rendering a Job manifest, submitting it through the configured kubectl
// binary, and polling `kubectl get job <id> -o json` — the structured form,
// not `kubectl describe`'s "Pods Statuses" text line, per the resolved Open
// Question in DESIGN.md.
package kubectl

// Job is the minimal subset of the batch/v1 Job manifest the factory needs
// to render; kubectl accepts JSON directly, so this is marshaled with
// encoding/json rather than a YAML library.
type Job struct {
	APIVersion string    `json:"apiVersion"`
	Kind       string    `json:"kind"`
	Metadata   Metadata  `json:"metadata"`
	Spec       JobSpec   `json:"spec"`
}

type Metadata struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

type JobSpec struct {
	BackoffLimit *int32      `json:"backoffLimit,omitempty"`
	Template     PodTemplate `json:"template"`
}

type PodTemplate struct {
	Spec PodSpec `json:"spec"`
}

type PodSpec struct {
	RestartPolicy      string             `json:"restartPolicy"`
	ServiceAccountName string             `json:"serviceAccountName,omitempty"`
	ImagePullSecrets   []LocalObjectRef   `json:"imagePullSecrets,omitempty"`
	Containers         []Container        `json:"containers"`
	Volumes            []Volume           `json:"volumes,omitempty"`
}

type LocalObjectRef struct {
	Name string `json:"name"`
}

type Container struct {
	Name         string                 `json:"name"`
	Image        string                 `json:"image"`
	Command      []string               `json:"command,omitempty"`
	Args         []string               `json:"args,omitempty"`
	Env          []EnvVar               `json:"env,omitempty"`
	Resources    ResourceRequirements   `json:"resources,omitempty"`
	VolumeMounts []VolumeMount          `json:"volumeMounts,omitempty"`
}

type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type ResourceRequirements struct {
	Requests map[string]string `json:"requests,omitempty"`
	Limits   map[string]string `json:"limits,omitempty"`
}

type VolumeMount struct {
	Name      string `json:"name"`
	MountPath string `json:"mountPath"`
}

// Volume supports the two kinds the spec names: secret and configMap, each
// optionally restricted to a subset of items (key → path).
type Volume struct {
	Name      string          `json:"name"`
	Kind      string          `json:"-"`
	Secret    *SecretVolume   `json:"secret,omitempty"`
	ConfigMap *ConfigMapVol   `json:"configMap,omitempty"`
}

type SecretVolume struct {
	SecretName string     `json:"secretName"`
	Items      []KeyToPath `json:"items,omitempty"`
}

type ConfigMapVol struct {
	Name  string      `json:"name"`
	Items []KeyToPath `json:"items,omitempty"`
}

type KeyToPath struct {
	Key  string `json:"key"`
	Path string `json:"path"`
}

func NewVolume(name, kind, refName string, items []KeyToPath) Volume {
	v := Volume{Name: name, Kind: kind}
	switch kind {
	case "secret":
		v.Secret = &SecretVolume{SecretName: refName, Items: items}
	case "configMap":
		v.ConfigMap = &ConfigMapVol{Name: refName, Items: items}
	}
	return v
}
