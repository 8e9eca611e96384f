package task

import "github.com/pkg/errors"

// Policy governs how a factory-declared field combines with a task-provided
// override of the same field (spec §4.6).
type Policy string

const (
	// PolicyOverride: a task-provided value replaces the factory value
	// outright.
	PolicyOverride Policy = "override"
	// PolicyExtend: task-provided values are appended/merged on top of the
	// factory value rather than replacing it.
	PolicyExtend Policy = "extend"
	// PolicyFixed: the task may not provide a value at all; doing so is a
	// rejected configuration.
	PolicyFixed Policy = "fixed"
)

// ErrFixedFieldOverridden is returned when a task tries to supply a value for
// a field the factory has pinned to PolicyFixed.
var ErrFixedFieldOverridden = errors.New("task may not override a fixed field")

// MergePolicy names the policy for each of the four mergeable fields.
type MergePolicy struct {
	Args Policy
	Env  Policy
	Cwd  Policy
	Cmd  Policy
}

// MergeArgs combines factory args with task-provided args per policy.
func MergeArgs(policy Policy, factoryArgs, taskArgs []string) ([]string, error) {
	if len(taskArgs) == 0 {
		return factoryArgs, nil
	}
	switch policy {
	case PolicyFixed:
		return nil, errors.Wrap(ErrFixedFieldOverridden, "args")
	case PolicyOverride:
		return taskArgs, nil
	case PolicyExtend, "":
		out := make([]string, 0, len(factoryArgs)+len(taskArgs))
		out = append(out, factoryArgs...)
		out = append(out, taskArgs...)
		return out, nil
	default:
		return nil, errors.Errorf("unknown args merge policy %q", policy)
	}
}

// MergeEnv combines factory env with task-provided env per policy.
// envFlagGlobal, when PolicyExtend, additionally merges the host environment
// underneath the result (host entries never override factory/task entries).
func MergeEnv(policy Policy, envFlagGlobal Policy, factoryEnv, taskEnv map[string]string, hostEnv map[string]string) (map[string]string, error) {
	if len(taskEnv) > 0 && policy == PolicyFixed {
		return nil, errors.Wrap(ErrFixedFieldOverridden, "env")
	}

	var merged map[string]string
	switch policy {
	case PolicyOverride:
		if len(taskEnv) > 0 {
			merged = cloneEnv(taskEnv)
		} else {
			merged = cloneEnv(factoryEnv)
		}
	case PolicyExtend, "", PolicyFixed:
		merged = cloneEnv(factoryEnv)
		for k, v := range taskEnv {
			merged[k] = v
		}
	default:
		return nil, errors.Errorf("unknown env merge policy %q", policy)
	}

	if envFlagGlobal == PolicyExtend {
		for k, v := range hostEnv {
			if _, exists := merged[k]; !exists {
				merged[k] = v
			}
		}
	}
	return merged, nil
}

// MergeScalar combines a single-valued field (cwd or cmd) per policy.
func MergeScalar(policy Policy, field, factoryValue, taskValue string) (string, error) {
	if taskValue == "" {
		return factoryValue, nil
	}
	switch policy {
	case PolicyFixed:
		return "", errors.Wrap(ErrFixedFieldOverridden, field)
	case PolicyOverride, PolicyExtend, "":
		// A scalar has no meaningful "extend"; task-provided wins as with
		// override, matching the original's single-value substitution rule.
		return taskValue, nil
	default:
		return "", errors.Errorf("unknown %s merge policy %q", field, policy)
	}
}

func cloneEnv(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}
