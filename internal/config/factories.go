package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/batchelor-project/batchelor/task"
	"github.com/batchelor-project/batchelor/task/exec"
	"github.com/batchelor-project/batchelor/task/kubectl"
)

// FactoryEntry is one event type's factory definition, as loaded from the
// worker's --factories-config JSON file. Exactly one of Exec/Kubectl should
// be populated, matching Type.
type FactoryEntry struct {
	EventType string         `json:"eventType"`
	Type      string         `json:"type"` // "exec" or "kubectl"
	Exec      *exec.Config   `json:"exec,omitempty"`
	Kubectl   *kubectl.Config `json:"kubectl,omitempty"`
}

// LoadFactories reads a JSON array of FactoryEntry from path and builds the
// task.Factory map the worker loop needs, keyed by event type.
func LoadFactories(path string) (map[string]task.Factory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read factories config: %w", err)
	}

	var entries []FactoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse factories config: %w", err)
	}

	factories := make(map[string]task.Factory, len(entries))
	for _, entry := range entries {
		switch entry.Type {
		case "exec":
			if entry.Exec == nil {
				return nil, fmt.Errorf("event type %q: type exec requires an exec block", entry.EventType)
			}
			entry.Exec.EventType = entry.EventType
			factories[entry.EventType] = exec.New(*entry.Exec)
		case "kubectl":
			if entry.Kubectl == nil {
				return nil, fmt.Errorf("event type %q: type kubectl requires a kubectl block", entry.EventType)
			}
			entry.Kubectl.EventType = entry.EventType
			factories[entry.EventType] = kubectl.New(*entry.Kubectl)
		default:
			return nil, fmt.Errorf("event type %q: unknown factory type %q", entry.EventType, entry.Type)
		}
	}
	return factories, nil
}
