package answers

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FromFile loads a user-supplied configuration file as an answer source.
// JSON and YAML are both accepted (JSON is a YAML subset). The source is the
// second precedence layer and only participates when non-empty; callers
// should check Empty.
func FromFile(path string) (Source, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read config file: %w", err)
	}

	values := make(map[string]any)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return Source{}, fmt.Errorf("failed to unmarshal config file %s: %w", path, err)
	}

	return Source{Name: "file", Values: values}, nil
}
