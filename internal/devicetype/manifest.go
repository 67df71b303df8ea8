// Package devicetype models balena device-type descriptors: the options a
// device type exposes for configuration, where its config file lives inside
// the image, and which OS architectures it is compatible with.
package devicetype

// Option is a single configurable question declared by a device type.
type Option struct {
	Name    string   `json:"name"`
	Message string   `json:"message,omitempty"`
	Type    string   `json:"type,omitempty"` // "text", "password", "number", "list", "confirm"
	Default any      `json:"default,omitempty"`
	Choices []string `json:"choices,omitempty"`
}

// OptionGroup is one entry of a manifest's options collection. Entries are a
// tagged variant: either a plain informational option (IsGroup false) or a
// named group of child options (IsGroup true). Only children of groups are
// part of the dynamic question schema.
type OptionGroup struct {
	Option
	IsGroup bool     `json:"isGroup,omitempty"`
	Options []Option `json:"options,omitempty"`
}

// ConfigLocation is the partition and path inside the image where a file is
// written. Partition indexes are 1-based.
type ConfigLocation struct {
	Partition int    `json:"partition"`
	Path      string `json:"path"`
}

// Configuration holds the manifest-declared location of the generated config
// descriptor.
type Configuration struct {
	Config ConfigLocation `json:"config"`
}

// Manifest describes a hardware/software target. Fetched once per run and
// read-only thereafter.
type Manifest struct {
	Slug            string         `json:"slug"`
	Name            string         `json:"name,omitempty"`
	Version         string         `json:"version,omitempty"`
	Arch            string         `json:"arch"`
	State           string         `json:"state,omitempty"`
	Options         []OptionGroup  `json:"options,omitempty"`
	Configuration   *Configuration `json:"configuration,omitempty"`
	SupportsBlink   bool           `json:"supportsBlink,omitempty"`
	YoctoDeviceType string         `json:"yocto,omitempty"`
}

// AdvancedGroup is the conventional name of the option group whose questions
// are hidden unless advanced mode is requested.
const AdvancedGroup = "advanced"

// QuestionNames returns the names of every question the manifest declares, in
// declaration order with duplicates collapsed to the first occurrence. The
// schema is exactly the child options of group entries; top-level non-group
// options are informational and excluded. Empty names are dropped.
func QuestionNames(m *Manifest) []string {
	var names []string
	seen := make(map[string]struct{})
	for _, q := range Questions(m) {
		if _, ok := seen[q.Name]; ok {
			continue
		}
		seen[q.Name] = struct{}{}
		names = append(names, q.Name)
	}
	return names
}

// Questions returns the flattened child options of every group entry, in
// declaration order. Unlike QuestionNames it does not deduplicate, so callers
// that need the full option (type, default, choices) see every declaration.
func Questions(m *Manifest) []Option {
	var opts []Option
	for _, group := range m.Options {
		if !group.IsGroup {
			continue
		}
		for _, child := range group.Options {
			if child.Name == "" {
				continue
			}
			opts = append(opts, child)
		}
	}
	return opts
}

// GroupQuestions returns the child options of the named group, or nil if the
// manifest has no such group.
func GroupQuestions(m *Manifest, name string) []Option {
	for _, group := range m.Options {
		if !group.IsGroup || group.Name != name {
			continue
		}
		var opts []Option
		for _, child := range group.Options {
			if child.Name == "" {
				continue
			}
			opts = append(opts, child)
		}
		return opts
	}
	return nil
}
