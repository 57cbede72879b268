package kit

import (
	"path"
	"slices"
	"strings"
)

// Installation subtrees.
const (
	SubtreeAgents    = "agents"
	SubtreeSkills    = "skills"
	SubtreeWorkflows = "workflows"
	SubtreeScripts   = "scripts"
	SubtreeRules     = "rules"
	SubtreeShared    = "shared"
)

// Subtrees returns the named subtrees of an installation in layout order.
func Subtrees() []string {
	return []string{
		SubtreeAgents,
		SubtreeSkills,
		SubtreeWorkflows,
		SubtreeScripts,
		SubtreeRules,
		SubtreeShared,
	}
}

// IsSubtree reports whether name is one of the installation subtrees.
func IsSubtree(name string) bool {
	return slices.Contains(Subtrees(), name)
}

// Mapping copies one directory of an extracted archive into an installation subtree.
type Mapping struct {
	// From is a slash-separated path relative to the extracted root.
	From string `yaml:"from"`
	// To is the destination subtree name.
	To string `yaml:"to"`
}

// CleanFrom returns From normalised to a relative slash path.
func (m Mapping) CleanFrom() string {
	return strings.TrimPrefix(path.Clean("/"+m.From), "/")
}

// RemoteSource identifies one archive to provision.
type RemoteSource struct {
	// Name is the logical name used in logs and workspace paths.
	Name string `yaml:"name"`
	// URL is the archive location.
	URL string `yaml:"url"`
	// Optional sources only produce a warning when they fail.
	Optional bool `yaml:"optional,omitempty"`
	// Mappings route extracted directories into the installation.
	Mappings []Mapping `yaml:"mappings"`
}

// Clone returns a deep copy so a running pipeline cannot be affected by later edits.
func (s *RemoteSource) Clone() *RemoteSource {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.Mappings = slices.Clone(s.Mappings)

	return &cloned
}

// Destinations returns the distinct subtrees the source writes to.
func (s *RemoteSource) Destinations() []string {
	result := make([]string, 0, len(s.Mappings))
	for _, m := range s.Mappings {
		if !slices.Contains(result, m.To) {
			result = append(result, m.To)
		}
	}

	return result
}
