package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlModel is the top-level structure of a YAML model document.
type yamlModel struct {
	Name     string       `yaml:"name"`
	Skeleton yamlSkeleton `yaml:"skeleton"`
	Clips    []yamlClip   `yaml:"clips"`
}

// yamlSkeleton lists the bones of the model. Bones may appear in any order as long as
// parents are referenced by name; index references refer to document order.
type yamlSkeleton struct {
	Bones []yamlBone `yaml:"bones"`
}

// yamlBone describes one bone and its bind pose.
type yamlBone struct {
	Name        string      `yaml:"name"`
	Parent      yamlBoneRef `yaml:"parent"`
	Translation []float32   `yaml:"translation"`
	Rotation    []float32   `yaml:"rotation"`
	Scale       []float32   `yaml:"scale"`
	InverseBind []float32   `yaml:"inverse_bind"`
}

// yamlClip describes one animation clip.
type yamlClip struct {
	Name     string      `yaml:"name"`
	Duration *float32    `yaml:"duration"`
	Tracks   []yamlTrack `yaml:"tracks"`
}

// yamlTrack describes one keyframe track.
type yamlTrack struct {
	Bone          yamlBoneRef `yaml:"bone"`
	Property      string      `yaml:"property"`
	Interpolation string      `yaml:"interpolation"`
	Times         []float32   `yaml:"times"`
	Values        []float32   `yaml:"values"`
}

// yamlBoneRef references a bone either by name or by document index.
// An absent or null reference is unset.
type yamlBoneRef struct {
	set   bool
	name  string
	index int
}

// UnmarshalYAML decodes a scalar bone reference. Integer scalars become index references,
// every other scalar is treated as a bone name.
func (r *yamlBoneRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: bone reference must be a name or an index", node.Line)
	}
	switch node.Tag {
	case "!!null":
		*r = yamlBoneRef{}
		return nil
	case "!!int":
		var i int
		if err := node.Decode(&i); err != nil {
			return err
		}
		*r = yamlBoneRef{set: true, index: i}
		return nil
	default:
		*r = yamlBoneRef{set: true, name: node.Value, index: -1}
		return nil
	}
}

// String formats the reference for error messages.
func (r yamlBoneRef) String() string {
	if !r.set {
		return "<none>"
	}
	if r.name != "" {
		return fmt.Sprintf("%q", r.name)
	}
	return fmt.Sprintf("#%d", r.index)
}
