package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/Carmen-Shannon/oxy-anim/engine/skeleton"

	"gopkg.in/yaml.v3"
)

// yamlLoaderBackendImpl is the implementation of yamlLoaderBackend.
type yamlLoaderBackendImpl struct{}

// yamlLoaderBackend is a loaderBackend implementation for YAML model documents.
type yamlLoaderBackend interface {
	loaderBackend
}

var _ yamlLoaderBackend = &yamlLoaderBackendImpl{}

// newYAMLLoaderBackend creates a new YAML loader backend.
//
// Returns:
//   - yamlLoaderBackend: the loader backend for YAML model documents
func newYAMLLoaderBackend() yamlLoaderBackend {
	return &yamlLoaderBackendImpl{}
}

func (b *yamlLoaderBackendImpl) Load(path string) (model.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return b.decode(data, name, path)
}

func (b *yamlLoaderBackendImpl) LoadReader(name string, r io.Reader) (model.Model, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return b.decode(data, name, "")
}

// decode parses a YAML document and converts it into a validated Model.
func (b *yamlLoaderBackendImpl) decode(data []byte, fallbackName, path string) (model.Model, error) {
	var doc yamlModel
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty document: %w", ErrInvalidDocument)
		}
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidDocument)
	}

	bones, docToSorted, err := yamlBuildBones(doc.Skeleton.Bones)
	if err != nil {
		return nil, err
	}

	// Validate the hierarchy once and back-fill missing inverse bind matrices.
	skel, err := skeleton.NewSkeleton(bones)
	if err != nil {
		return nil, err
	}
	for i := range bones {
		bones[i].InverseBindMatrix = skel.InverseBindMatrix(i)
	}

	clips := make([]*animation.Clip, 0, len(doc.Clips))
	seen := make(map[string]bool, len(doc.Clips))
	for ci, yc := range doc.Clips {
		clip, err := yamlBuildClip(ci, yc, skel, docToSorted)
		if err != nil {
			return nil, err
		}
		if seen[clip.Name()] {
			return nil, fmt.Errorf("duplicate clip name %q: %w", clip.Name(), ErrInvalidDocument)
		}
		seen[clip.Name()] = true
		clips = append(clips, clip)
	}

	name := doc.Name
	if name == "" {
		name = fallbackName
	}
	return model.NewModel(
		model.WithName(name),
		model.WithSourcePath(path),
		model.WithBones(bones),
		model.WithAnimations(clips),
	), nil
}

// yamlBuildBones converts the document bones into skeleton bones sorted parents first.
//
// Parameters:
//   - ybones: the bones in document order
//
// Returns:
//   - []skeleton.Bone: the bones with parents preceding children
//   - []int: mapping from document index to sorted index
//   - error: an error if a parent reference cannot be resolved or the hierarchy has a cycle
func yamlBuildBones(ybones []yamlBone) ([]skeleton.Bone, []int, error) {
	if len(ybones) == 0 {
		return nil, nil, fmt.Errorf("skeleton has no bones: %w", ErrInvalidDocument)
	}

	nameToDoc := make(map[string]int, len(ybones))
	for i := range ybones {
		if ybones[i].Name == "" {
			ybones[i].Name = fmt.Sprintf("bone_%d", i)
		}
		if _, dup := nameToDoc[ybones[i].Name]; dup {
			return nil, nil, fmt.Errorf("duplicate bone name %q: %w", ybones[i].Name, ErrInvalidDocument)
		}
		nameToDoc[ybones[i].Name] = i
	}

	parents := make([]int, len(ybones))
	children := make([][]int, len(ybones))
	var roots []int
	for i, yb := range ybones {
		p, err := yamlResolveDocRef(yb.Parent, nameToDoc, len(ybones))
		if err != nil {
			return nil, nil, fmt.Errorf("bone %q parent: %w", yb.Name, err)
		}
		if p == i {
			return nil, nil, fmt.Errorf("bone %q is its own parent: %w", yb.Name, ErrInvalidDocument)
		}
		parents[i] = p
		if p < 0 {
			roots = append(roots, i)
		} else {
			children[p] = append(children[p], i)
		}
	}

	// Breadth-first from the roots so every parent lands before its children.
	order := make([]int, 0, len(ybones))
	queue := append([]int(nil), roots...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)
		queue = append(queue, children[cur]...)
	}
	if len(order) < len(ybones) {
		return nil, nil, fmt.Errorf("bone hierarchy contains a cycle: %w", ErrInvalidDocument)
	}

	docToSorted := make([]int, len(ybones))
	for sorted, doc := range order {
		docToSorted[doc] = sorted
	}

	bones := make([]skeleton.Bone, len(ybones))
	for sorted, doc := range order {
		yb := ybones[doc]
		bind, err := yamlBindTransform(yb)
		if err != nil {
			return nil, nil, fmt.Errorf("bone %q: %w", yb.Name, err)
		}
		bone := skeleton.Bone{
			Name:        yb.Name,
			ParentIndex: -1,
			Bind:        bind,
		}
		if parents[doc] >= 0 {
			bone.ParentIndex = int32(docToSorted[parents[doc]])
		}
		if len(yb.InverseBind) > 0 {
			if len(yb.InverseBind) != 16 {
				return nil, nil, fmt.Errorf("bone %q inverse_bind has %d values, want 16: %w",
					yb.Name, len(yb.InverseBind), ErrInvalidDocument)
			}
			copy(bone.InverseBindMatrix[:], yb.InverseBind)
		}
		bones[sorted] = bone
	}
	return bones, docToSorted, nil
}

// yamlBindTransform builds the bind transform of a bone, defaulting missing components.
func yamlBindTransform(yb yamlBone) (skeleton.Transform, error) {
	t := skeleton.IdentityTransform()
	if err := yamlCopyVec("translation", yb.Translation, t.Translation[:]); err != nil {
		return t, err
	}
	if err := yamlCopyVec("rotation", yb.Rotation, t.Rotation[:]); err != nil {
		return t, err
	}
	if err := yamlCopyVec("scale", yb.Scale, t.Scale[:]); err != nil {
		return t, err
	}
	return t, nil
}

// yamlCopyVec copies src into dst when src is present and of the right length.
func yamlCopyVec(field string, src, dst []float32) error {
	if len(src) == 0 {
		return nil
	}
	if len(src) != len(dst) {
		return fmt.Errorf("%s has %d values, want %d: %w", field, len(src), len(dst), ErrInvalidDocument)
	}
	copy(dst, src)
	return nil
}

// yamlResolveDocRef resolves a bone reference to a document index, or -1 when unset.
func yamlResolveDocRef(ref yamlBoneRef, nameToDoc map[string]int, count int) (int, error) {
	if !ref.set {
		return -1, nil
	}
	if ref.name != "" {
		i, ok := nameToDoc[ref.name]
		if !ok {
			return 0, fmt.Errorf("bone %s: %w", ref, ErrUnknownBone)
		}
		return i, nil
	}
	if ref.index < 0 || ref.index >= count {
		return 0, fmt.Errorf("bone %s out of range for %d bones: %w", ref, count, ErrUnknownBone)
	}
	return ref.index, nil
}

// yamlBuildClip converts a document clip into a validated animation clip targeting skel.
//
// Parameters:
//   - ci: the clip's document index, used for unnamed clips
//   - yc: the document clip
//   - skel: the validated skeleton, used to resolve bone names
//   - docToSorted: mapping from document bone index to skeleton bone index
//
// Returns:
//   - *animation.Clip: the clip
//   - error: an error if a track is invalid or references an unknown bone
func yamlBuildClip(ci int, yc yamlClip, skel skeleton.Skeleton, docToSorted []int) (*animation.Clip, error) {
	name := yc.Name
	if name == "" {
		name = fmt.Sprintf("clip_%d", ci)
	}

	tracks := make([]*animation.Track, 0, len(yc.Tracks))
	for ti, yt := range yc.Tracks {
		bone, err := yamlResolveTrackBone(yt.Bone, skel, docToSorted)
		if err != nil {
			return nil, fmt.Errorf("clip %q track %d: %w", name, ti, err)
		}
		prop, err := animation.ParseProperty(yt.Property)
		if err != nil {
			return nil, fmt.Errorf("clip %q track %d: %w", name, ti, err)
		}
		interp, err := animation.ParseInterpolation(yt.Interpolation)
		if err != nil {
			return nil, fmt.Errorf("clip %q track %d: %w", name, ti, err)
		}
		tr, err := animation.NewTrack(bone, prop, interp, yt.Times, yt.Values)
		if err != nil {
			return nil, fmt.Errorf("clip %q track %d: %w", name, ti, err)
		}
		tracks = append(tracks, tr)
	}

	var opts []animation.ClipBuilderOption
	if yc.Duration != nil {
		opts = append(opts, animation.WithDuration(*yc.Duration))
	}
	return animation.NewClip(name, tracks, opts...)
}

// yamlResolveTrackBone resolves a track's bone reference to a skeleton bone index.
func yamlResolveTrackBone(ref yamlBoneRef, skel skeleton.Skeleton, docToSorted []int) (int, error) {
	if !ref.set {
		return 0, fmt.Errorf("track has no bone: %w", ErrUnknownBone)
	}
	if ref.name != "" {
		i := skel.BoneIndex(ref.name)
		if i < 0 {
			return 0, fmt.Errorf("bone %s: %w", ref, ErrUnknownBone)
		}
		return i, nil
	}
	if ref.index < 0 || ref.index >= len(docToSorted) {
		return 0, fmt.Errorf("bone %s out of range for %d bones: %w", ref, len(docToSorted), ErrUnknownBone)
	}
	return docToSorted[ref.index], nil
}
