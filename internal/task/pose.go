package task

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Pose references one image in the pose catalog. An empty category or a
// negative index means no pose is selected.
type Pose struct {
	Category string `json:"category"`
	Index    int    `json:"index"`
}

// NoPose is the unselected pose.
var NoPose = Pose{Index: -1}

// Selected reports whether the pose refers to an image.
func (p Pose) Selected() bool {
	return p.Category != "" && p.Index >= 0
}

func (p Pose) String() string {
	if !p.Selected() {
		return "none"
	}
	return p.Category + ":" + strconv.Itoa(p.Index)
}

// ParsePose reads "category:index". "" and "none" yield NoPose.
func ParsePose(value string) (Pose, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "none") {
		return NoPose, nil
	}
	category, rawIndex, ok := strings.Cut(value, ":")
	if !ok || strings.TrimSpace(category) == "" {
		return NoPose, fmt.Errorf("%w: %q (want category:index)", ErrInvalidPose, value)
	}
	index, err := strconv.Atoi(strings.TrimSpace(rawIndex))
	if err != nil || index < 0 {
		return NoPose, fmt.Errorf("%w: %q (index must be a non-negative integer)", ErrInvalidPose, value)
	}
	return Pose{Category: strings.TrimSpace(category), Index: index}, nil
}

// AssetPath is the catalog-relative image path for a pose:
// "{category}/{category}_{index:02d}.png".
func AssetPath(p Pose) string {
	return fmt.Sprintf("%s/%s_%02d.png", p.Category, p.Category, p.Index)
}

// PoseCategory is one catalog category holding Count images.
type PoseCategory struct {
	Name  string `yaml:"name" json:"name"`
	Label string `yaml:"label,omitempty" json:"label"`
	Count int    `yaml:"count" json:"count"`
}

// PoseCatalog is the static set of pose images available for ControlNet.
type PoseCatalog struct {
	categories []PoseCategory
	byName     map[string]int
}

var builtinPoses = []PoseCategory{
	{Name: "standing", Count: 12},
	{Name: "sitting", Count: 10},
	{Name: "walking", Count: 8},
	{Name: "lying", Count: 6},
	{Name: "dancing", Count: 8},
	{Name: "fighting", Count: 6},
}

// DefaultPoseCatalog returns the builtin catalog.
func DefaultPoseCatalog() *PoseCatalog {
	catalog, _ := NewPoseCatalog(builtinPoses)
	return catalog
}

// NewPoseCatalog validates categories and fills missing labels.
func NewPoseCatalog(categories []PoseCategory) (*PoseCatalog, error) {
	title := cases.Title(language.English)
	catalog := &PoseCatalog{byName: make(map[string]int, len(categories))}
	for _, category := range categories {
		name := strings.TrimSpace(category.Name)
		if name == "" || strings.ContainsAny(name, "/\\:") {
			return nil, fmt.Errorf("pose catalog: invalid category name %q", category.Name)
		}
		if category.Count <= 0 {
			return nil, fmt.Errorf("pose catalog: category %q must have a positive count", name)
		}
		if _, dup := catalog.byName[name]; dup {
			return nil, fmt.Errorf("pose catalog: duplicate category %q", name)
		}
		label := strings.TrimSpace(category.Label)
		if label == "" {
			label = title.String(strings.ReplaceAll(name, "_", " "))
		}
		catalog.byName[name] = len(catalog.categories)
		catalog.categories = append(catalog.categories, PoseCategory{Name: name, Label: label, Count: category.Count})
	}
	return catalog, nil
}

type poseManifest struct {
	Categories []PoseCategory `yaml:"categories"`
}

// LoadPoseCatalog reads a YAML manifest of the form:
//
//	categories:
//	  - name: standing
//	    count: 12
func LoadPoseCatalog(path string) (*PoseCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pose catalog: %w", err)
	}
	var manifest poseManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse pose catalog: %w", err)
	}
	if len(manifest.Categories) == 0 {
		return nil, fmt.Errorf("pose catalog %s: no categories", path)
	}
	return NewPoseCatalog(manifest.Categories)
}

// Categories returns the catalog categories in declaration order.
func (c *PoseCatalog) Categories() []PoseCategory {
	return append([]PoseCategory(nil), c.categories...)
}

// Validate checks that p names an existing image.
func (c *PoseCatalog) Validate(p Pose) error {
	if !p.Selected() {
		return fmt.Errorf("%w: no pose selected", ErrInvalidPose)
	}
	idx, ok := c.byName[p.Category]
	if !ok {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidPose, p.Category)
	}
	if count := c.categories[idx].Count; p.Index >= count {
		return fmt.Errorf("%w: %s has %d images, index %d", ErrInvalidPose, p.Category, count, p.Index)
	}
	return nil
}

// AssetPath validates p and returns its image path.
func (c *PoseCatalog) AssetPath(p Pose) (string, error) {
	if err := c.Validate(p); err != nil {
		return "", err
	}
	return AssetPath(p), nil
}
