// internal/catalog/catalog.go
package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/Corphon/ArtVistas/internal/camera"
	apperrors "github.com/Corphon/ArtVistas/internal/errors"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Exhibit is one artwork hung in a gallery room.
type Exhibit struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Artist      string     `json:"artist" yaml:"artist"`
	Description string     `json:"description" yaml:"description"`
	Position    [3]float64 `json:"position" yaml:"position"`
	Rotation    [3]float64 `json:"rotation" yaml:"rotation"`
	Texture     string     `json:"texture" yaml:"texture"`
}

// Target is the point the camera frames when the exhibit is focused.
func (e Exhibit) Target() camera.Vec3 {
	return camera.FromArray(e.Position)
}

// CameraStart is a gallery's initial camera.
type CameraStart struct {
	Position [3]float64 `json:"position" yaml:"position"`
	LookAt   [3]float64 `json:"look_at" yaml:"look_at"`
	FOV      float64    `json:"fov" yaml:"fov"`
}

func (c CameraStart) Pose() camera.Pose {
	return camera.Pose{
		Position: camera.FromArray(c.Position),
		LookAt:   camera.FromArray(c.LookAt),
	}
}

// Gallery is a room of exhibits.
type Gallery struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Camera      CameraStart `json:"camera" yaml:"camera"`
	Exhibits    []Exhibit   `json:"exhibits" yaml:"exhibits"`
}

// Exhibit looks up an exhibit by ID.
func (g *Gallery) Exhibit(id string) (*Exhibit, bool) {
	for i := range g.Exhibits {
		if g.Exhibits[i].ID == id {
			return &g.Exhibits[i], true
		}
	}
	return nil, false
}

// FeaturedExhibit is a landing-page carousel item.
type FeaturedExhibit struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Artist      string `json:"artist" yaml:"artist"`
	Description string `json:"description" yaml:"description"`
	Image       string `json:"image" yaml:"image"`
}

// Catalog is the read-only set of galleries and featured exhibits.
type Catalog struct {
	galleries []Gallery
	index     map[string]int
	featured  []FeaturedExhibit
}

type document struct {
	Galleries []Gallery         `yaml:"galleries"`
	Featured  []FeaturedExhibit `yaml:"featured"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return parse(defaultCatalog)
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigurationError("failed to read catalog file "+path, err)
	}
	return parse(data)
}

// Load reads a catalog document from r.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewValidationError("invalid catalog document", err)
	}

	c := &Catalog{
		galleries: doc.Galleries,
		index:     make(map[string]int, len(doc.Galleries)),
		featured:  doc.Featured,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	if len(c.galleries) == 0 {
		return apperrors.NewValidationError("catalog has no galleries", nil)
	}
	for i, g := range c.galleries {
		if g.ID == "" {
			return apperrors.NewValidationError(fmt.Sprintf("gallery #%d has no id", i), nil)
		}
		if _, dup := c.index[g.ID]; dup {
			return apperrors.NewValidationError("duplicate gallery id "+g.ID, nil)
		}
		c.index[g.ID] = i

		if !finite(g.Camera.Position) || !finite(g.Camera.LookAt) {
			return apperrors.NewValidationError("gallery "+g.ID+" has a non-finite camera", nil)
		}
		if g.Camera.FOV <= 0 {
			c.galleries[i].Camera.FOV = 60
		}

		seen := make(map[string]struct{}, len(g.Exhibits))
		for _, e := range g.Exhibits {
			if e.ID == "" {
				return apperrors.NewValidationError("gallery "+g.ID+" has an exhibit without id", nil)
			}
			if _, dup := seen[e.ID]; dup {
				return apperrors.NewValidationError(fmt.Sprintf("duplicate exhibit id %s in gallery %s", e.ID, g.ID), nil)
			}
			seen[e.ID] = struct{}{}
			if !finite(e.Position) || !finite(e.Rotation) {
				return apperrors.NewValidationError(fmt.Sprintf("exhibit %s/%s has a non-finite placement", g.ID, e.ID), nil)
			}
		}
	}
	return nil
}

func finite(a [3]float64) bool {
	for _, f := range a {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Galleries returns the galleries in declaration order.
func (c *Catalog) Galleries() []Gallery {
	return append([]Gallery(nil), c.galleries...)
}

func (c *Catalog) Gallery(id string) (*Gallery, error) {
	i, ok := c.index[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("gallery not found: "+id, nil)
	}
	g := c.galleries[i]
	return &g, nil
}

func (c *Catalog) Exhibit(galleryID, exhibitID string) (*Exhibit, error) {
	g, err := c.Gallery(galleryID)
	if err != nil {
		return nil, err
	}
	e, ok := g.Exhibit(exhibitID)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("exhibit %s not found in gallery %s", exhibitID, galleryID), nil)
	}
	return e, nil
}

func (c *Catalog) Featured() []FeaturedExhibit {
	return append([]FeaturedExhibit(nil), c.featured...)
}
