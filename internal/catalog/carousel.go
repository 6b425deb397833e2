// internal/catalog/carousel.go
package catalog

import (
	"math"
	"sync"

	"github.com/Corphon/ArtVistas/internal/camera"
)

// Slot is where a carousel item sits relative to the carousel centre.
type Slot struct {
	Exhibit  FeaturedExhibit `json:"exhibit"`
	Index    int             `json:"index"`
	Active   bool            `json:"active"`
	Angle    float64         `json:"angle"`
	Position camera.Vec3     `json:"position"`
}

// Carousel rotates through the featured exhibits. The active item always
// sits at angle zero, in front of the viewer.
type Carousel struct {
	mu     sync.Mutex
	items  []FeaturedExhibit
	active int
}

func NewCarousel(items []FeaturedExhibit) *Carousel {
	return &Carousel{items: append([]FeaturedExhibit(nil), items...)}
}

func (c *Carousel) Len() int { return len(c.items) }

func (c *Carousel) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Next advances with wrap-around and returns the new active index.
func (c *Carousel) Next() int {
	return c.step(1)
}

// Prev steps back with wrap-around and returns the new active index.
func (c *Carousel) Prev() int {
	return c.step(-1)
}

func (c *Carousel) step(d int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.items)
	if n == 0 {
		return 0
	}
	c.active = ((c.active+d)%n + n) % n
	return c.active
}

// Select makes item i active. Out-of-range indexes are ignored.
func (c *Carousel) Select(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.items) {
		return false
	}
	c.active = i
	return true
}

// Layout places item i at angle ((i-active)/n)*2π on a circle of radius r:
// x = sin(angle)*r, z = cos(angle)*r.
func (c *Carousel) Layout(radius float64) []Slot {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.items)
	slots := make([]Slot, n)
	for i, item := range c.items {
		angle := float64(i-c.active) / float64(n) * 2 * math.Pi
		slots[i] = Slot{
			Exhibit:  item,
			Index:    i,
			Active:   i == c.active,
			Angle:    angle,
			Position: camera.V(math.Sin(angle)*radius, 0, math.Cos(angle)*radius),
		}
	}
	return slots
}
