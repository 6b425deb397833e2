// internal/guide/persona.go
package guide

import (
	"fmt"
	"strings"

	apperrors "github.com/Corphon/ArtVistas/internal/errors"
)

// Persona selects the instruction prefix sent with every guide request.
type Persona string

const (
	PersonaCurator   Persona = "curator"
	PersonaArtist    Persona = "artist"
	PersonaHistorian Persona = "historian"

	DefaultPersona = PersonaCurator
)

// PersonaProfile is what visitors see of a persona, plus its instruction.
type PersonaProfile struct {
	Persona     Persona `json:"persona"`
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Instruction string  `json:"-"`
}

var personaProfiles = map[Persona]PersonaProfile{
	PersonaCurator: {
		Persona: PersonaCurator,
		Name:    "ArtGuide",
		Title:   "Museum Curator",
		Instruction: "You are ArtGuide, a knowledgeable and formal museum curator assistant for ArtVistas virtual museum. " +
			"Provide detailed, educational responses about art, artists, and exhibits. Use sophisticated language and art terminology.",
	},
	PersonaArtist: {
		Persona: PersonaArtist,
		Name:    "Canvas",
		Title:   "Creative Artist",
		Instruction: "You are Canvas, a creative and passionate artist assistant for ArtVistas virtual museum. " +
			"Be expressive and inspirational when discussing art. Share personal perspectives on artistic techniques and movements with enthusiasm.",
	},
	PersonaHistorian: {
		Persona: PersonaHistorian,
		Name:    "Chrono",
		Title:   "Art Historian",
		Instruction: "You are Chrono, a scholarly art historian assistant for ArtVistas virtual museum. " +
			"Focus on historical context, timelines, and the evolution of art movements. Provide dates and historical references in your responses.",
	},
}

// Personas lists the available personas in display order.
func Personas() []PersonaProfile {
	return []PersonaProfile{
		personaProfiles[PersonaCurator],
		personaProfiles[PersonaArtist],
		personaProfiles[PersonaHistorian],
	}
}

// ParsePersona accepts a persona name case-insensitively.
func ParsePersona(s string) (Persona, error) {
	p := Persona(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", apperrors.NewValidationError(fmt.Sprintf("unknown persona %q", s), nil)
	}
	return p, nil
}

func (p Persona) Valid() bool {
	_, ok := personaProfiles[p]
	return ok
}

// Profile returns p's profile; unknown personas get the default's.
func (p Persona) Profile() PersonaProfile {
	if profile, ok := personaProfiles[p]; ok {
		return profile
	}
	return personaProfiles[DefaultPersona]
}

// Instruction is the static text prepended to every request under p.
func (p Persona) Instruction() string {
	return p.Profile().Instruction
}
