// cmd/demo/main.go
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Corphon/ArtVistas/internal/camera"
	"github.com/Corphon/ArtVistas/internal/catalog"
	"github.com/Corphon/ArtVistas/internal/config"
	"github.com/Corphon/ArtVistas/internal/guide"
	"github.com/Corphon/ArtVistas/internal/llm"
	_ "github.com/Corphon/ArtVistas/internal/llm/providers/google"
	_ "github.com/Corphon/ArtVistas/internal/llm/providers/openai"
	"github.com/Corphon/ArtVistas/internal/utils"
	"go.uber.org/zap"
)

// console is the terminal front end: the galleries, a focus preview and a
// guide conversation, without the HTTP server.
type console struct {
	cfg     *config.Config
	logger  *zap.Logger
	catalog *catalog.Catalog
	gen     guide.Generator
	genErr  error
	in      *bufio.Scanner
}

func main() {
	fmt.Println("ArtVistas console")
	fmt.Println("=================")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Console output belongs to the visitor; the log only carries warnings.
	logger, err := utils.NewLogger("warn", "console")
	if err != nil {
		log.Fatalf("failed to initialise logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cat, err := catalog.Default()
	if cfg.CatalogFile != "" {
		cat, err = catalog.LoadFile(cfg.CatalogFile)
	}
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	c := &console{cfg: cfg, logger: logger, catalog: cat, in: bufio.NewScanner(os.Stdin)}
	c.connectProvider()

	for {
		c.showMenu()
		switch strings.ToLower(c.input("> ")) {
		case "1", "galleries":
			c.listGalleries()
		case "2", "focus":
			c.previewFocus()
		case "3", "guide", "chat":
			c.chat()
		case "0", "quit", "exit":
			fmt.Println("Goodbye.")
			return
		default:
			fmt.Println("Unknown choice.")
		}
		fmt.Println()
	}
}

func (c *console) connectProvider() {
	if !c.cfg.HasCredential() {
		c.genErr = fmt.Errorf("%w for provider %s", llm.ErrMissingAPIKey, c.cfg.LLMProvider)
		return
	}
	provider, err := llm.GetProvider(c.cfg.LLMProvider, c.cfg.LLMConfig())
	if err != nil {
		c.genErr = err
		return
	}
	c.gen = llm.NewGenerator(provider, llm.WithModel(c.cfg.LLMModel), llm.WithLogger(c.logger))
}

func (c *console) showMenu() {
	status := "ready (" + c.cfg.LLMProvider + ")"
	if c.gen == nil {
		status = "unavailable: " + c.genErr.Error()
	}
	fmt.Println("  1) Galleries")
	fmt.Println("  2) Preview a camera focus")
	fmt.Println("  3) Talk to the guide [" + status + "]")
	fmt.Println("  0) Exit")
}

func (c *console) input(prompt string) string {
	fmt.Print(prompt)
	if !c.in.Scan() {
		return "exit"
	}
	return strings.TrimSpace(c.in.Text())
}

func (c *console) inputWithDefault(prompt, defaultValue string) string {
	v := c.input(fmt.Sprintf("%s [%s]: ", prompt, defaultValue))
	if v == "" {
		return defaultValue
	}
	return v
}

func (c *console) listGalleries() {
	for _, g := range c.catalog.Galleries() {
		fmt.Printf("%s - %s\n", g.ID, g.Name)
		for _, e := range g.Exhibits {
			fmt.Printf("    %-22s %s (%s)\n", e.ID, e.Title, e.Artist)
		}
	}
}

func (c *console) previewFocus() {
	galleries := c.catalog.Galleries()
	if len(galleries) == 0 {
		fmt.Println("No galleries.")
		return
	}
	g, err := c.catalog.Gallery(c.inputWithDefault("Gallery", galleries[0].ID))
	if err != nil {
		fmt.Println(err)
		return
	}
	if len(g.Exhibits) == 0 {
		fmt.Println("No exhibits.")
		return
	}
	e, ok := g.Exhibit(c.inputWithDefault("Exhibit", g.Exhibits[0].ID))
	if !ok {
		fmt.Println("No such exhibit.")
		return
	}

	run := camera.Plan(camera.FocusRequest{Target: e.Target()}, g.Camera.Pose(), time.Now())
	fmt.Printf("Focusing %q over %s\n", e.Title, run.Duration)
	for _, f := range camera.Sample(run, 10) {
		p := f.Pose.Position
		fmt.Printf("  %6s  %5.1f%%  (%6.2f, %6.2f, %6.2f)\n", f.Offset, f.Progress*100, p.X, p.Y, p.Z)
	}
}

func (c *console) chat() {
	for _, p := range guide.Personas() {
		fmt.Printf("  %-10s %s, %s\n", p.Persona, p.Name, p.Title)
	}
	persona, err := guide.ParsePersona(c.inputWithDefault("Persona", string(guide.DefaultPersona)))
	if err != nil {
		fmt.Println(err)
		return
	}

	s := guide.NewSession(c.gen,
		guide.WithPersona(persona),
		guide.WithTimeout(c.cfg.GuideRequestTimeout),
		guide.WithLogger(c.logger),
		guide.WithConfigurationError(c.genErr),
	)
	defer s.Close()

	for _, m := range s.Messages() {
		fmt.Printf("%s: %s\n", persona.Profile().Name, m.Content)
	}
	fmt.Println("(/persona NAME switches guide, /back returns to the menu)")

	for {
		text := c.input("You: ")
		switch {
		case text == "/back" || text == "exit":
			return
		case strings.HasPrefix(text, "/persona"):
			p, err := guide.ParsePersona(strings.TrimPrefix(text, "/persona"))
			if err == nil {
				err = s.SetPersona(p)
			}
			if err != nil {
				fmt.Println(err)
				continue
			}
			fmt.Printf("Now talking to %s.\n", p.Profile().Name)
			continue
		}

		_, outcome, err := s.Submit(text)
		if err != nil {
			fmt.Println(err)
			continue
		}
		fmt.Println("...")
		out := <-outcome
		if out.Err != nil {
			fmt.Println(out.Err)
			continue
		}
		fmt.Printf("%s: %s\n", s.Persona().Profile().Name, out.Reply.Content)
	}
}
