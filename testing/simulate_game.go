// Command simulate_game plays a whole story headlessly: it picks options with
// a fixed strategy, saves halfway, resumes into a fresh session and prints
// the final report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/tatianab/transit-ace/internal/app"
	"github.com/tatianab/transit-ace/internal/catalog"
	"github.com/tatianab/transit-ace/internal/config"
	"github.com/tatianab/transit-ace/internal/game"
	"github.com/tatianab/transit-ace/internal/logger"
	"github.com/tatianab/transit-ace/internal/models"
	"github.com/tatianab/transit-ace/internal/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	var (
		strategy = flag.String("strategy", "correct", "option strategy: correct, random or first")
		lang     = flag.String("lang", "en", "script language")
		plot     = flag.String("plot", "", "generate a custom story from this plot instead of the default script")
		seed     = flag.Uint64("seed", 1, "seed for the random strategy")
	)
	flag.Parse()
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logCfg := cfg.Logger()
	logCfg.OutputPath = "stderr"
	logCfg.Encoding = "console"
	zl, err := logger.New(logCfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	dir, err := os.MkdirTemp("", "transit-ace-sim-")
	if err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)
	st, err := sqlite.Open(filepath.Join(dir, "sim.db"), zl)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	language := models.ParseLanguage(*lang)

	// 1. Pick the story
	fmt.Println("--- Step 1: Loading story ---")
	gs, err := loadStory(ctx, cfg, zl, language, *plot)
	if err != nil {
		log.Fatalf("Failed to load story: %v", err)
	}
	id, err := st.SaveStory(ctx, gs.Story, gs.Scenarios)
	if err != nil {
		log.Fatalf("Failed to save story: %v", err)
	}
	gs.Story.ID = id
	fmt.Printf("Title: %s\n", gs.Story.Title)
	fmt.Printf("Scenarios: %d, budget €%.2f, morale %d\n\n", len(gs.Scenarios), gs.Story.InitialBudget, gs.Story.InitialMorale)

	pick := chooser(*strategy, *seed)
	grader := game.Grader{Language: language}

	// 2. Play the first half
	fmt.Println("--- Step 2: Playing ---")
	session := game.NewSession(game.Ledger{}, grader, zl)
	cancel := session.Subscribe(printProgress)
	if err := session.Start(gs.Story, gs.Scenarios); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	half := len(gs.Scenarios) / 2
	for i := 0; i < half && session.Advance(); i++ {
		choose(session, pick)
	}
	if err := session.Persist(ctx, st); err != nil {
		log.Fatalf("Failed to save session: %v", err)
	}
	cancel()

	// 3. Resume in a new session and finish
	fmt.Println("\n--- Step 3: Resuming saved game ---")
	resumed := game.NewSession(game.Ledger{}, grader, zl)
	resumed.Subscribe(printProgress)
	ok, err := resumed.Resume(ctx, st)
	if err != nil || !ok {
		log.Fatalf("Failed to resume (ok=%v): %v", ok, err)
	}
	for resumed.Advance() {
		choose(resumed, pick)
	}
	if err := resumed.Persist(ctx, st); err != nil {
		log.Fatalf("Failed to clear save: %v", err)
	}

	report, _ := resumed.Report()
	snap := resumed.Snapshot()
	fmt.Println("\n--- Final report ---")
	fmt.Printf("Grade: %s\n%s\n", report.Grade, report.Summary)
	fmt.Printf("Budget: €%.2f, Morale: %d, Infractions: %d, Items: %d\n",
		snap.Stats.Budget, snap.Stats.Morale, snap.Stats.LegalInfractions, len(snap.Inventory))
}

func loadStory(ctx context.Context, cfg *config.Config, zl *zap.Logger, lang models.Language, plot string) (models.GeneratedStory, error) {
	if plot == "" || !cfg.GenerationEnabled() {
		return catalog.Default(lang)
	}
	gen, closeGen, err := app.NewGenerator(ctx, cfg, zl)
	if err != nil {
		return models.GeneratedStory{}, err
	}
	defer closeGen()
	return gen.Generate(ctx, catalog.Rules(), lang, plot)
}

func chooser(strategy string, seed uint64) func(models.Scenario) string {
	switch strategy {
	case "random":
		r := rand.New(rand.NewPCG(seed, seed))
		return func(sc models.Scenario) string {
			return sc.Options[r.IntN(len(sc.Options))].ID
		}
	case "first":
		return func(sc models.Scenario) string {
			return sc.Options[0].ID
		}
	default:
		return func(sc models.Scenario) string {
			if _, ok := sc.Option(sc.CorrectOptionID); ok {
				return sc.CorrectOptionID
			}
			return sc.Options[0].ID
		}
	}
}

func choose(s *game.Session, pick func(models.Scenario) string) {
	snap := s.Snapshot()
	if snap.Current == nil || snap.OptionApplied {
		return
	}
	opt, err := s.ApplyOption(pick(*snap.Current))
	if err != nil {
		log.Fatalf("Failed to apply option: %v", err)
	}
	fmt.Printf("  > %s\n", opt.Text)
	if opt.Commentary != "" {
		fmt.Printf("  Sophia: %s\n", opt.Commentary)
	}
}

func printProgress(snap game.Snapshot) {
	if snap.State != game.StateInProgress || snap.OptionApplied {
		return
	}
	fmt.Printf("[%s] %s (budget €%.2f, morale %d)\n", snap.ProgressLabel(), snap.Current.Title, snap.Stats.Budget, snap.Stats.Morale)
}
