package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coursecoach/internal/chunker"
	"coursecoach/internal/domain"
	"coursecoach/internal/exercise"
	"coursecoach/internal/tui"
)

var (
	draftFile    string
	historyLimit int
	outputPath   string
	sourcePath   string
	exerciseKind string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the coach a question about a unit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := app.currentUnit(cmd.Context())
		if err != nil {
			return err
		}
		ans, err := app.svc.Ask(cmd.Context(), unit.ID, strings.Join(args, " "))
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), ans)
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback [draft]",
	Short: "Score a draft against the unit rubric",
	Long: `Scores a draft on the four rubric dimensions, records the attempt,
unlocks the next unit when the score clears the threshold and issues a new
revision mission. The draft comes from the argument, --file, or stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := app.currentUnit(cmd.Context())
		if err != nil {
			return err
		}
		draft, err := readDraft(cmd, args)
		if err != nil {
			return err
		}
		sub, err := app.svc.SubmitDraft(cmd.Context(), unit.ID, draft)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), sub)
	},
}

var lessonCmd = &cobra.Command{
	Use:   "lesson",
	Short: "Show the study pack for a unit",
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := app.currentUnit(cmd.Context())
		if err != nil {
			return err
		}
		pack, err := app.svc.LessonPack(cmd.Context(), unit.ID)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), pack)
	},
}

var exerciseCmd = &cobra.Command{
	Use:   "exercise",
	Short: "Show the core and stretch exercises for a unit",
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := app.currentUnit(cmd.Context())
		if err != nil {
			return err
		}
		exercises, err := app.svc.Exercises(cmd.Context(), unit.ID)
		if err != nil {
			return err
		}
		switch exerciseKind {
		case "":
		case string(domain.ExerciseCore), string(domain.ExerciseStretch):
			e, ok := exercise.ByKind(exercises, domain.ExerciseKind(exerciseKind))
			if !ok {
				exercises = nil
				break
			}
			exercises = []domain.Exercise{e}
		default:
			return fmt.Errorf("unknown exercise kind %q (want core or stretch)", exerciseKind)
		}
		if len(exercises) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No exercise available for unit %s yet.\n", unit.ID)
			return nil
		}
		for i, e := range exercises {
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			renderExercise(cmd.OutOrStdout(), e)
		}
		return nil
	},
}

var missionCmd = &cobra.Command{
	Use:   "mission",
	Short: "Show the active revision mission for a unit",
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := app.currentUnit(cmd.Context())
		if err != nil {
			return err
		}
		m, err := app.svc.ActiveMission(cmd.Context(), unit.ID)
		if err != nil {
			return err
		}
		if m == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "No active mission for unit %s.\n", unit.ID)
			return nil
		}
		return writeJSON(cmd.OutOrStdout(), m)
	},
}

var missionCompleteCmd = &cobra.Command{
	Use:   "complete [mission-id]",
	Short: "Mark a revision mission completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid mission id %q: %w", args[0], err)
		}
		if err := app.svc.CompleteMission(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Mission %d completed.\n", id)
		return nil
	},
}

var missionRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Build a fresh mission from the unit's latest attempt",
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := app.currentUnit(cmd.Context())
		if err != nil {
			return err
		}
		m, err := app.svc.RebuildMission(cmd.Context(), unit.ID)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), m)
	},
}

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List course units and which are unlocked",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := app.svc.Progress(cmd.Context())
		if err != nil {
			return err
		}
		unlocked := make(map[string]bool, len(p.UnlockedUnits))
		for _, id := range p.UnlockedUnits {
			unlocked[id] = true
		}
		out := cmd.OutOrStdout()
		for _, u := range app.catalog.Units() {
			mark := " "
			switch {
			case u.ID == p.CurrentUnitID:
				mark = ">"
			case !unlocked[u.ID]:
				mark = "x"
			}
			fmt.Fprintf(out, "%s %-3s %-40s pp.%d-%d  best=%d\n", mark, u.ID, u.Title, u.StartPage, u.EndPage, p.BestScoreByUnit[u.ID])
		}
		return nil
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show learner progress, optionally opening a unit with --unit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if unitID != "" {
			p, err := app.svc.OpenUnit(cmd.Context(), unitID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), p)
		}
		p, err := app.svc.Progress(cmd.Context())
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), p)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent attempts and chat turns for a unit",
	RunE: func(cmd *cobra.Command, args []string) error {
		unit, err := app.currentUnit(cmd.Context())
		if err != nil {
			return err
		}
		h, err := app.svc.History(cmd.Context(), unit.ID, historyLimit)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), h)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every attempt as a portfolio JSON document",
	RunE: func(cmd *cobra.Command, args []string) error {
		pf, err := app.svc.ExportPortfolio(cmd.Context())
		if err != nil {
			return err
		}
		if outputPath == "" {
			return writeJSON(cmd.OutOrStdout(), pf)
		}
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := writeJSON(f, pf); err != nil {
			return err
		}
		app.log.Info("portfolio exported", zap.String("path", outputPath), zap.Int("units", len(pf.Units)))
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk extracted course text into the chunk cache",
	Long: `Reads plain text extracted from the course source, with pages separated
by form feeds, and writes the per-unit chunk cache used by every other command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if sourcePath == "" {
			return fmt.Errorf("--source is required")
		}
		data, err := os.ReadFile(sourcePath)
		if err != nil {
			return fmt.Errorf("read source: %w", err)
		}
		cfg := app.cfg
		pages := chunker.SplitPages(string(data))
		src, err := chunker.Build(cfg.Course.ChunksPath, cfg.Course.SourceName, app.catalog, chunker.NewPageChunker(cfg.Course.ChunkChars), pages)
		if err != nil {
			return err
		}
		total := 0
		for _, u := range app.catalog.Units() {
			chunks, _ := src.Chunks(cmd.Context(), u.ID)
			total += len(chunks)
		}
		app.log.Info("chunk cache written",
			zap.String("path", cfg.Course.ChunksPath),
			zap.Int("pages", len(pages)),
			zap.Int("chunks", total))
		fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d pages into %d chunks.\n", len(pages), total)
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive coach console",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
	unit, err := app.currentUnit(cmd.Context())
	if err != nil {
		return err
	}
	m := tui.New(cmd.Context(), app.svc, app.catalog, unit)
	_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
	return err
}

func init() {
	feedbackCmd.Flags().StringVarP(&draftFile, "file", "f", "", "Read the draft from a file")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Maximum entries of each kind (0 for all)")
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to a file instead of stdout")
	ingestCmd.Flags().StringVarP(&sourcePath, "source", "s", "", "Form-feed separated page text of the course source")

	exerciseCmd.Flags().StringVarP(&exerciseKind, "kind", "k", "", "Show only the core or stretch exercise")

	missionCmd.AddCommand(missionCompleteCmd, missionRebuildCmd)
}

func renderExercise(w io.Writer, e domain.Exercise) {
	kind := string(e.Kind)
	if kind != "" {
		kind = strings.ToUpper(kind[:1]) + kind[1:]
	}
	fmt.Fprintf(w, "%s exercise\n\n%s\n\n", kind, e.Prompt)
	fmt.Fprintf(w, "Source mode: %s\n", e.SourceMode)
	if e.Citation != "" {
		fmt.Fprintf(w, "Source: %s\n", e.Citation)
	}
	fmt.Fprintf(w, "Timebox: %d minutes\n", e.TimeboxMinutes)
	if len(e.SuccessCriteria) > 0 {
		fmt.Fprintln(w, "Success criteria:")
		for _, c := range e.SuccessCriteria {
			fmt.Fprintf(w, "- %s\n", c)
		}
	}
}

func readDraft(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case draftFile != "":
		data, err := os.ReadFile(draftFile)
		if err != nil {
			return "", fmt.Errorf("read draft: %w", err)
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read draft: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", fmt.Errorf("empty draft")
		}
		return string(data), nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
