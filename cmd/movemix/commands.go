package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hilayankonsky/movemix/internal/api"
	"github.com/hilayankonsky/movemix/internal/config"
	"github.com/hilayankonsky/movemix/internal/period"
	"github.com/hilayankonsky/movemix/internal/stats"
	"github.com/hilayankonsky/movemix/internal/workouts"
	"github.com/hilayankonsky/movemix/pkg"
)

type command func(ctx context.Context, c *cli, args []string) error

var commands = map[string]command{
	"add":            cmdAdd,
	"update":         cmdUpdate,
	"remove":         cmdRemove,
	"list":           cmdList,
	"stats":          cmdStats,
	"settings":       cmdSettings,
	"reset-settings": cmdResetSettings,
	"export":         cmdExport,
	"import":         cmdImport,
	"clear":          cmdClear,
	"archive":        cmdArchive,
}

func parseNumber(name, value string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("-%s: %q is not a number", name, value)
	}
	return n, nil
}

func cmdAdd(ctx context.Context, c *cli, args []string) error {
	fs := c.flagSet("add")
	kind := fs.String("type", "", "activity type [tennis | strength | pilates | yoga | other]")
	label := fs.String("label", "", "custom label, used with -type other")
	date := fs.String("date", "", "day of the session, YYYY-MM-DD (default today)")
	duration := fs.Float64("duration", 0, "duration in minutes")
	intensity := fs.Int("intensity", 3, "intensity 1-5")
	notes := fs.String("notes", "", "free text notes")
	kcal := fs.String("kcal", "", "manual calories override")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := c.open(ctx); err != nil {
		return err
	}
	defer c.close()

	in := workouts.SessionInput{
		Type:        workouts.ActivityType(strings.ToLower(*kind)),
		CustomLabel: *label,
		Date:        *date,
		DurationMin: *duration,
		Intensity:   *intensity,
		Notes:       *notes,
	}
	if in.Date == "" {
		in.Date = c.today()
	}
	if *kcal != "" {
		n, err := parseNumber("kcal", *kcal)
		if err != nil {
			return err
		}
		in.CaloriesManual = &n
	}
	if err := api.ValidateSessionInput(in, c.loc); err != nil {
		return err
	}

	session, err := c.store.AddSession(ctx, in)
	if err != nil {
		return err
	}
	return c.printJSON(session)
}

func cmdUpdate(ctx context.Context, c *cli, args []string) error {
	fs := c.flagSet("update")
	id := fs.String("id", "", "session id")
	kind := fs.String("type", "", "activity type")
	label := fs.String("label", "", "custom label")
	date := fs.String("date", "", "day of the session, YYYY-MM-DD")
	duration := fs.Float64("duration", 0, "duration in minutes")
	intensity := fs.Int("intensity", 0, "intensity 1-5")
	notes := fs.String("notes", "", "free text notes")
	kcal := fs.String("kcal", "", `manual calories override, "" clears it`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}

	set := visited(fs)
	var patch workouts.SessionPatch
	if set["type"] {
		t := workouts.ActivityType(strings.ToLower(*kind))
		patch.Type = &t
	}
	if set["label"] {
		patch.CustomLabel = label
	}
	if set["date"] {
		patch.Date = date
	}
	if set["duration"] {
		patch.DurationMin = duration
	}
	if set["intensity"] {
		patch.Intensity = intensity
	}
	if set["notes"] {
		patch.Notes = notes
	}
	if set["kcal"] {
		if strings.TrimSpace(*kcal) == "" {
			patch.CaloriesManual = workouts.ClearManual()
		} else {
			n, err := parseNumber("kcal", *kcal)
			if err != nil {
				return err
			}
			patch.CaloriesManual = workouts.SetManual(n)
		}
	}

	if err := c.open(ctx); err != nil {
		return err
	}
	defer c.close()

	if err := api.ValidateSessionPatch(patch, c.loc); err != nil {
		return err
	}

	session, found, err := c.store.UpdateSession(ctx, *id, patch)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("session %s not found", *id)
	}
	return c.printJSON(session)
}

func cmdRemove(ctx context.Context, c *cli, args []string) error {
	fs := c.flagSet("remove")
	id := fs.String("id", "", "session id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}

	if err := c.open(ctx); err != nil {
		return err
	}
	defer c.close()

	if err := c.store.RemoveSession(ctx, *id); err != nil {
		return err
	}
	return c.printJSON(map[string]string{"removed": *id})
}

func cmdList(ctx context.Context, c *cli, args []string) error {
	fs := c.flagSet("list")
	query := fs.String("q", "", "search notes and activity type")
	from := fs.String("from", "", "first day, YYYY-MM-DD")
	to := fs.String("to", "", "last day, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := c.open(ctx); err != nil {
		return err
	}
	defer c.close()

	rows, err := c.engine.History(ctx, stats.HistoryFilter{
		Query: *query,
		From:  *from,
		To:    *to,
	})
	if err != nil {
		return err
	}
	return c.printJSON(rows)
}

type statsOutput struct {
	KPIs        stats.Summary      `json:"kpis"`
	Types       stats.ChartData    `json:"types"`
	Weekly      stats.WeeklyReport `json:"weekly"`
	ShowWelcome bool               `json:"showWelcome"`
}

func cmdStats(ctx context.Context, c *cli, args []string) error {
	fs := c.flagSet("stats")
	periodName := fs.String("period", "week", "period [week | month | all]")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := period.ParsePeriod(*periodName)
	if err != nil {
		return err
	}

	if err := c.open(ctx); err != nil {
		return err
	}
	defer c.close()

	var out statsOutput
	if out.KPIs, err = c.engine.KPIs(ctx, p); err != nil {
		return err
	}
	if out.Types, err = c.engine.TypeDistribution(ctx, p); err != nil {
		return err
	}
	if out.Weekly, err = c.engine.Weekly(ctx); err != nil {
		return err
	}
	if out.ShowWelcome, err = c.engine.Onboarding(ctx); err != nil {
		return err
	}
	return c.printJSON(out)
}

// parseMET reads "tennis=8,yoga=2.5" into a full table over the defaults.
func parseMET(value string) (map[workouts.ActivityType]float64, error) {
	values := map[workouts.ActivityType]float64{}
	for _, pair := range strings.Split(value, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("-met: expected type=value, got %q", pair)
		}
		t := workouts.ActivityType(strings.ToLower(strings.TrimSpace(k)))
		if !t.IsKnown() {
			return nil, fmt.Errorf("-met: unknown activity type %q", k)
		}
		n, err := parseNumber("met", v)
		if err != nil {
			return nil, err
		}
		values[t] = n
	}
	return values, nil
}

func cmdSettings(ctx context.Context, c *cli, args []string) error {
	fs := c.flagSet("settings")
	weight := fs.String("weight", "", `body weight in kg, "none" to unset`)
	met := fs.String("met", "", "MET values, e.g. tennis=8,yoga=2.5 (unlisted types use defaults)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	set := visited(fs)
	var patch workouts.SettingsPatch
	if set["weight"] {
		if strings.EqualFold(strings.TrimSpace(*weight), "none") {
			patch.ResetWeight()
		} else {
			w, err := parseNumber("weight", *weight)
			if err != nil {
				return err
			}
			patch.SetWeight(w)
		}
	}
	if set["met"] {
		values, err := parseMET(*met)
		if err != nil {
			return err
		}
		patch.SetMET(values)
	}
	if err := api.ValidateSettingsPatch(patch); err != nil {
		return err
	}

	if err := c.open(ctx); err != nil {
		return err
	}
	defer c.close()

	if !set["weight"] && !set["met"] {
		settings, err := c.store.Settings(ctx)
		if err != nil {
			return err
		}
		return c.printJSON(settings)
	}

	settings, err := c.store.SetSettings(ctx, patch)
	if err != nil {
		return err
	}
	return c.printJSON(settings)
}

func cmdResetSettings(ctx context.Context, c *cli, args []string) error {
	fs := c.flagSet("reset-settings")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := c.open(ctx); err != nil {
		return err
	}
	defer c.close()

	settings, err := c.store.ResetSettingsToDefault(ctx)
	if err != nil {
		return err
	}
	return c.printJSON(settings)
}

func cmdExport(ctx context.Context, c *cli, args []string) error {
	fs := c.flagSet("export")
	out := fs.String("out", "", `output file, "auto" for movemix_backup_<today>.json (default stdout)`)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := c.open(ctx); err != nil {
		return err
	}
	defer c.close()

	doc, err := c.store.ExportSnapshot(ctx)
	if err != nil {
		return err
	}
	if *out == "" {
		return c.printJSON(doc)
	}

	path := *out
	if path == "auto" {
		path = fmt.Sprintf("movemix_backup_%s.json", c.today())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fileCli := &cli{stdout: f}
	if err := fileCli.printJSON(doc); err != nil {
		return err
	}
	fmt.Fprintf(c.stderr, "exported %d sessions to %s\n", len(doc.Sessions), path)
	return f.Close()
}

func cmdImport(ctx context.Context, c *cli, args []string) error {
	fs := c.flagSet("import")
	in := fs.String("in", "", `backup file to import, "-" for stdin`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}

	var raw []byte
	var err error
	if *in == "-" {
		raw, err = io.ReadAll(c.stdin)
	} else {
		raw, err = os.ReadFile(*in)
	}
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	if err := c.open(ctx); err != nil {
		return err
	}
	defer c.close()

	doc, err := c.store.ImportSnapshot(ctx, raw)
	if err != nil {
		return err
	}
	return c.printJSON(map[string]int{"imported": len(doc.Sessions)})
}

func cmdClear(ctx context.Context, c *cli, args []string) error {
	fs := c.flagSet("clear")
	yes := fs.Bool("yes", false, "confirm deleting all sessions and settings")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return errors.New("refusing to clear without -yes")
	}

	if err := c.open(ctx); err != nil {
		return err
	}
	defer c.close()

	if err := c.store.ClearAll(ctx); err != nil {
		return err
	}
	return c.printJSON(map[string]bool{"cleared": true})
}

func cmdArchive(ctx context.Context, c *cli, args []string) error {
	fs := c.flagSet("archive")
	out := fs.String("out", "", "output .tar.gz file (default movemix_data_<today>.tar.gz)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := c.open(ctx); err != nil {
		return err
	}
	defer c.close()

	if c.cfg.StorageBackend != config.BackendFile {
		return fmt.Errorf("archive needs the %q backend, config uses %q", config.BackendFile, c.cfg.StorageBackend)
	}

	path := *out
	if path == "" {
		path = fmt.Sprintf("movemix_data_%s.tar.gz", c.today())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := pkg.Compress(c.cfg.DataFilePath, f); err != nil {
		return fmt.Errorf("compress %s: %w", c.cfg.DataFilePath, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return c.printJSON(map[string]string{"archive": path})
}
