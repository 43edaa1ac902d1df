package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"astrocat/internal/app"
	"astrocat/internal/catalog"
	"astrocat/internal/config"
	"astrocat/internal/export"
	"astrocat/internal/model"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// app.Close(). operation identifies the CLI command being run
// (e.g. "Scan", "Search").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var rootCmd = &cobra.Command{
	Use:   "astrocat",
	Short: "Astrophotography image catalog",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Database:     %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Index Dir:    %s\n", cfg.Index.Dir)
		fmt.Printf("Session Path: %s\n", cfg.SessionPath)
		for _, e := range cfg.Export {
			fmt.Printf("Export:       %s (%s)\n", e.Name, e.Type)
		}
		return nil
	},
}

// library root commands
var libRootCmd = &cobra.Command{
	Use:   "root",
	Short: "Manage library roots",
}

var libRootAddCmd = &cobra.Command{
	Use:   "add NAME PATH",
	Short: "Register a directory as a library root",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddRoot")
		if err != nil {
			return err
		}
		defer a.Close()

		root, err := a.AddRoot(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Added library root %s: %s\n", root.Name, root.Path)
		return nil
	},
}

var libRootListCmd = &cobra.Command{
	Use:   "list",
	Short: "List library roots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListRoots")
		if err != nil {
			return err
		}
		defer a.Close()

		roots, err := a.ListRoots()
		if err != nil {
			return err
		}
		if len(roots) == 0 {
			fmt.Println("No library roots configured.")
			return nil
		}
		for _, root := range roots {
			fmt.Printf("%-20s %s\n", root.Name, root.Path)
		}
		return nil
	},
}

var libRootRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove a library root and its catalog entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveRoot")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveRoot(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed library root %s (files on disk are untouched)\n", args[0])
		return nil
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan [ROOT...]",
	Short: "Scan library roots for new, changed, and missing files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Scan")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		reports, err := a.Scan(ctx, args...)
		if err != nil {
			return err
		}

		for _, r := range reports {
			if r.Err != nil {
				fmt.Printf("%s: scan failed: %v\n", r.RootName, r.Err)
				continue
			}
			status := ""
			if r.Cancelled {
				status = "  [interrupted]"
			}
			fmt.Printf("%s: %d added, %d updated, %d unchanged, %d missing, %d failed, %d skipped%s\n",
				r.RootName, r.Added, r.Updated, r.Unchanged, r.Missing, r.Failed, r.Skipped, status)
		}
		return nil
	},
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the catalog by metadata or header text",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Search")
		if err != nil {
			return err
		}
		defer a.Close()

		headerQuery, _ := cmd.Flags().GetString("header")
		limit, _ := cmd.Flags().GetInt("limit")

		if headerQuery != "" {
			hits, err := a.SearchHeaders(headerQuery, limit)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				fmt.Println("No matches.")
				return nil
			}
			for _, h := range hits {
				fmt.Printf("%s  %s\n", h.FileID, h.RelPath)
			}
			return nil
		}

		criteria, err := criteriaFromFlags(cmd)
		if err != nil {
			return err
		}

		last, _ := cmd.Flags().GetBool("last")
		if last {
			prev := a.LastSearch()
			if prev == nil {
				return fmt.Errorf("no previous search in session")
			}
			criteria = *prev
		}

		files, err := a.Search(criteria)
		if err != nil {
			return err
		}
		printFiles(files)
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show FILE_ID",
	Short: "Show a file's metadata and cached header",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ShowFile")
		if err != nil {
			return err
		}
		defer a.Close()

		f, raw, err := a.ShowFile(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID:        %s\n", f.ID)
		fmt.Printf("Path:      %s\n", f.RelPath)
		fmt.Printf("Type:      %s\n", f.FrameType)
		fmt.Printf("Size:      %d\n", f.Size)
		if f.Missing {
			fmt.Println("Status:    missing")
		}
		if f.ExtractFailed {
			fmt.Println("Status:    header extraction failed")
		}
		fmt.Printf("Exposure:  %s\n", floatOrDash(f.Exposure))
		fmt.Printf("Gain:      %s\n", intOrDash(f.Gain))
		fmt.Printf("Binning:   %s\n", intOrDash(f.Binning))
		fmt.Printf("Filter:    %s\n", strOrDash(f.Filter))
		fmt.Printf("Camera:    %s\n", strOrDash(f.Camera))
		fmt.Printf("Telescope: %s\n", strOrDash(f.Telescope))
		fmt.Printf("Object:    %s\n", strOrDash(f.Object))
		if f.DateObs != nil {
			fmt.Printf("Date:      %s\n", f.DateObs.UTC().Format(time.RFC3339))
		}
		if raw != "" {
			fmt.Printf("\n%s\n", raw)
		}
		return nil
	},
}

// match command
var matchCmd = &cobra.Command{
	Use:   "match FILE_ID...",
	Short: "Find matching calibration frames for light frames",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typeName, _ := cmd.Flags().GetString("type")
		frameType := model.FrameType(strings.ToUpper(typeName))
		if frameType != model.FrameDark && frameType != model.FrameFlat {
			return fmt.Errorf("--type must be dark or flat")
		}

		a, err := newApp("Match")
		if err != nil {
			return err
		}
		defer a.Close()

		matches, err := a.Match(args, frameType)
		if err != nil {
			return err
		}

		for _, id := range args {
			candidates := matches[id]
			fmt.Printf("%s: %d candidate(s)\n", id, len(candidates))
			for _, c := range candidates {
				missing := ""
				if c.Missing {
					missing = "  [missing]"
				}
				fmt.Printf("  %s  %s%s\n", c.ID, c.RelPath, missing)
			}
		}
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy matching files to an export destination",
	RunE: func(cmd *cobra.Command, args []string) error {
		destName, _ := cmd.Flags().GetString("dest")
		if destName == "" {
			return fmt.Errorf("--dest is required")
		}
		template, _ := cmd.Flags().GetString("template")
		decompress, _ := cmd.Flags().GetBool("decompress")

		criteria, err := criteriaFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("Export")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		report, err := a.Export(ctx, destName, criteria, export.Options{
			Template:   template,
			Decompress: decompress,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d file(s), %d failed\n", report.Exported, report.Failed)
		return nil
	},
}

// index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the header full-text index",
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the header index from cached headers",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RebuildIndex")
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.RebuildIndex()
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d header(s)\n", count)
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch [ROOT...]",
	Short: "Rescan library roots as files change on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Watch")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		fmt.Println("Watching for changes (Ctrl-C to stop)...")
		if err := a.Watch(ctx, args...); err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}

// addSearchFlags registers the shared metadata criteria flags.
func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().String("root", "", "Restrict to a library root by name")
	cmd.Flags().String("type", "", "Frame type (light, dark, flat, bias)")
	cmd.Flags().String("filter", "", "Filter name")
	cmd.Flags().String("camera", "", "Camera name")
	cmd.Flags().String("telescope", "", "Telescope name")
	cmd.Flags().String("object", "", "Target object name")
	cmd.Flags().String("name", "", "File name substring")
	cmd.Flags().Float64("exposure", 0, "Exposure in seconds")
	cmd.Flags().Int64("gain", -1, "Gain")
	cmd.Flags().Int64("binning", 0, "Binning")
	cmd.Flags().Float64("temp", 0, "Sensor set-point temperature")
	cmd.Flags().String("from", "", "Earliest observation date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Latest observation date (YYYY-MM-DD)")
	cmd.Flags().Bool("include-missing", false, "Include files marked missing")
	cmd.Flags().Int("limit", 0, "Maximum number of results")
}

// criteriaFromFlags builds SearchCriteria from the shared flags. Only
// flags the user actually set become constraints.
func criteriaFromFlags(cmd *cobra.Command) (catalog.SearchCriteria, error) {
	var c catalog.SearchCriteria

	c.RootName, _ = cmd.Flags().GetString("root")
	if v, _ := cmd.Flags().GetString("type"); v != "" {
		c.FrameType = model.NormalizeFrameType(v)
	}
	c.Filter, _ = cmd.Flags().GetString("filter")
	c.Camera, _ = cmd.Flags().GetString("camera")
	c.Telescope, _ = cmd.Flags().GetString("telescope")
	c.Object, _ = cmd.Flags().GetString("object")
	c.FileName, _ = cmd.Flags().GetString("name")

	if cmd.Flags().Changed("exposure") {
		v, _ := cmd.Flags().GetFloat64("exposure")
		c.Exposure = &v
	}
	if cmd.Flags().Changed("gain") {
		v, _ := cmd.Flags().GetInt64("gain")
		c.Gain = &v
	}
	if cmd.Flags().Changed("binning") {
		v, _ := cmd.Flags().GetInt64("binning")
		c.Binning = &v
	}
	if cmd.Flags().Changed("temp") {
		v, _ := cmd.Flags().GetFloat64("temp")
		c.SetTemp = &v
	}

	if v, _ := cmd.Flags().GetString("from"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			return c, fmt.Errorf("invalid --from date: %w", err)
		}
		c.StartDate = &t
	}
	if v, _ := cmd.Flags().GetString("to"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.UTC)
		if err != nil {
			return c, fmt.Errorf("invalid --to date: %w", err)
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		c.EndDate = &end
	}

	c.IncludeMissing, _ = cmd.Flags().GetBool("include-missing")
	c.Limit, _ = cmd.Flags().GetInt("limit")
	return c, nil
}

func printFiles(files []*model.File) {
	if len(files) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, f := range files {
		date := "-"
		if f.DateObs != nil {
			date = f.DateObs.UTC().Format("2006-01-02")
		}
		missing := ""
		if f.Missing {
			missing = "  [missing]"
		}
		fmt.Printf("%s  %-7s  %-10s  %-6s  %s  %s%s\n",
			f.ID, f.FrameType, strOrDash(f.Camera), strOrDash(f.Filter), date, f.RelPath, missing)
	}
}

func strOrDash(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}

func floatOrDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

func intOrDash(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root subcommands
	libRootCmd.AddCommand(libRootAddCmd)
	libRootCmd.AddCommand(libRootListCmd)
	libRootCmd.AddCommand(libRootRmCmd)

	// index subcommands
	indexCmd.AddCommand(indexRebuildCmd)

	// search flags
	addSearchFlags(searchCmd)
	searchCmd.Flags().String("header", "", "Full-text query over cached header text")
	searchCmd.Flags().Bool("last", false, "Repeat the previous search")

	// match flags
	matchCmd.Flags().String("type", "dark", "Calibration frame type (dark or flat)")

	// export flags
	addSearchFlags(exportCmd)
	exportCmd.Flags().String("dest", "", "Export destination name from the config")
	exportCmd.Flags().String("template", "", "Destination path template, e.g. ${object}/${filter}/${name}${ext}")
	exportCmd.Flags().Bool("decompress", false, "Decompress files on export")

	// top-level commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(libRootCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(watchCmd)
}
