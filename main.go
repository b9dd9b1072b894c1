// Command xlfkit bundles extracted UI strings into XLIFF for a translation vendor
// and turns translated XLIFF back into JSON and Inno Setup message files.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/minios-linux/xlfkit/bundle"
	"github.com/minios-linux/xlfkit/config"
	"github.com/minios-linux/xlfkit/driver"
	"github.com/minios-linux/xlfkit/i18n"
	"github.com/minios-linux/xlfkit/manifest"
	"github.com/minios-linux/xlfkit/resource"
	"github.com/spf13/cobra"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	infoTag    = color.New(color.FgBlue)
	successTag = color.New(color.FgGreen)
	warningTag = color.New(color.FgYellow, color.Bold)
	errorTag   = color.New(color.FgRed)
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, infoTag.Sprint("[INFO]")+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, successTag.Sprint("[OK]")+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, warningTag.Sprint("[WARN]")+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, errorTag.Sprint("[ERROR]")+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configPath string
	logLevel   string
	uiLang     string
	noColor    bool

	cfg    *config.Config
	logger *slog.Logger
)

// errStalled is returned with --strict when resources never completed.
var errStalled = errors.New("some resources did not receive all of their inputs")

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "xlfkit",
		Short: "Translation resource bundling and XLIFF interchange",
		Long: `xlfkit bundles extracted UI strings into XLIFF 1.2 resources for a
translation vendor and renders translated XLIFF back into the product's
formats.

Commands:
  export      Build XLIFF resources from nls.metadata.json, *.nls.json and .isl sources
  import      Render translated XLIFF into i18n JSON, nls JSON or .isl files
  classify    Show which vendor resource a source path belongs to
  status      Show emitted and stalled resources from the manifest

Settings are read from .xlfkit.yaml in the project root and XLFKIT_*
environment variables; flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <root>/.xlfkit.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&uiLang, "ui-lang", "", "Language of xlfkit's own messages")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newExportCmd(),
		newImportCmd(),
		newClassifyCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

func setup(cmd *cobra.Command) error {
	i18n.Init(uiLang)
	if noColor {
		color.NoColor = true
	}

	loaded, err := config.Load(rootDir, configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		loaded.Log.Level = logLevel
		if err := loaded.Validate(); err != nil {
			return err
		}
	}
	cfg = loaded

	logger, err = newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	logger.Debug("configuration loaded", "file", cfg.File, "ui_language", i18n.Language())
	return nil
}

func newLogger(c *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// resolve makes p absolute against the project root.
func resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(rootDir, p)
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "xlfkit version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// export (sources -> XLIFF)
// ---------------------------------------------------------------------------

func newExportCmd() *cobra.Command {
	var (
		outDir    string
		extension string
		strict    bool
	)

	cmd := &cobra.Command{
		Use:   "export [paths...]",
		Short: "Build XLIFF resources from extracted strings",
		Long: `Read nls.metadata.json bundles, extension *.nls.json files and installer
.isl sources, group them into vendor resources and write one .xlf file per
resource once all of its inputs have been read.

Paths are relative to --root. Directories are scanned recursively. Without
paths, the detected project layout decides what to read.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				outDir = cfg.OutDir
			}
			if extension == "" {
				extension = cfg.Extension
			}
			return runExport(args, resolve(outDir), extension, strict)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory for .xlf files")
	cmd.Flags().StringVar(&extension, "extension", "", "Treat the root as this external extension")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when a resource is left incomplete")

	return cmd
}

// defaultSources picks what to read when export gets no paths.
func defaultSources(proj *config.Project) []string {
	var paths []string
	if proj.Kind == config.KindProduct {
		for _, candidate := range []string{"out-build/" + driver.MetadataFile, "out/" + driver.MetadataFile} {
			if fileExists(filepath.Join(proj.Root, filepath.FromSlash(candidate))) {
				paths = append(paths, candidate)
				break
			}
		}
		paths = append(paths, "extensions")
	}
	if proj.IslDir != "" && proj.Kind != config.KindExtension {
		paths = append(paths, proj.IslDir)
	}
	if proj.Kind == config.KindExtension {
		paths = append(paths, ".")
	}
	return paths
}

func runExport(paths []string, outDir, extension string, strict bool) error {
	proj := config.Detect(rootDir)
	if extension == "" && proj.Kind == config.KindExtension {
		extension = proj.Name
	}
	if len(paths) == 0 {
		paths = defaultSources(proj)
		if len(paths) == 0 {
			return fmt.Errorf(i18n.T("nothing to export in %s"), proj.Root)
		}
	}

	m, err := manifest.Load(outDir)
	if err != nil {
		return err
	}

	emitter := &bundle.DirEmitter{
		Dir:      outDir,
		Manifest: m,
		Written: func(path string, size int) {
			logSuccess(i18n.T("Wrote %s (%s)"), path, humanize.Bytes(uint64(size)))
		},
	}
	agg := bundle.New(emitter,
		bundle.WithCounter(bundle.GlobCounter{Root: rootDir, External: extension != ""}),
		bundle.WithLogger(logger),
	)
	d := &driver.Driver{Aggregator: agg, Root: rootDir, Logger: logger}

	logInfo(i18n.T("Reading %s"), strings.Join(paths, ", "))
	summary, err := d.ImportPaths(paths, extension)
	if err != nil {
		return err
	}
	for _, skipped := range summary.Skipped {
		logWarning(i18n.T("Skipped %s: not a known JSON shape"), skipped)
	}

	pending := agg.Pending()
	m.SetPending(toManifestPending(pending))
	if err := m.Save(); err != nil {
		return err
	}

	emitted := len(agg.Emitted())
	logInfo(i18n.N("Read %d file", "Read %d files", summary.Imported), summary.Imported)
	logSuccess(i18n.N("%d resource emitted", "%d resources emitted", emitted), emitted)

	for _, p := range pending {
		logWarning(i18n.T("%s: received %d of %d inputs, not emitted"), p.Key, p.Received, p.Expected)
	}
	if strict && len(pending) > 0 {
		return errStalled
	}
	return nil
}

func toManifestPending(statuses []bundle.Status) []manifest.Pending {
	out := make([]manifest.Pending, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, manifest.Pending{Key: s.Key, Project: s.Project, Received: s.Received, Expected: s.Expected})
	}
	return out
}

// ---------------------------------------------------------------------------
// import (XLIFF -> JSON / ISL)
// ---------------------------------------------------------------------------

func newImportCmd() *cobra.Command {
	var (
		outDir    string
		layout    string
		languages []string
	)

	cmd := &cobra.Command{
		Use:   "import <xlf files or dirs...>",
		Short: "Render translated XLIFF into product files",
		Long: `Parse translated XLIFF files and write the per-language results.

Originals under build/ become Inno Setup .isl files encoded in the
language's code page. Everything else becomes translated JSON: the "i18n"
layout writes <lang>/<original>.i18n.json for a language pack, the "nls"
layout writes <original>.nls.<tag>.json for an external extension.

Each XLIFF file is all or nothing: if any part fails nothing of it is
written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if layout == "" {
				layout = cfg.JSONLayout
			}
			if len(languages) == 0 {
				languages = cfg.Languages
			} else {
				override := *cfg
				override.Languages = languages
				if err := override.Validate(); err != nil {
					return err
				}
				languages = override.Languages
			}
			if outDir == "" {
				outDir = "i18n"
				if layout == driver.LayoutNls {
					outDir = "."
				}
			}
			return runImport(args, resolve(outDir), layout, languages)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: i18n, or the root for the nls layout)")
	cmd.Flags().StringVar(&layout, "layout", "", "JSON layout: i18n or nls")
	cmd.Flags().StringSliceVarP(&languages, "lang", "l", nil, "Languages to render (default: from config)")

	return cmd
}

func runImport(args []string, outDir, layout string, languages []string) error {
	files, err := collectXLF(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New(i18n.T("no .xlf files found"))
	}

	d := &driver.Driver{Root: rootDir, Layout: layout, Languages: languages, Logger: logger}

	total := 0
	for _, f := range files {
		outputs, err := d.ExportFile(f)
		if err != nil {
			return err
		}
		if err := driver.WriteOutputs(outDir, outputs); err != nil {
			return err
		}
		var size uint64
		for _, o := range outputs {
			size += uint64(len(o.Data))
		}
		logSuccess(i18n.T("%s: %d files, %s"), f, len(outputs), humanize.Bytes(size))
		total += len(outputs)
	}

	logInfo(i18n.N("Wrote %d file", "Wrote %d files", total), total)
	return nil
}

// collectXLF expands directories to the .xlf files below them.
func collectXLF(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		p := resolve(arg)
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, e os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".xlf") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// ---------------------------------------------------------------------------
// classify
// ---------------------------------------------------------------------------

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <path...>",
		Short: "Show which vendor resource a source path belongs to",
		Long: `Print the project and resource for each logical source path, e.g.
vs/workbench/parts/git/browser/gitActions. Exits non-zero if any path
matches no resource.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd.OutOrStdout(), args)
		},
	}
}

func runClassify(w io.Writer, paths []string) error {
	failed := 0
	for _, p := range paths {
		res, err := resource.Classify(p)
		if err != nil {
			logError("%v", err)
			failed++
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", p, res.Project, res.Slug())
	}
	if failed > 0 {
		return fmt.Errorf(i18n.N("%d path could not be classified", "%d paths could not be classified", failed), failed)
	}
	return nil
}

// ---------------------------------------------------------------------------
// status
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var (
		outDir string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show emitted and stalled resources",
		Long: `Read the manifest written by export and list every emitted resource and
every resource that was still waiting for inputs when export finished.
Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				outDir = cfg.OutDir
			}
			return runStatus(cmd.OutOrStdout(), resolve(outDir), strict)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory holding the manifest")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when resources are stalled")

	return cmd
}

func runStatus(w io.Writer, outDir string, strict bool) error {
	m, err := manifest.Load(outDir)
	if err != nil {
		return err
	}

	proj := config.Detect(rootDir)
	fmt.Fprintf(w, "%s %s (%s)\n", color.New(color.FgBlue).Sprint(i18n.T("Project:")), proj.Name, proj.Kind)
	fmt.Fprintf(w, "%s %s\n", color.New(color.FgBlue).Sprint(i18n.T("Manifest:")), m.Path())
	if cfg != nil && cfg.File != "" {
		fmt.Fprintf(w, "%s %s\n", color.New(color.FgBlue).Sprint(i18n.T("Config:")), cfg.File)
	}
	fmt.Fprintf(w, "%s %s\n\n", color.New(color.FgBlue).Sprint(i18n.T("Summary:")), m.Summary())

	fmt.Fprintln(w, statusTable(m))

	stalled := m.Stalled()
	if strict && len(stalled) > 0 {
		return errStalled
	}
	return nil
}

func statusTable(m *manifest.Manifest) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{i18n.T("Resource"), i18n.T("Project"), i18n.T("Inputs"), i18n.T("State")})

	for _, p := range m.Paths() {
		a, _ := m.Get(p)
		tbl.AppendRow(table.Row{p, a.Project, a.Inputs, i18n.T("emitted")})
	}
	for _, p := range m.Stalled() {
		tbl.AppendRow(table.Row{p.Key, p.Project, fmt.Sprintf("%d/%d", p.Received, p.Expected), i18n.T("stalled")})
	}
	return tbl.Render()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
