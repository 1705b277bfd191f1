package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/texdiff/internal/config"
	"git.home.luguber.info/inful/texdiff/internal/gitrepo"
	"git.home.luguber.info/inful/texdiff/internal/logfields"
	"git.home.luguber.info/inful/texdiff/internal/pipeline"
)

var CLI struct {
	Old string `arg:"" optional:"" help:"Revision to diff from."`
	New string `arg:"" optional:"" help:"Revision to diff to (default HEAD; '--' means the uncommitted working tree)."`

	Main      string `help:"Repository-relative path of the main document (default: the single tracked .tex file with a \\documentclass)."`
	View      bool   `help:"Open the resulting PDF in a viewer."`
	NoView    bool   `help:"Never open the resulting PDF."`
	PdfViewer string `name:"pdf-viewer" help:"Viewer command (default: $PDFVIEWER)."`

	Bibtex bool `short:"b" help:"Run bibtex between compiler passes."`
	Biber  bool `help:"Run biber between compiler passes."`
	Bbl    bool `help:"Inline the compiled bibliography (.bbl) when flattening, regenerating it if missing."`

	NoCleanup bool   `help:"Keep all temporary files (same as --cleanup=none)."`
	Cleanup   string `help:"Cleanup policy: none, all or keeppdf (default all)." placeholder:"MODE"`

	NoFlatten        bool   `help:"Diff the main files without flattening multi-file sources."`
	Latexpand        string `help:"Extra options for latexpand." placeholder:"OPTS"`
	LatexdiffFlatten bool   `name:"latexdiff-flatten" help:"Let latexdiff flatten the sources itself (--flatten)."`

	Latexmk           bool   `help:"Compile with latexmk instead of direct compiler passes."`
	Latexopt          string `help:"Extra options for the compiler." placeholder:"OPTS"`
	IgnoreLatexErrors bool   `name:"ignore-latex-errors" help:"Keep the PDF even when compilation reports errors."`
	IgnoreMakefile    bool   `name:"ignore-makefile" help:"Do not use a Makefile found in the document directory."`

	Output       string `short:"o" help:"Move the resulting PDF to this path (forces --cleanup=all)." placeholder:"FILE"`
	Tmpdirprefix string `help:"Directory under which the temporary workspace is created." placeholder:"DIR"`

	Prepare       string `help:"Shell command run in each snapshot before processing." placeholder:"CMD"`
	LnUntracked   bool   `name:"ln-untracked" help:"Link untracked files of the document directory into the new snapshot."`
	NoLnUntracked bool   `name:"no-ln-untracked" help:"Do not link untracked files."`
	Subtree       bool   `default:"true" help:"Export only the main document's directory subtree."`
	WholeTree     bool   `name:"whole-tree" help:"Export the whole repository tree instead of the document subtree."`

	Verbose bool   `short:"v" help:"Enable verbose logging; tool output is streamed instead of logged to files."`
	Quiet   bool   `help:"Only report warnings and errors."`
	Config  string `short:"c" help:"Defaults file path." placeholder:"FILE"`
}

func main() {
	ownArgs, passthrough := config.SplitPassthrough(os.Args[1:])
	flagArgs, revs := config.ExtractRevisions(ownArgs)

	parser := kong.Must(&CLI,
		kong.Name("texdiff"),
		kong.Description("Render an annotated PDF diff between two git revisions of a LaTeX document.\n\n"+
			"Unrecognized options are passed through to latexdiff."),
		kong.UsageOnError(),
	)
	if _, err := parser.Parse(flagArgs); err != nil {
		parser.FatalIfErrorf(err)
	}
	switch len(revs) {
	case 0:
		parser.Fatalf("expected a revision to diff from")
	case 1:
		CLI.Old = revs[0]
	case 2:
		CLI.Old, CLI.New = revs[0], revs[1]
	default:
		parser.Fatalf("too many revision arguments: %v", revs)
	}

	// Set up logging
	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	if CLI.Quiet {
		logLevel = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	opts, err := buildOptions(passthrough)
	if err != nil {
		slog.Error("Invalid invocation", logfields.Error(err))
		os.Exit(1)
	}

	repo, err := gitrepo.Open(".")
	if err != nil {
		slog.Error("Cannot open repository", logfields.Error(err))
		os.Exit(1)
	}

	p := pipeline.New(opts, repo, nil)
	if err := p.Run(context.Background()); err != nil {
		slog.Error("Diff pipeline failed", logfields.Error(err))
		os.Exit(1)
	}
}

// buildOptions maps the parsed CLI onto the immutable Options bundle:
// defaults-file merge, extra-option parsing, then normalization.
func buildOptions(passthrough []string) (config.Options, error) {
	verbosity := config.VerbosityNormal
	if CLI.Verbose {
		verbosity = config.VerbosityVerbose
	}
	if CLI.Quiet {
		verbosity = config.VerbosityQuiet
	}

	cleanup := config.CleanupMode(CLI.Cleanup)
	if CLI.NoCleanup {
		cleanup = config.CleanupNone
	}

	opts := config.Options{
		OldRev:            CLI.Old,
		NewRev:            CLI.New,
		Main:              CLI.Main,
		View:              CLI.View,
		NoView:            CLI.NoView,
		PDFViewer:         CLI.PdfViewer,
		BibTeX:            CLI.Bibtex,
		Biber:             CLI.Biber,
		UseBBL:            CLI.Bbl,
		Cleanup:           cleanup,
		Flatten:           !CLI.NoFlatten,
		LatexdiffFlatten:  CLI.LatexdiffFlatten,
		LatexdiffOpts:     passthrough,
		UseLatexmk:        CLI.Latexmk,
		IgnoreMakefile:    CLI.IgnoreMakefile,
		IgnoreLatexErrors: CLI.IgnoreLatexErrors,
		Output:            CLI.Output,
		TmpDirPrefix:      CLI.Tmpdirprefix,
		Verbosity:         verbosity,
		Prepare:           CLI.Prepare,
		LnUntracked:       CLI.LnUntracked && !CLI.NoLnUntracked,
		Subtree:           CLI.Subtree && !CLI.WholeTree,
	}
	opts.ParseExtraOpts(CLI.Latexopt, CLI.Latexpand)

	defaults, err := config.LoadDefaults(CLI.Config)
	if err != nil {
		return opts, err
	}
	defaults.Apply(&opts)

	return config.Normalize(opts)
}
