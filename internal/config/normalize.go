package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/texdiff/internal/texerr"
)

// splitOpts splits a whitespace-separated option string as handed to
// --latexopt or --latexpand. Quoting is intentionally not interpreted;
// values are forwarded to the tool verbatim.
func splitOpts(s string) []string {
	return strings.Fields(s)
}

// ParseExtraOpts converts the raw --latexopt / --latexpand strings to
// argument slices on the Options value.
func (o *Options) ParseExtraOpts(latexOpt, latexpandOpt string) {
	if latexOpt != "" {
		o.LatexOpts = splitOpts(latexOpt)
	}
	if latexpandOpt != "" {
		o.LatexpandOpts = splitOpts(latexpandOpt)
	}
}

// Normalize validates the parsed options and applies the derivation rules
// that must happen exactly once, before any stage runs. The returned
// Options value is the one the pipeline reads; it is not mutated again.
func Normalize(opts Options) (Options, error) {
	if opts.OldRev == "" {
		return opts, texerr.UsageError("an OLD revision is required")
	}
	if opts.NewRev == "" {
		opts.NewRev = "HEAD"
	}
	if opts.OldRev == WorktreeRev {
		return opts, texerr.UsageError("the working-tree sentinel is only valid as the NEW revision")
	}

	switch opts.Cleanup {
	case "", CleanupAll:
		opts.Cleanup = CleanupAll
	case CleanupKeepPDF, CleanupNone:
	default:
		return opts, texerr.UsageError(fmt.Sprintf("unknown cleanup mode %q (want none, all or keeppdf)", opts.Cleanup))
	}

	// An explicit output destination implies nothing of value is left in
	// the workspace, so the whole tree is removed.
	if opts.Output != "" {
		opts.Cleanup = CleanupAll
	}

	if opts.TmpDirPrefix == "" {
		opts.TmpDirPrefix = os.TempDir()
	}
	if opts.PDFViewer == "" {
		opts.PDFViewer = os.Getenv("PDFVIEWER")
	}

	// Diffing against the uncommitted working tree needs the live files
	// linked into the snapshot.
	if opts.NewRev == WorktreeRev {
		opts.LnUntracked = true
	}

	if opts.View && opts.NoView {
		return opts, texerr.UsageError("--view and --no-view are mutually exclusive")
	}

	opts = deriveKnitr(opts)
	return opts, nil
}

// knitr document extensions that auto-derive a prepare command.
var knitrExts = map[string]bool{".Rnw": true, ".Rtex": true}

// deriveKnitr rewrites a knitr main document to its woven .tex name and,
// when no prepare command was given, derives the default knitr invocation.
// Deterministic, applied once before extraction.
func deriveKnitr(opts Options) Options {
	ext := filepath.Ext(opts.Main)
	if !knitrExts[ext] {
		return opts
	}
	base := filepath.Base(opts.Main)
	if opts.Prepare == "" {
		opts.Prepare = fmt.Sprintf("Rscript -e 'library(knitr); knit(\"%s\")'", base)
	}
	opts.Main = strings.TrimSuffix(opts.Main, ext) + ".tex"
	return opts
}

// MainBase returns the main document's file name without directory.
func (o *Options) MainBase() string {
	return filepath.Base(o.Main)
}

// MainDir returns the repository-relative directory of the main document,
// "" when it sits at the repository root.
func (o *Options) MainDir() string {
	d := filepath.Dir(o.Main)
	if d == "." {
		return ""
	}
	return d
}
