package latex

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/texdiff/internal/config"
	"git.home.luguber.info/inful/texdiff/internal/logfields"
	"git.home.luguber.info/inful/texdiff/internal/run"
)

// Strategy selects how the annotated document is built.
type Strategy int

const (
	// StrategyMake invokes the repository's own Makefile.
	StrategyMake Strategy = iota
	// StrategyLatexmk delegates the whole build to latexmk.
	StrategyLatexmk
	// StrategyDirect runs the compiler and bibliography passes directly.
	StrategyDirect
)

func (s Strategy) String() string {
	switch s {
	case StrategyMake:
		return "make"
	case StrategyLatexmk:
		return "latexmk"
	default:
		return "direct"
	}
}

// SelectStrategy applies the precedence order: a Makefile in the document
// directory wins unless explicitly ignored, then explicit latexmk mode,
// then the direct compiler sequence.
func SelectStrategy(docDir string, opts config.Options) Strategy {
	if !opts.IgnoreMakefile {
		for _, name := range []string{"Makefile", "makefile", "GNUmakefile"} {
			if _, err := os.Stat(filepath.Join(docDir, name)); err == nil {
				return StrategyMake
			}
		}
	}
	if opts.UseLatexmk {
		return StrategyLatexmk
	}
	return StrategyDirect
}

// InteractionFlag maps the error-tolerance configuration to the
// compiler's interaction mode: plow through everything when errors are
// tolerated, stay silent when quiet, otherwise stop at the first error.
func InteractionFlag(opts config.Options) string {
	switch {
	case opts.IgnoreLatexErrors:
		return "-interaction=nonstopmode"
	case opts.Verbosity == config.VerbosityQuiet:
		return "-interaction=batchmode"
	default:
		return "-interaction=errorstopmode"
	}
}

// PlanCompile builds the full command sequence for the chosen strategy.
// The direct sequence is a fixed count: compiler, optional bibliography
// passes, then two more compiler passes for cross-reference convergence.
// It is deliberately not iterated to a fixpoint.
func PlanCompile(strategy Strategy, docDir string, opts config.Options) []run.Cmd {
	switch strategy {
	case StrategyMake:
		return []run.Cmd{{Tool: MakeTool, Dir: docDir, LogName: LogCompile}}
	case StrategyLatexmk:
		args := []string{"-f", "-pdf"}
		for _, o := range opts.LatexOpts {
			args = append(args, "-latexoption="+o)
		}
		args = append(args, opts.MainBase())
		return []run.Cmd{{Tool: LatexmkTool, Args: args, Dir: docDir, LogName: LogCompile}}
	default:
		compiler := run.Cmd{
			Tool:    CompilerTool,
			Args:    append([]string{InteractionFlag(opts)}, append(append([]string{}, opts.LatexOpts...), opts.MainBase())...),
			Dir:     docDir,
			LogName: LogCompile,
		}
		base := strings.TrimSuffix(opts.MainBase(), filepath.Ext(opts.MainBase()))

		cmds := []run.Cmd{compiler}
		if opts.BibTeX {
			cmds = append(cmds, run.Cmd{Tool: BibTeXTool, Args: []string{base}, Dir: docDir, LogName: LogCompile})
		}
		if opts.Biber {
			cmds = append(cmds, run.Cmd{Tool: BiberTool, Args: []string{base}, Dir: docDir, LogName: LogCompile})
		}
		return append(cmds, compiler, compiler)
	}
}

// Result captures the compilation stage outcome: whether any pass failed,
// and whether a usable artifact exists. The two are independent; a
// compiler can exit zero yet write no output, or exit nonzero after a
// previous pass already left a valid PDF.
type Result struct {
	Strategy   Strategy
	PassFailed bool
	PDFPath    string
	PDFOK      bool
}

// Compile runs the planned sequence in order. Exit statuses accumulate
// into a single failure flag rather than aborting, so later passes still
// run; the typesetting convention is that individual passes may warn.
// Afterwards the expected PDF is checked for existence and non-emptiness.
func Compile(ctx context.Context, runner run.Runner, docDir string, opts config.Options) Result {
	strategy := SelectStrategy(docDir, opts)
	slog.Debug("Selected compilation strategy", slog.String("strategy", strategy.String()))

	res := Result{Strategy: strategy}
	for _, cmd := range PlanCompile(strategy, docDir, opts) {
		if err := runner.Run(ctx, cmd); err != nil {
			slog.Debug("Compilation pass exited nonzero", logfields.Tool(cmd.Tool), logfields.Error(err))
			res.PassFailed = true
		}
	}

	base := strings.TrimSuffix(opts.MainBase(), filepath.Ext(opts.MainBase()))
	res.PDFPath = filepath.Join(docDir, base+".pdf")
	if info, err := os.Stat(res.PDFPath); err == nil && info.Size() > 0 {
		res.PDFOK = true
	}
	return res
}
