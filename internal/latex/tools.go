// Package latex drives the external LaTeX toolchain: latexpand for
// flattening, latexdiff for the annotated document, and the compiler
// (pdflatex, latexmk or a repository Makefile) with its bibliography
// companions. Command construction is kept separate from execution so the
// exact invocations are testable without any of the tools installed.
package latex

// External tool names.
const (
	CompilerTool  = "pdflatex"
	BibTeXTool    = "bibtex"
	BiberTool     = "biber"
	LatexmkTool   = "latexmk"
	MakeTool      = "make"
	LatexpandTool = "latexpand"
	LatexdiffTool = "latexdiff"
)

// Log file names under the workspace root, one per concern.
const (
	LogCompile = "latex"
	LogFlatten = "latexpand"
	LogDiff    = "latexdiff"
	LogPrepare = "prepare"
	LogBib     = "bib"
)
