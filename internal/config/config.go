// Package config holds the resolved, immutable run configuration for the
// diff pipeline. Options are produced once by CLI parsing plus Normalize
// and are read-only for every stage afterwards.
package config

// WorktreeRev is the sentinel revision meaning the live working tree,
// including uncommitted changes. No extraction is performed for it;
// content reaches the snapshot via the untracked-file overlay.
const WorktreeRev = "--"

// CleanupMode controls what is removed from the workspace after a run.
type CleanupMode string

const (
	CleanupAll     CleanupMode = "all"     // remove the whole workspace
	CleanupKeepPDF CleanupMode = "keeppdf" // remove only the snapshot subtrees
	CleanupNone    CleanupMode = "none"    // keep everything
)

// Verbosity selects output routing for external tool invocations.
type Verbosity int

const (
	VerbosityNormal Verbosity = iota
	VerbosityQuiet
	VerbosityVerbose
)

// Options is the immutable configuration bundle for one pipeline run.
type Options struct {
	OldRev string
	NewRev string

	// Main is the repository-relative path of the entry-point document.
	// Empty means auto-detect from the tracked files of the new revision.
	Main string

	View      bool // --view: always open the result
	NoView    bool // --no-view: never open the result
	PDFViewer string

	BibTeX bool
	Biber  bool
	UseBBL bool

	Cleanup CleanupMode

	Flatten          bool // run latexpand before diffing
	LatexdiffFlatten bool // delegate flattening to latexdiff --flatten
	LatexpandOpts    []string
	LatexdiffOpts    []string // unrecognized flags, passed through in order
	LatexOpts        []string

	UseLatexmk        bool
	IgnoreMakefile    bool
	IgnoreLatexErrors bool

	Output       string // -o destination; empty means leave in workspace
	TmpDirPrefix string
	Verbosity    Verbosity

	Prepare     string
	LnUntracked bool
	Subtree     bool
}
