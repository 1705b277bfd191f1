package latex

import (
	"path/filepath"

	"git.home.luguber.info/inful/texdiff/internal/config"
	"git.home.luguber.info/inful/texdiff/internal/texerr"
)

// Deliver relocates the final PDF. With an explicit destination the
// artifact moves there; otherwise it moves up into the workspace root,
// where it survives snapshot cleanup. Returns the artifact's final path.
func Deliver(pdfPath, workspaceRoot, output string) (string, error) {
	dest := output
	if dest == "" {
		dest = filepath.Join(workspaceRoot, filepath.Base(pdfPath))
	}
	if err := moveFile(pdfPath, dest); err != nil {
		return "", texerr.Wrap(err, texerr.CategoryDelivery, "relocate artifact")
	}
	return dest, nil
}

// ShouldView decides whether to open the delivered artifact: never when an
// explicit destination was requested or viewing is disabled, always under
// --view, and by default only when a viewer is actually configured and
// present.
func ShouldView(opts config.Options, viewerAvailable bool) bool {
	if opts.Output != "" || opts.NoView {
		return false
	}
	if opts.View {
		return true
	}
	return opts.PDFViewer != "" && viewerAvailable
}
