// Package workspace manages the temporary directory tree for one diff run.
//
// A workspace holds exactly two snapshot subtrees (old/ and new/) plus the
// artifacts the pipeline stages produce next to them (flattened sources,
// the annotated diff, stage logs, the final PDF). The directory name embeds
// the process id so concurrent runs never collide, and a run never reuses
// a previous run's directory.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/texdiff/internal/config"
	"git.home.luguber.info/inful/texdiff/internal/logfields"
	"git.home.luguber.info/inful/texdiff/internal/texerr"
)

// Snapshot subtree names.
const (
	OldDir = "old"
	NewDir = "new"
)

// Manager owns the workspace directory lifecycle.
type Manager struct {
	baseDir string
	dir     string
}

// NewManager creates a workspace manager rooted at baseDir.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// Create makes a fresh workspace directory plus the old/ and new/ snapshot
// roots. The name is process-id qualified; an existing directory of the
// same name is an error rather than something to reuse.
func (m *Manager) Create() error {
	name := fmt.Sprintf("texdiff-%d-%s", os.Getpid(), time.Now().Format("20060102-150405"))
	dir := filepath.Join(m.baseDir, name)

	if _, err := os.Stat(dir); err == nil {
		return texerr.WorkspaceError("create", fmt.Errorf("directory already exists: %s", dir))
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return texerr.WorkspaceError("create", err)
	}
	for _, sub := range []string{OldDir, NewDir} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0o750); err != nil {
			return texerr.WorkspaceError("create", err)
		}
	}

	m.dir = dir
	slog.Debug("Created workspace", logfields.Path(dir))
	return nil
}

// Path returns the workspace root directory.
func (m *Manager) Path() string { return m.dir }

// SnapshotDir returns the root of the named snapshot subtree.
func (m *Manager) SnapshotDir(side string) string { return filepath.Join(m.dir, side) }

// Cleanup removes temporary state according to policy. When the compile
// failed the workspace is always kept, whatever the policy, so the user
// can inspect logs and intermediate files; the path is reported for that.
func (m *Manager) Cleanup(policy config.CleanupMode, compileOK bool) error {
	if m.dir == "" {
		return nil
	}

	if !compileOK {
		slog.Warn("Run did not produce a verified artifact; keeping workspace", logfields.Path(m.dir))
		return nil
	}

	switch policy {
	case config.CleanupAll:
		if err := os.RemoveAll(m.dir); err != nil {
			return texerr.WorkspaceError("cleanup", err)
		}
		slog.Debug("Removed workspace", logfields.Path(m.dir))
		m.dir = ""
	case config.CleanupKeepPDF:
		for _, sub := range []string{OldDir, NewDir} {
			if err := os.RemoveAll(filepath.Join(m.dir, sub)); err != nil {
				return texerr.WorkspaceError("cleanup", err)
			}
		}
		slog.Debug("Removed snapshot subtrees", logfields.Path(m.dir))
	case config.CleanupNone:
		slog.Debug("Keeping workspace", logfields.Path(m.dir))
	}
	return nil
}
