package gitrepo

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/texdiff/internal/config"
	"git.home.luguber.info/inful/texdiff/internal/run"
	"git.home.luguber.info/inful/texdiff/internal/texerr"
)

// Extractor populates snapshot subtrees from repository revisions.
type Extractor struct {
	repo   *Repo
	runner run.Runner
}

// NewExtractor creates an extractor for the given repository.
func NewExtractor(repo *Repo, runner run.Runner) *Extractor {
	return &Extractor{repo: repo, runner: runner}
}

// Extract exports revision into dest. checkoutRoot scopes the export to a
// directory prefix ("" means the whole tree). The export uses
// `git archive`, which reads objects only: the caller's working tree and
// index stay untouched. The working-tree sentinel is a no-op here; its
// content arrives via the untracked-file overlay instead.
func (e *Extractor) Extract(ctx context.Context, side, revision, dest, checkoutRoot string) error {
	if revision == config.WorktreeRev {
		return nil
	}

	args := []string{"archive", "--format=tar", revision}
	if checkoutRoot != "" {
		args = append(args, "--", checkoutRoot)
	}

	pr, pw := io.Pipe()
	archiveErr := make(chan error, 1)
	go func() {
		err := e.runner.Run(ctx, run.Cmd{
			Tool:    "git",
			Args:    args,
			Dir:     e.repo.Root(),
			LogName: "git-archive",
			Stdout:  pw,
		})
		pw.CloseWithError(err)
		archiveErr <- err
	}()

	untarErr := untar(dest, pr)
	// Drain so the archive process is never blocked on a full pipe.
	_, _ = io.Copy(io.Discard, pr)

	if err := <-archiveErr; err != nil {
		return texerr.ExtractionError(side, revision, err)
	}
	if untarErr != nil {
		return texerr.ExtractionError(side, revision, untarErr)
	}
	return nil
}

// LinkUntracked overlays the live repository's main-document directory
// onto the snapshot via symlinks, so uncommitted and untracked files are
// visible to the later stages. Files already extracted keep priority.
func (e *Extractor) LinkUntracked(snapshotDir, mainDir string) error {
	srcDir := filepath.Join(e.repo.Root(), mainDir)
	dstDir := filepath.Join(snapshotDir, mainDir)
	if err := os.MkdirAll(dstDir, 0o750); err != nil {
		return texerr.WorkspaceError("overlay", err)
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return texerr.WorkspaceError("overlay", err)
	}
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		dst := filepath.Join(dstDir, entry.Name())
		if _, err := os.Lstat(dst); err == nil {
			continue // extracted content wins over the overlay
		}
		if err := os.Symlink(filepath.Join(srcDir, entry.Name()), dst); err != nil {
			return texerr.WorkspaceError("overlay", err)
		}
	}
	return nil
}

// untar unpacks a tar stream under dest, refusing entries that would
// escape it.
func untar(dest string, r io.Reader) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}

		name := filepath.Clean(hdr.Name)
		if name == "." {
			continue
		}
		if strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return fmt.Errorf("archive entry escapes destination: %s", hdr.Name)
		}
		path := filepath.Join(dest, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0o750); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, path); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
				return err
			}
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
		default:
			// pax headers and other entry types carry no content we need
		}
	}
}
