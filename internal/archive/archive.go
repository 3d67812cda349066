// Package archive relocates prior-run artifacts when the tracked branch
// changes.
//
// Archival is strictly best-effort: a failed copy or an unreadable marker
// must never stop the orchestrator from running. The contract is made
// explicit by returning a Result the caller is free to ignore.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/steveyegge/ralph/internal/progress"
)

// branchPrefix is the conventional prefix stripped from branch names when
// building archive directory names.
const branchPrefix = "ralph/"

// Archiver detects branch changes between runs and snapshots the previous
// run's requirements document and progress log.
type Archiver struct {
	markerPath       string
	requirementsPath string
	archiveRoot      string
	log              *progress.Log
	now              func() time.Time
}

// Result reports what the archiver did. Err is informational: archival
// failures are swallowed by design, and the run proceeds either way.
type Result struct {
	Archived   bool   // a branch change was detected and a snapshot attempted
	Dir        string // archive directory, when Archived
	PrevBranch string
	Err        error
}

// New returns an archiver for the given paths. log is the live progress log,
// reset after a successful branch-change snapshot.
func New(markerPath, requirementsPath, archiveRoot string, log *progress.Log) *Archiver {
	return &Archiver{
		markerPath:       markerPath,
		requirementsPath: requirementsPath,
		archiveRoot:      archiveRoot,
		log:              log,
		now:              time.Now,
	}
}

// Run executes the archival check once, before the first iteration. It
// archives only when a previous branch marker exists, a current branch name
// is known, and the two differ. Whatever happens, the marker is rewritten
// with the current branch afterward.
func (a *Archiver) Run(currentBranch string) Result {
	res := a.maybeArchive(currentBranch)

	// Marker update is unconditional and best-effort.
	if currentBranch != "" {
		if err := a.writeMarker(currentBranch); err != nil && res.Err == nil {
			res.Err = err
		}
	}
	return res
}

func (a *Archiver) maybeArchive(currentBranch string) Result {
	prev, err := a.readMarker()
	if err != nil {
		// No marker file means first run: nothing to archive.
		return Result{Err: nil}
	}
	if prev == "" || currentBranch == "" || prev == currentBranch {
		return Result{PrevBranch: prev}
	}

	dir := filepath.Join(a.archiveRoot, a.dirName(currentBranch))
	res := Result{Archived: true, Dir: dir, PrevBranch: prev}

	if err := os.MkdirAll(dir, 0755); err != nil {
		res.Err = fmt.Errorf("failed to create archive directory: %w", err)
		return res
	}

	// Copies are best-effort; record the first failure and keep going.
	if err := copyFile(a.requirementsPath, filepath.Join(dir, filepath.Base(a.requirementsPath))); err != nil {
		res.Err = err
	}
	if err := copyFile(a.log.Path(), filepath.Join(dir, filepath.Base(a.log.Path()))); err != nil && res.Err == nil {
		res.Err = err
	}

	if err := a.log.Reset(); err != nil && res.Err == nil {
		res.Err = err
	}
	return res
}

// dirName builds the archive directory name: today's date plus the branch
// name with the conventional prefix stripped.
func (a *Archiver) dirName(branch string) string {
	name := strings.TrimPrefix(branch, branchPrefix)
	name = strings.ReplaceAll(name, "/", "-")
	return fmt.Sprintf("%s-%s", a.now().Format("2006-01-02"), name)
}

func (a *Archiver) readMarker() (string, error) {
	data, err := os.ReadFile(a.markerPath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (a *Archiver) writeMarker(branch string) error {
	if err := os.MkdirAll(filepath.Dir(a.markerPath), 0755); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}
	if err := os.WriteFile(a.markerPath, []byte(branch+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write branch marker: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return nil
}
