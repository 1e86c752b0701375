// Package workdir resolves the directory a feed store lives in, walking
// outward from a starting directory through git so every checkout of a
// repo (including linked worktrees) can share one feed.
package workdir

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	rootMarkerFile = ".vscroll-root"
	dataDir        = ".vscroll"
	rootEnvVar     = "VSCROLL_ROOT"
)

// ResolveBaseDir walks from baseDir outward looking for a feed root: an
// explicit VSCROLL_ROOT override, then baseDir itself, then (if baseDir
// sits inside a git checkout) the checkout's top level, then — for linked
// worktrees — the main worktree the checkout was created from. The first
// candidate holding a .vscroll-root pointer or an existing .vscroll
// directory wins. If none match, baseDir is returned unchanged so a fresh
// feed gets created right where the caller asked for one.
func ResolveBaseDir(baseDir string) string {
	if baseDir == "" {
		return baseDir
	}
	baseDir = filepath.Clean(baseDir)

	if override := strings.TrimSpace(os.Getenv(rootEnvVar)); override != "" {
		return filepath.Clean(override)
	}

	for _, dir := range candidateRoots(baseDir) {
		if resolved, ok := resolveAt(dir); ok {
			return resolved
		}
	}
	return baseDir
}

// candidateRoots orders the directories worth checking for a feed root,
// skipping the git-derived ones when baseDir isn't inside a git checkout.
func candidateRoots(baseDir string) []string {
	dirs := []string{baseDir}

	gitRoot, err := gitTopLevel(baseDir)
	if err != nil || gitRoot == "" {
		return dirs
	}
	gitRoot = filepath.Clean(gitRoot)
	dirs = append(dirs, gitRoot)

	if mainRoot, err := gitMainWorktree(baseDir); err == nil && mainRoot != "" && mainRoot != gitRoot {
		dirs = append(dirs, mainRoot)
	}
	return dirs
}

// resolveAt reports whether dir points at (or itself is) a feed root,
// preferring an explicit .vscroll-root pointer over an existing .vscroll
// directory.
func resolveAt(dir string) (string, bool) {
	if resolved, ok := readRootMarker(dir); ok {
		return resolved, true
	}
	if hasDataDir(dir) {
		return dir, true
	}
	return "", false
}

func readRootMarker(dir string) (string, bool) {
	content, err := os.ReadFile(filepath.Join(dir, rootMarkerFile))
	if err != nil {
		return "", false
	}

	resolved := strings.TrimSpace(string(content))
	if resolved == "" {
		return "", false
	}
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(dir, resolved)
	}
	return filepath.Clean(resolved), true
}

func hasDataDir(dir string) bool {
	fi, err := os.Stat(filepath.Join(dir, dataDir))
	return err == nil && fi.IsDir()
}

func gitTopLevel(dir string) (string, error) {
	out, err := exec.Command("git", "-C", dir, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// gitMainWorktree returns the root of the main worktree when dir sits in a
// linked worktree, and ("", nil) when dir is already the main one.
func gitMainWorktree(dir string) (string, error) {
	out, err := exec.Command("git", "-C", dir, "rev-parse", "--git-common-dir").Output()
	if err != nil {
		return "", err
	}
	commonDir := strings.TrimSpace(string(out))
	if !filepath.IsAbs(commonDir) {
		commonDir = filepath.Join(dir, commonDir)
	}
	mainRoot := filepath.Dir(filepath.Clean(commonDir))

	topLevel, err := gitTopLevel(dir)
	if err != nil {
		return "", err
	}
	if filepath.Clean(topLevel) == mainRoot {
		return "", nil
	}
	return mainRoot, nil
}
