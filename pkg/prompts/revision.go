package prompts

import (
	gogit "github.com/go-git/go-git/v5"
)

// Revision returns the git commit of the repository containing dir, with a
// "-dirty" suffix when the worktree has uncommitted changes. Directories
// outside a repository report "unversioned".
func Revision(dir string) string {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "unversioned"
	}

	ref, err := repo.Head()
	if err != nil {
		// Empty repository: no commit yet.
		return "unversioned"
	}

	rev := ref.Hash().String()[:12]

	wt, err := repo.Worktree()
	if err != nil {
		// Bare repository.
		return rev
	}
	status, err := wt.Status()
	if err == nil && !status.IsClean() {
		rev += "-dirty"
	}
	return rev
}
