package artifact

import (
	"github.com/go-git/go-git/v5"
)

// Revision returns the short HEAD commit hash of the repository containing
// dir, for stamping build manifests. Returns "" when dir is not inside a
// git repository; builds outside version control are still valid.
func Revision(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	hash := head.Hash().String()
	if len(hash) > 12 {
		hash = hash[:12]
	}
	return hash
}
