package resolvers

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

// SemverResolver resolves version constraints against available tags,
// picking the highest satisfying version. The constraint "latest" matches
// any version.
type SemverResolver struct{}

// NewSemverResolver creates a SemverResolver.
func NewSemverResolver() *SemverResolver {
	return &SemverResolver{}
}

// Resolve returns the highest available version satisfying the constraint.
func (r *SemverResolver) Resolve(constraint string, available []string) (string, error) {
	if constraint == "" || constraint == "latest" {
		constraint = ">= 0"
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return "", fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}

	var valid []*semver.Version
	for _, tag := range available {
		v, err := semver.NewVersion(tag)
		if err != nil {
			// Registries can carry non-semver tags like "latest".
			continue
		}
		if c.Check(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return "", fmt.Errorf("no version satisfies constraint %q", constraint)
	}

	sort.Sort(semver.Collection(valid))
	return valid[len(valid)-1].Original(), nil
}
