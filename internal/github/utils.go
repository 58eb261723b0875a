package github

import (
	"fmt"
	"strings"
)

// ParseOwnerRepo splits "owner/repo" into its parts.
// Example: "psf/requests" -> "psf", "requests"
func ParseOwnerRepo(s string) (owner, repo string, err error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format %q: want owner/repo", s)
	}
	return parts[0], parts[1], nil
}
