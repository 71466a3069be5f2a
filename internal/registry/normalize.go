package registry

import "strings"

// NormalizePath reduces a repository URL to its host-relative path:
// scheme and host are stripped, surrounding slashes trimmed, and the
// result lowercased. "https://git.example.com:3000/Org/Repo/" and
// "http://git.example.com/org/repo" both normalize to "org/repo".
//
// Inputs without a scheme are left host-qualified; registration keys and
// webhook payload URLs are always full URLs in practice.
func NormalizePath(raw string) string {
	s := raw
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		if j := strings.IndexByte(s, '/'); j >= 0 {
			s = s[j+1:]
		} else {
			s = ""
		}
	}
	s = strings.Trim(s, "/")
	return strings.ToLower(s)
}
