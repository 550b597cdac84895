package email

import (
	"regexp"
	"strings"
)

const maxAddressLength = 254

// addressPattern is local@domain where the domain has at least one dot and
// every label starts and ends with an alphanumeric.
var addressPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// ValidAddress reports whether addr looks like a deliverable address. Display
// names ("Ops <ops@example.com>") are not accepted.
func ValidAddress(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" || len(addr) > maxAddressLength {
		return false
	}
	if !addressPattern.MatchString(addr) {
		return false
	}
	local, _, _ := strings.Cut(addr, "@")
	return !strings.Contains(local, "..")
}
