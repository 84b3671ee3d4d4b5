package profile

import (
	"fmt"
	"regexp"
	"strings"
)

// fileSuffix is appended to a profile name to form its default preference file.
const fileSuffix = "_preferences"

// Names start with a letter or digit so they never read as a flag on the
// command line.
var nameRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidateName checks that name can serve as a profile directory and as the
// stem of its preference file.
func ValidateName(name string) error {
	if !nameRegexp.MatchString(name) {
		return fmt.Errorf("invalid profile name %q: must match %s", name, nameRegexp)
	}
	if strings.HasSuffix(name, fileSuffix) {
		return fmt.Errorf("invalid profile name %q: %q suffix is reserved for preference files", name, fileSuffix)
	}
	return nil
}
