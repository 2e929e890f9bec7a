package netutil

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/idna"
)

const (
	maxDomainNameSize  = 253
	maxDomainLabelSize = 63
)

// ValidateDomainName checks that host is a registrable domain name, such as
// quote-api.jup.ag. Internationalized names are validated in their ASCII form.
func ValidateDomainName(host string) error {
	if len(host) == 0 {
		return errors.New("domain name is empty")
	}

	ascii, err := idna.Registration.ToASCII(host)
	if err != nil {
		return errors.Wrap(err, "domain name is invalid")
	}
	if len(ascii) > maxDomainNameSize {
		return errors.New("domain name length exceeds limit")
	}

	for _, label := range strings.Split(ascii, ".") {
		if len(label) > maxDomainLabelSize {
			return errors.Errorf("domain label %q exceeds limit", label)
		}
	}
	return nil
}
