package netutil

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ValidateHttpUrl validates a URL for an HTTP scheme. Loopback hosts, as
// served by test servers, are accepted without a secure connection.
func ValidateHttpUrl(value string, requireSecureConnection bool) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return err
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}

	if len(parsed.Host) == 0 {
		return errors.New("host component missing")
	}

	if isLoopback(parsed.Hostname()) {
		return nil
	}

	if requireSecureConnection && parsed.Scheme != "https" {
		return errors.New("url scheme must be https")
	}

	if err := ValidateDomainName(parsed.Hostname()); err != nil {
		return errors.Wrap(err, "host is not a valid domain name")
	}

	return nil
}

// JoinUrl joins a base url and a path, with exactly one slash between them.
func JoinUrl(base string, elems ...string) string {
	joined := strings.TrimRight(base, "/")
	for _, elem := range elems {
		joined += "/" + strings.Trim(elem, "/")
	}
	return joined
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
