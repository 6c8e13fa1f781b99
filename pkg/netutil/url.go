package netutil

import (
	"net"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/tixchain/ticket-server/pkg/retry"
	"github.com/tixchain/ticket-server/pkg/retry/backoff"
)

// ValidateHttpUrl validates a URL with an http or https scheme, returning the
// parsed URL. URLs without a scheme default to http.
//
// When resolveHost is set, the hostname must also resolve, retrying briefly
// to ride out DNS flaps at startup.
func ValidateHttpUrl(value string, requireSecureConnection, resolveHost bool) (*url.URL, error) {
	parsed, err := url.Parse(value)
	if err != nil || len(parsed.Scheme) == 0 || (len(parsed.Host) == 0 && len(parsed.Opaque) > 0) {
		parsed, err = url.Parse("http://" + value)
		if err != nil {
			return nil, errors.Wrap(err, "invalid url")
		}
	}

	if requireSecureConnection && parsed.Scheme != "https" {
		return nil, errors.New("url scheme must be https")
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("url scheme must be http or https")
	}

	hostname := parsed.Hostname()
	if len(hostname) == 0 {
		return nil, errors.New("host component missing")
	}

	if net.ParseIP(hostname) == nil {
		if err := ValidateDomainName(hostname); err != nil {
			return nil, errors.Wrap(err, "host is not a valid domain name")
		}
	}

	if resolveHost {
		_, err = retry.Retry(
			func() error {
				_, err := net.LookupHost(hostname)
				return err
			},
			retry.Limit(5),
			retry.Backoff(backoff.BinaryExponential(100*time.Millisecond), time.Second),
		)
		if err != nil {
			return nil, errors.Wrap(err, "error resolving hostname")
		}
	}

	return parsed, nil
}
