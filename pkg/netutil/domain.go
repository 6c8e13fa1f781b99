// Package netutil validates network addresses supplied through config.
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

// ValidateDomainName checks value is a registrable host name, accepting
// internationalized names.
func ValidateDomainName(value string) error {
	if len(value) == 0 {
		return errors.New("domain name is empty")
	}
	if len(value) > maxDomainNameSize {
		return errors.New("domain name length exceeds limit")
	}

	ascii, err := idna.Registration.ToASCII(value)
	if err != nil {
		return errors.Wrap(err, "domain name is invalid")
	}

	for _, label := range strings.Split(ascii, ".") {
		if len(label) > maxDomainLabelSize {
			return errors.Errorf("domain label %q exceeds %d bytes", label, maxDomainLabelSize)
		}
	}
	return nil
}
