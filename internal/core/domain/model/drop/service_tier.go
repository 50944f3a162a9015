package drop

import (
	"fmt"
	"strings"

	"dispatch/internal/pkg/errs"
)

// ServiceTier is the quality-of-service class of a drop. Routes do not mix tiers
// unless explicitly configured to.
type ServiceTier int

const (
	UnknownTier ServiceTier = iota
	Economy
	Standard
	Premium
)

var tierNames = map[ServiceTier]string{
	Economy:  "economy",
	Standard: "standard",
	Premium:  "premium",
}

// ParseServiceTier accepts the lower-case tier names, ignoring case and surrounding spaces.
func ParseServiceTier(s string) (ServiceTier, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for tier, name := range tierNames {
		if name == needle {
			return tier, nil
		}
	}
	return UnknownTier, errs.NewValueIsInvalidErrorWithCause("service tier", fmt.Errorf("%q is not a valid service tier", s))
}

func (t ServiceTier) Validate() error {
	if _, ok := tierNames[t]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("service tier", fmt.Errorf("%d is not a valid service tier", t))
	}
	return nil
}

func (t ServiceTier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}
