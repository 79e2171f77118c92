package sagemaker

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// endpointNamePattern is SageMaker's constraint for endpoint and endpoint
// config names: alphanumerics and hyphens, no leading or trailing hyphen, at
// most 63 characters.
const endpointNamePattern = `^[a-zA-Z0-9](-*[a-zA-Z0-9]){0,62}$`

var endpointNameRe = regexp.MustCompile(endpointNamePattern)

// validateEndpointName checks name against endpointNamePattern.
func validateEndpointName(name string) error {
	if !endpointNameRe.MatchString(name) {
		return fmt.Errorf("endpoint name %q is invalid: must match %s", name, endpointNamePattern)
	}
	return nil
}

// ownsEndpoint reports whether a live endpoint belongs to a config. The match
// is a plain prefix, so config "m1" also owns endpoint "m10".
func ownsEndpoint(configName, endpointName string) bool {
	return strings.HasPrefix(endpointName, configName)
}

// NameSuffixFunc returns the suffix appended to a logical name to form the
// endpoint name of a new deployment.
type NameSuffixFunc func(logicalName string) string

// NoSuffix is the default NameSuffixFunc: endpoints are named after their
// config.
func NoSuffix(string) string { return "" }

// TimestampSuffix returns a NameSuffixFunc producing "-YYYYMMDDhhmmss" from
// now. It allows several generations of one config to coexist.
func TimestampSuffix(now func() time.Time) NameSuffixFunc {
	return func(string) string {
		return "-" + now().UTC().Format(createdOnLayout)
	}
}
