package sagemaker

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DiagnosticWarning represents a non-fatal issue detected in the settings.
type DiagnosticWarning struct {
	Category string
	Message  string
	Hint     string
}

// String formats the warning for display.
func (w DiagnosticWarning) String() string {
	if w.Hint != "" {
		return fmt.Sprintf("[%s] %s (hint: %s)", w.Category, w.Message, w.Hint)
	}
	return fmt.Sprintf("[%s] %s", w.Category, w.Message)
}

// knownDeployEnvs lists the deploy environments with a dedicated profile.
var knownDeployEnvs = []string{DeployEnvLocal, DeployEnvProd}

// DiagnoseSettings checks the settings for likely misconfigurations. Unlike
// Validate, these are non-fatal.
func DiagnoseSettings(s *Settings) []DiagnosticWarning {
	var warnings []DiagnosticWarning
	warnings = append(warnings, diagnoseDeployEnv(s)...)
	warnings = append(warnings, diagnoseWaits(s)...)
	warnings = append(warnings, diagnoseRollback(s)...)
	return warnings
}

func diagnoseDeployEnv(s *Settings) []DiagnosticWarning {
	if slices.Contains(knownDeployEnvs, s.DeployEnv) {
		return nil
	}
	return []DiagnosticWarning{{
		Category: ErrCategoryConfiguration,
		Message:  fmt.Sprintf("deploy env %q is not recognised; using profile %q", s.DeployEnv, ProfileDefault),
		Hint:     "known environments: " + strings.Join(knownDeployEnvs, ", "),
	}}
}

func diagnoseWaits(s *Settings) []DiagnosticWarning {
	var warnings []DiagnosticWarning
	if s.DescribeInterval > 0 && s.MaxWait > 0 && s.DescribeInterval >= s.MaxWait {
		warnings = append(warnings, DiagnosticWarning{
			Category: ErrCategoryConfiguration,
			Message: fmt.Sprintf("describe_interval %s is not shorter than max_wait %s",
				s.DescribeInterval, s.MaxWait),
			Hint: "the endpoint will be described at most once before timing out",
		})
	}
	if s.StreamPollInterval > 0 && s.MaxWait > 0 &&
		s.StreamPollInterval*maxProbesOrOne(s.MaxProbes) > s.MaxWait*2 {
		warnings = append(warnings, DiagnosticWarning{
			Category: ErrCategoryConfiguration,
			Message:  "stream probes outlast the deploy wait by more than 2x",
			Hint:     "lower stream_poll_interval or max_probes",
		})
	}
	return warnings
}

func diagnoseRollback(s *Settings) []DiagnosticWarning {
	if s.DeleteOnFail {
		return nil
	}
	return []DiagnosticWarning{{
		Category: ErrCategoryResource,
		Message:  "delete_on_fail is disabled; timed-out endpoints keep running and billing",
		Hint:     "remove them with DELETE /model/remove-endpoint",
	}}
}

func maxProbesOrOne(n int) time.Duration {
	if n < 1 {
		return 1
	}
	return time.Duration(n)
}
