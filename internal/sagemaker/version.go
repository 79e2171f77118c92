package sagemaker

// Build-time variables injected via ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// appID identifies this service in the AWS SDK user agent.
func appID() string {
	return "endpoint-manager/" + Version
}
