// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvGCPProject is the environment variable holding the GCP project the workflow operates in
	EnvGCPProject = "GCP_PROJECT"

	// EnvGoogleCloudProject is the fallback project variable set by newer runtimes
	EnvGoogleCloudProject = "GOOGLE_CLOUD_PROJECT"

	// EnvDigitalOceanToken is the environment variable containing the DigitalOcean API token
	EnvDigitalOceanToken = "DIGITALOCEAN_TOKEN"

	// EnvLogLevel selects the logrus level
	EnvLogLevel = "LOG_LEVEL"

	// EnvLogFormat selects the log formatter ("json" or "text")
	EnvLogFormat = "LOG_FORMAT"

	// EnvPrefix is the prefix viper uses for every other configuration key
	EnvPrefix = "PROMOTE"
)

// Deployment defaults
const (
	// DefaultProject is used when no project variable is set
	DefaultProject = "sandbox-dev-478813"

	// DefaultZone is the fixed zone validation instances are created in
	DefaultZone = "us-central1-a"

	// DefaultImageFamily is the family promoted images are added to
	DefaultImageFamily = "rhel9-runtime"

	// DefaultCreatedBy is the value of the created_by label on promoted images
	DefaultCreatedBy = "promote-cleanup-function"
)

// Image labels recording provenance of a promoted image
const (
	LabelSourceImage      = "source_image"
	LabelValidationStatus = "validation_status"
	LabelCreatedBy        = "created_by"

	// ValidationStatusPassed is the only validation status an image is ever promoted with
	ValidationStatusPassed = "passed"
)
