package sagemaker

import "time"

// Tag keys applied to every endpoint created by the controller.
const (
	TagKeyName      = "Name"
	TagKeyModelName = "ModelName"
	TagKeyCreatedBy = "CreatedBy"
	TagKeyCreatedOn = "CreatedOn"
)

// tagCreatedByValue identifies endpoints created by this service.
const tagCreatedByValue = "ModelConnector"

// createdOnLayout formats the CreatedOn tag and timestamp suffixes.
const createdOnLayout = "20060102150405"

// buildEndpointTags merges the default endpoint tags with user-defined tags.
// User-defined tags override defaults when keys overlap.
func buildEndpointTags(
	endpointName, configName string,
	createdOn time.Time,
	userTags map[string]string,
) map[string]string {
	tags := make(map[string]string, len(userTags)+4) //nolint:mnd // 4 default tag keys

	tags[TagKeyName] = endpointName
	tags[TagKeyModelName] = configName
	tags[TagKeyCreatedBy] = tagCreatedByValue
	tags[TagKeyCreatedOn] = createdOn.Format(createdOnLayout)

	for k, v := range userTags {
		tags[k] = v
	}
	return tags
}
