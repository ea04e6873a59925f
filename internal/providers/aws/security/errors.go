package awssecurity

import (
	"errors"

	"github.com/aws/smithy-go"
)

// AWS error codes that mean "the resource has no policy" rather than a failure.
const (
	codeNoSuchBucketPolicy = "NoSuchBucketPolicy"
	codeNoSuchEntity       = "NoSuchEntity"
)

// errorCode returns the AWS API error code carried by err, or "".
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
