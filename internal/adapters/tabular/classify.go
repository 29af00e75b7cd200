package tabular

import (
	"errors"
	"net/http"

	"quadra_financeiro/internal/apperr"

	"github.com/minio/minio-go/v7"
	"google.golang.org/api/googleapi"
)

var quotaReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
	"RATE_LIMIT_EXCEEDED":   true,
	"RESOURCE_EXHAUSTED":    true,
}

// classifyGoogle maps a Sheets API failure onto an apperr kind using the
// structured googleapi.Error fields.
func classifyGoogle(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return apperr.Backend(op, err)
	}
	switch gerr.Code {
	case http.StatusTooManyRequests:
		return apperr.Quota(op, err)
	case http.StatusForbidden:
		for _, item := range gerr.Errors {
			if quotaReasons[item.Reason] {
				return apperr.Quota(op, err)
			}
		}
		return apperr.Unavailable(op, err)
	case http.StatusUnauthorized, http.StatusNotFound:
		return apperr.Unavailable(op, err)
	}
	return apperr.Backend(op, err)
}

var s3QuotaCodes = map[string]bool{
	"SlowDown":             true,
	"SlowDownRead":         true,
	"SlowDownWrite":        true,
	"RequestLimitExceeded": true,
	"TooManyRequests":      true,
}

var s3UnavailableCodes = map[string]bool{
	"NoSuchBucket":          true,
	"AccessDenied":          true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
}

// ClassifyS3 maps a minio error to a BackendError kind.
func ClassifyS3(op string, err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch {
	case s3QuotaCodes[resp.Code],
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusServiceUnavailable:
		return apperr.Quota(op, err)
	case s3UnavailableCodes[resp.Code]:
		return apperr.Unavailable(op, err)
	}
	return apperr.Backend(op, err)
}
