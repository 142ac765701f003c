package pipeline

import (
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spacesedan/platepick/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidateRequest checks a request arriving from outside the process. Values
// are not normalised: history dedup compares them exactly as given.
func ValidateRequest(req models.SearchRequest) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate.Struct(req)
}
