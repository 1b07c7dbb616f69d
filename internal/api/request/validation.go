package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

var backupIDRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-\d{4}$`)

func init() {
	validate.RegisterValidation("backupid", func(fl validator.FieldLevel) bool {
		return backupIDRegex.MatchString(fl.Field().String())
	})
}

// maxBodyBytes caps request bodies; every payload here is a handful of fields.
const maxBodyBytes = 64 << 10

func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}
