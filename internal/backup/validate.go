package backup

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/edvin/opsportal/internal/model"
)

// MaxRepositoryNameLength is the longest target repository name accepted.
const MaxRepositoryNameLength = 64

var validate = validator.New()

var (
	repoNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)
	orgNameRegex  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{0,49}$`)
)

func init() {
	validate.RegisterValidation("reponame", func(fl validator.FieldLevel) bool {
		return validRepositoryName(fl.Field().String())
	})
	validate.RegisterValidation("orgname", func(fl validator.FieldLevel) bool {
		return orgNameRegex.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("projectname", func(fl validator.FieldLevel) bool {
		return validProjectName(fl.Field().String())
	})
}

func validRepositoryName(name string) bool {
	return repoNameRegex.MatchString(name) &&
		!strings.HasSuffix(name, ".") &&
		!strings.Contains(name, "..")
}

func validProjectName(name string) bool {
	if name == "" || len(name) > 64 || strings.TrimSpace(name) != name {
		return false
	}
	for _, r := range name {
		if unicode.IsControl(r) || strings.ContainsRune(`/\`, r) {
			return false
		}
	}
	return true
}

// validateTarget checks target coordinates before any external call. An
// empty visibility defaults to private.
func validateTarget(req *model.RestoreRequest) error {
	if req.Visibility == "" {
		req.Visibility = model.VisibilityPrivate
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, describeField(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidTarget, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	return nil
}

func describeField(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "reponame":
		return fmt.Sprintf("%s %q must start with a letter or digit, use only letters, digits, '.', '_' or '-', not end with '.' and be at most %d characters",
			fe.Field(), fe.Value(), MaxRepositoryNameLength)
	case "orgname":
		return fmt.Sprintf("%s %q is not a valid organization name", fe.Field(), fe.Value())
	case "projectname":
		return fmt.Sprintf("%s %q is not a valid project name", fe.Field(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}
