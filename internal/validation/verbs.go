package validation

import (
	"fmt"

	"github.com/Butonix/localhub/internal/notifications"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterVerbValidator adds the "verb" tag to gin's binding validator.
// A field passes when it names a verb some subject kind registers.
func RegisterVerbValidator(registry *notifications.Registry) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator %T", binding.Validator.Engine())
	}

	known := make(map[string]bool)
	for _, verb := range registry.AllVerbs() {
		known[verb] = true
	}
	return v.RegisterValidation("verb", func(fl validator.FieldLevel) bool {
		return known[fl.Field().String()]
	})
}
