// Package validation validates configuration structs and request parameters.
//
// Struct tag validation (go-playground/validator) is used for config sections:
//
//	type Config struct {
//	    Names []string `mapstructure:"names" validate:"required,min=1"`
//	}
//	err := validation.Validate(cfg)
//
// Request parameters are checked programmatically:
//
//	v := validation.New()
//	count := v.Int("count", c.Query("count"), 5)
//	v.Range("count", count, 1, 1000)
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
