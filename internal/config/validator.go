package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		validateInst = v
	})

	return validateInst
}

// Validate performs schema and cross-field validation on the configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: configuration is nil")
	}

	if err := validatorInstance().Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	if cfg.SSH.HostKeyPath == "." {
		return fmt.Errorf("config: ssh.host_key_path must not resolve to current directory")
	}
	if cfg.PreferencesPath == "." {
		return fmt.Errorf("config: preferences_path must not resolve to current directory")
	}
	if cfg.SSH.Enabled && cfg.SSH.Port == cfg.HTTP.Port && cfg.SSH.Host == cfg.HTTP.Host {
		return fmt.Errorf("config: http and ssh cannot both listen on %s", cfg.HTTP.Addr())
	}

	return nil
}

func convertValidationError(err error) error {
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		ve := ves[0]
		return fmt.Errorf("config: %s failed validation for tag '%s': %w", fieldName(ve), ve.Tag(), err)
	}
	return fmt.Errorf("config: %w", err)
}

// fieldName drops the root struct from the namespace, leaving the yaml path.
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
