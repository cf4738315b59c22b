package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report fields by their yaml names so messages match the config file.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// FieldError is a single configuration problem.
type FieldError struct {
	Field   string // dot path, e.g. "server.port"
	Message string
}

// FieldErrors collects all configuration problems found by Validate.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, e := range fe {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return strings.Join(parts, "; ")
}

// Validate checks struct-tag constraints plus the cross-field rules that
// tags cannot express.
func Validate(cfg *Config) error {
	var errs FieldErrors

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, e := range verrs {
			errs = append(errs, FieldError{Field: fieldPath(e.Namespace()), Message: message(e)})
		}
	}

	if cfg.Cache.L2Backend == "nats" && cfg.NATS.URL == "" {
		errs = append(errs, FieldError{Field: "nats.url", Message: "required when cache.l2_backend is nats"})
	}
	// NATS KV expires by bucket max age, not per entry, so the bucket must
	// not keep entries longer than a read may stay stale.
	if cfg.Cache.L2Backend == "nats" && (cfg.Cache.L2TTL <= 0 || cfg.Cache.L2TTL > cfg.UI.StaleTime) {
		errs = append(errs, FieldError{Field: "cache.l2_ttl", Message: "must be positive and not exceed ui.stale_time when cache.l2_backend is nats"})
	}
	if cfg.Cache.L2Backend == "redis" && cfg.Redis.Addr == "" {
		errs = append(errs, FieldError{Field: "redis.addr", Message: "required when cache.l2_backend is redis"})
	}
	if cfg.Postgres.MinConns > cfg.Postgres.MaxConns {
		errs = append(errs, FieldError{Field: "postgres.min_conns", Message: "must not exceed postgres.max_conns"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("must be >= %s", e.Param())
	case "max":
		return fmt.Sprintf("must be <= %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "url":
		return "must be a valid URL"
	case "numeric":
		return "must be numeric"
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}
