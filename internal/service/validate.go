// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// WHY A SEPARATE SERVICE LAYER?
//
//  1. TESTING: business rules are tested with plain Go calls and an
//     in-memory fake repository, no HTTP involved.
//  2. REUSE: the operator CLI (cmd/server "user deactivate") calls the same
//     AuthService.SetActive the API would.
//  3. SEPARATION: handlers only know HTTP, services only know business rules,
//     and neither knows SQL.
//
// DEPENDENCY INJECTION:
// AuthService takes a repository.UserRepository (interface), NOT a *sqlite.DB.
// server.go decides whether that is SQLite or Postgres; tests pass a fake.
package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/luno/internal/apperror"
)

// Field limits. The password maximum is bcrypt's input limit in bytes.
const (
	MaxNameLength     = 50
	MaxEmailLength    = 255
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// validatorInstance returns the shared validator.
//
// validator.Validate caches struct metadata and is safe for concurrent use,
// so one instance serves every request.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their JSON name so error fields line up with
		// what the client sent.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		validate = v
	})
	return validate
}

// fieldLabels are the human names used in validation messages.
var fieldLabels = map[string]string{
	"firstName":          "First name",
	"lastName":           "Last name",
	"email":              "Email",
	"password":           "Password",
	"confirmPassword":    "Password confirmation",
	"currentPassword":    "Current password",
	"newPassword":        "New password",
	"confirmNewPassword": "New password confirmation",
}

// validateInput runs struct-tag validation and turns the first failure into
// an apperror.ValidationFailed carrying the offending JSON field.
func validateInput(in any) error {
	err := validatorInstance().Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("service: validating input: %w", err)
	}

	fe := verrs[0]
	return apperror.ValidationFailed(fe.Field(), validationMessage(fe))
}

func validationMessage(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "eqfield":
		return "Passwords do not match"
	default:
		return label + " is invalid"
	}
}
