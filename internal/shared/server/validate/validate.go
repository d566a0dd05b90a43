// Package validate runs go-playground/validator over request structs and
// renders failures in the API error envelope.
package validate

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"verifycert-backend/internal/shared/server/respond"
)

// FieldIssue names one invalid request field by its JSON name.
type FieldIssue struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{f.Tag.Get("json"), f.Tag.Get("form")} {
			name := strings.Split(tag, ",")[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return val
}

// Struct validates s and returns one issue per failing field, or nil.
func Struct(s any) []FieldIssue {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldIssue{{Field: "body", Issue: err.Error()}}
	}
	issues := make([]FieldIssue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, FieldIssue{Field: fieldPath(fe.Namespace()), Issue: fe.Tag()})
	}
	return issues
}

// BindJSON decodes and validates the request body into dst. On failure it
// writes a 400 response and returns false.
func BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return false
	}
	return Check(c, dst)
}

// Check validates dst and writes a 400 response listing the failing fields.
func Check(c *gin.Context, dst any) bool {
	if issues := Struct(dst); len(issues) > 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "request validation failed", issues)
		return false
	}
	return true
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
