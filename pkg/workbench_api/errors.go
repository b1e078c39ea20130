package workbench_api

import (
	"errors"
	"log"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/loopfz/gadgeto/tonic"
	problem "github.com/workbench-hq/workbench-api/pkg/workbench_api/helpers/problem"
	"github.com/workbench-hq/workbench-api/pkg/workbench_api/models"
)

// The error hook is part of the router contract: every handler error must
// leave as an RFC 7807 problem with the right status, whether the router
// runs in the binary or under a test.
func init() {
	tonic.SetErrorHook(errorHook)
}

func errorHook(c *gin.Context, err error) (int, interface{}) {
	// 1) Bind/validate errors -> 400 with invalidParams
	var be tonic.BindError
	if errors.As(err, &be) || isValidationErr(err) {
		invalids := invalidParamsFromBinding(err, models.CreateArtifactInput{})
		apiErr := problem.NewBadRequest("body", "Invalid input", invalids...)
		c.Header("Content-Type", "application/problem+json")
		return apiErr.Status, apiErr
	}

	// 2) Our own APIError -> pass-through
	if apiErr, ok := err.(problem.APIError); ok {
		c.Header("Content-Type", "application/problem+json")
		return apiErr.Status, apiErr
	}

	// 3) Everything else -> 500 without internal detail
	internal := problem.NewInternalServerError("unexpected error")
	log.Printf("[error] unhandled: %v", err)
	c.Header("Content-Type", "application/problem+json")
	return internal.Status, internal
}

func isValidationErr(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}

func invalidParamsFromBinding(err error, sample any) []problem.InvalidParam {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []problem.InvalidParam{{Name: "body", Reason: err.Error()}}
	}

	t := reflect.TypeOf(sample)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	out := make([]problem.InvalidParam, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Field()
		// StructField -> json tag
		if f, ok := t.FieldByName(fe.StructField()); ok {
			if tag := f.Tag.Get("json"); tag != "" && tag != "-" {
				name = strings.Split(tag, ",")[0]
			}
		}
		out = append(out, problem.InvalidParam{
			Name:   name,
			Reason: humanReason(fe),
		})
	}
	return out
}

func humanReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	default:
		return fe.Error()
	}
}
