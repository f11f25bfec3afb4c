package usecase

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PostMessageInput is a decoded and structurally valid request.
type PostMessageInput struct {
	ConversationID string `json:"conversationId" validate:"notblank"`
	Message        string `json:"message" validate:"notblank"`
	UserID         string `json:"userId" validate:"notblank"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// DecodeRequest parses a raw request body. It fails with ErrorMalformedRequest
// when the body is not a JSON object of the expected shape or a required
// field is absent or blank. It has no side effects.
func DecodeRequest(body string) (PostMessageInput, error) {
	var in PostMessageInput
	if strings.TrimSpace(body) == "" {
		return PostMessageInput{}, newError(ErrorMalformedRequest, "empty_body", nil)
	}
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		return PostMessageInput{}, newError(ErrorMalformedRequest, "invalid_json", err)
	}
	if err := validateInput(in); err != nil {
		return PostMessageInput{}, err
	}
	return in, nil
}

func validateInput(in PostMessageInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return newError(ErrorMalformedRequest, "missing_"+verrs[0].Field(), err)
	}
	return newError(ErrorMalformedRequest, "invalid_input", err)
}
