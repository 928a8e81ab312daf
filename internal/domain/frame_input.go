package domain

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FrameInput carries the fields submitted by the frame form
type FrameInput struct {
	Title            string `json:"title" form:"title" validate:"required"`
	Image            string `json:"image" form:"image"`
	Button           string `json:"button" form:"button"`
	ProductID        string `json:"productId" form:"productId" validate:"required"`
	ProductVariantID string `json:"productVariantId" form:"productVariantId"`
	ProductHandle    string `json:"productHandle" form:"productHandle"`
	Destination      string `json:"destination" form:"destination" validate:"required,oneof=product cart"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report errors under the JSON names the form uses
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

var requiredMessages = map[string]string{
	"title":       "Title is required",
	"productId":   "Product is required",
	"destination": "Destination is required",
}

// Validate checks the input and returns a *ValidationError keyed by field
func (in *FrameInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		fields[fe.Field()] = fieldErrorMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if msg, ok := requiredMessages[fe.Field()]; ok {
			return msg
		}
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

// Apply copies the input onto a frame, leaving identity and counters alone
func (in *FrameInput) Apply(f *Frame) {
	f.Title = in.Title
	f.Image = in.Image
	f.Button = in.Button
	f.ProductID = in.ProductID
	f.ProductVariantID = in.ProductVariantID
	f.ProductHandle = in.ProductHandle
	f.Destination = Destination(in.Destination)
}
