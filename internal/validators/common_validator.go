package validators

import (
	"fmt"
	"strings"

	"gotrike/internal/utils"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("object_id", validateObjectID)
	validate.RegisterValidation("fare_amount", validateFareAmount)
	validate.RegisterValidation("distance", validateDistance)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Fields flattens the errors into the details map the response envelope
// carries.
func (v ValidationErrors) Fields() map[string]string {
	fields := make(map[string]string, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return fields
}

// ValidateStruct validates a struct and returns detailed errors
func ValidateStruct(s interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := validate.Struct(s)
	if err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			validationError := ValidationError{
				Field:   err.Field(),
				Tag:     err.Tag(),
				Value:   fmt.Sprintf("%v", err.Value()),
				Message: getErrorMessage(err),
			}
			validationErrors = append(validationErrors, validationError)
		}
	}

	return validationErrors
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
	case "object_id":
		return "Invalid ID format"
	case "fare_amount":
		return "Invalid fare amount"
	case "distance":
		return "Invalid distance value"
	default:
		return fmt.Sprintf("%s failed validation for %s", err.Field(), err.Tag())
	}
}

func validateObjectID(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case primitive.ObjectID:
		return !v.IsZero()
	case string:
		_, err := primitive.ObjectIDFromHex(v)
		return err == nil
	default:
		return false
	}
}

func validateFareAmount(fl validator.FieldLevel) bool {
	fare := fl.Field().Float()
	return fare >= utils.MinFare && fare <= utils.MaxFare
}

func validateDistance(fl validator.FieldLevel) bool {
	distance := fl.Field().Float()
	return distance > 0 && distance <= utils.MaxRideDistanceKM
}
