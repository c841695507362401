package http

import (
	"fmt"
	"strings"

	"shelfscan/internal/book"
	"shelfscan/internal/httpx"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	_ = validate.RegisterValidation("genre", validateGenre)
	_ = validate.RegisterValidation("status", validateStatus)
}

func validateGenre(fl validator.FieldLevel) bool {
	_, ok := book.ParseGenre(fl.Field().String())
	return ok
}

func validateStatus(fl validator.FieldLevel) bool {
	_, ok := book.ParseStatus(fl.Field().String())
	return ok
}

// ValidateStruct runs struct tags and turns failures into envelope details.
func ValidateStruct(s any) []httpx.ErrorDetail {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []httpx.ErrorDetail{{Message: err.Error()}}
	}

	var details []httpx.ErrorDetail
	for _, err := range verrs {
		field := err.Field()
		param := err.Param()

		var message string
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "max":
			message = fmt.Sprintf("%s must be at most %s", field, param)
		case "min":
			message = fmt.Sprintf("%s must be at least %s", field, param)
		case "genre":
			message = fmt.Sprintf("%s must be one of: %s", field, genreNames())
		case "status":
			message = fmt.Sprintf("%s must be available or lent", field)
		default:
			message = fmt.Sprintf("%s is invalid", field)
		}

		details = append(details, httpx.ErrorDetail{
			Field:   strings.ToLower(field[:1]) + field[1:],
			Message: message,
		})
	}
	return details
}

func genreNames() string {
	names := make([]string, len(book.Genres))
	for i, g := range book.Genres {
		names[i] = string(g)
	}
	return strings.Join(names, ", ")
}
