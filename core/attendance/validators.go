package attendance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-attendance/core"
)

var (
	statusTag  = "attstatus"
	statusText = "must be one of present, absent, late, half_day, excused"
)

// InitValidators registers the attendance validators. core.InitValidators must be called first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)
}

func statusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).Valid()
}

// MarkRequest is what an operator submits to mark one or all students.
type MarkRequest struct {
	Status Status `json:"status" validate:"required,attstatus"`
}

func (mr *MarkRequest) Validate(validate *validator.Validate) error {
	mr.Status = Status(core.CleanString(string(mr.Status), true /* lower */))
	return validate.Struct(mr)
}
