package dto

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var exportFormats = map[string]bool{"csv": true, "pdf": true}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("export_format", validateExportFormat)
	}
}

// validateExportFormat accepts the statement formats, case-insensitively.
func validateExportFormat(fl validator.FieldLevel) bool {
	return exportFormats[strings.ToLower(strings.TrimSpace(fl.Field().String()))]
}
