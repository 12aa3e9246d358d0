package config

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validatable 可校验的配置
type Validatable interface {
	Validate() error
}

// ValidateAll 批量校验多个配置段
// 将 ozzo-validation 的字段级错误转换为 LayeredError
func ValidateAll(validators ...Validatable) error {
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			if validationErrs, ok := err.(validation.Errors); ok {
				return convertValidationError(validationErrs)
			}
			return err
		}
	}
	return nil
}

// convertValidationError 将 ozzo-validation 错误转换为带字段信息的 LayeredError
func convertValidationError(validationErrs validation.Errors) error {
	fields := make(map[string]string)
	for field, fieldErr := range validationErrs {
		if fieldErr != nil {
			fields[field] = fieldErr.Error()
		}
	}

	return ErrValidation.WithData("fields", fields)
}
