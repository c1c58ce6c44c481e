package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// ValidateStruct understands these `validate` tag rules:
// required, email, pwdmin (6+ chars), max=N (string length) and
// eqfield=OtherField.

var reEmail = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateStruct inspects struct tags `validate:"..."` and returns the first error encountered.
func ValidateStruct(s interface{}) error {
	v := reflect.ValueOf(s)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return errors.New("ValidateStruct expects a struct or pointer to struct")
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("validate")
		if tag == "" {
			continue
		}
		name := jsonName(field)
		fv := v.Field(i)
		for _, p := range strings.Split(tag, ",") {
			p = strings.TrimSpace(p)
			switch {
			case p == "required":
				if fv.IsZero() {
					return errors.New(name + " is required")
				}
			case p == "email":
				if fv.Kind() == reflect.String && fv.String() != "" && !reEmail.MatchString(fv.String()) {
					return errors.New(name + " must be a valid email address")
				}
			case p == "pwdmin":
				if fv.Kind() == reflect.String && len(fv.String()) < 6 {
					return errors.New(name + " must be at least 6 characters")
				}
			case strings.HasPrefix(p, "max="):
				n, err := strconv.Atoi(strings.TrimPrefix(p, "max="))
				if err == nil && fv.Kind() == reflect.String && len(fv.String()) > n {
					return errors.New(name + " must be at most " + strconv.Itoa(n) + " characters")
				}
			case strings.HasPrefix(p, "eqfield="):
				other := strings.TrimPrefix(p, "eqfield=")
				of := v.FieldByName(other)
				if of.IsValid() && of.Kind() == reflect.String && fv.Kind() == reflect.String && fv.String() != of.String() {
					return errors.New(name + " must equal " + other)
				}
			}
		}
	}
	return nil
}

func jsonName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		if name := strings.Split(tag, ",")[0]; name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}
