package configvalidator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrUnknownField returns when an unknown field appears in the config.
var ErrUnknownField = errors.New("unknown field")

// CheckForUnknownFields validates the config map read from a file against
// the config struct. Fields are matched by their yaml tags (field names if
// there is no tag), sections must correspond to nested structs.
func CheckForUnknownFields(configMap map[string]any, config any) error {
	return checkForUnknownFields(configMap, reflect.TypeOf(config), "")
}

func checkForUnknownFields(configMap map[string]any, t reflect.Type, currentPath string) error {
	fields := getFieldsFromStruct(t)

	for key, val := range configMap {
		fullPath := key
		if currentPath != "" {
			fullPath = currentPath + "." + key
		}

		field, exists := fields[strings.ToLower(key)]
		if !exists {
			return fmt.Errorf("%w: %s", ErrUnknownField, fullPath)
		}

		nestedMap, isMap := val.(map[string]any)
		isStruct := field.Kind() == reflect.Struct
		switch {
		case isMap && isStruct:
			if err := checkForUnknownFields(nestedMap, field, fullPath); err != nil {
				return err
			}
		case isMap != isStruct:
			return fmt.Errorf("%w: %s", ErrUnknownField, fullPath)
		}
	}

	return nil
}

func getFieldsFromStruct(t reflect.Type) map[string]reflect.Type {
	fields := make(map[string]reflect.Type)
	for i := range t.NumField() {
		field := t.Field(i)
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "" {
			name = field.Name
		}
		fields[strings.ToLower(name)] = field.Type
	}
	return fields
}
