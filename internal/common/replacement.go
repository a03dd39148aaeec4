// Package common holds configuration, logging, polling and the {NAME}
// reference expansion applied to fixture files.
//
// Fixture values may reference environment variables so credentials need not
// be committed:
//
//	Input:  "password": "{CRUDCHECK_PASSWORD}"
//	Vars:   {"CRUDCHECK_PASSWORD": "s3cret"}
//	Output: "password": "s3cret"
//
// Unresolved references are left as-is and logged.
package common

import (
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"
)

// refPattern matches {NAME} references; names are upper-case env style
var refPattern = regexp.MustCompile(`\{([A-Z][A-Z0-9_]*)\}`)

// EnvVars returns the process environment as a map
func EnvVars() map[string]string {
	vars := make(map[string]string)
	for _, kv := range os.Environ() {
		if name, value, ok := strings.Cut(kv, "="); ok {
			vars[name] = value
		}
	}
	return vars
}

// ExpandReferences replaces every {NAME} in input with vars[NAME]
func ExpandReferences(input string, vars map[string]string, logger arbor.ILogger) string {
	if !strings.Contains(input, "{") {
		return input
	}

	return refPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := vars[name]; ok {
			return value
		}
		logger.Warn().Str("reference", match).Msg("Unresolved fixture reference")
		return match
	})
}

// ExpandInStruct walks a struct pointer and expands references in every
// exported string field, including nested structs, pointers, slices and
// string-valued maps.
func ExpandInStruct(v interface{}, vars map[string]string, logger arbor.ILogger) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("ExpandInStruct requires a non-nil pointer, got %T", v)
	}
	val = val.Elem()
	if val.Kind() != reflect.Struct {
		return fmt.Errorf("ExpandInStruct requires a struct pointer, got pointer to %v", val.Kind())
	}

	expandValue(val, vars, logger)
	return nil
}

func expandValue(val reflect.Value, vars map[string]string, logger arbor.ILogger) {
	switch val.Kind() {
	case reflect.String:
		if val.CanSet() {
			val.SetString(ExpandReferences(val.String(), vars, logger))
		}

	case reflect.Struct:
		for i := 0; i < val.NumField(); i++ {
			if field := val.Field(i); field.CanSet() {
				expandValue(field, vars, logger)
			}
		}

	case reflect.Ptr:
		if !val.IsNil() {
			expandValue(val.Elem(), vars, logger)
		}

	case reflect.Slice, reflect.Array:
		for i := 0; i < val.Len(); i++ {
			expandValue(val.Index(i), vars, logger)
		}

	case reflect.Map:
		if val.Type().Key().Kind() != reflect.String || val.Type().Elem().Kind() != reflect.String {
			return
		}
		for _, key := range val.MapKeys() {
			expanded := ExpandReferences(val.MapIndex(key).String(), vars, logger)
			val.SetMapIndex(key, reflect.ValueOf(expanded).Convert(val.Type().Elem()))
		}
	}
}
