package tui

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/text/message"

	"grimm.is/iwaf/internal/validation"
)

// AutoForm generates a huh.Form from a struct pointer using reflection.
// It parses the `tui:"..."` tag to configure field properties; titles are
// translated with p.
//
// Tag syntax: key=value pairs separated by ";". Keys: title, desc,
// options ("Label:value|value|..."), validate (a Validators key).
func AutoForm(v any, p *message.Printer) (*huh.Form, error) {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Pointer || val.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("AutoForm requires a pointer to a struct, got %T", v)
	}

	el := val.Elem()
	t := el.Type()
	var fields []huh.Field

	for i := 0; i < el.NumField(); i++ {
		field := el.Field(i)
		fieldType := t.Field(i)
		tag := fieldType.Tag.Get("tui")
		if tag == "" {
			continue
		}

		props := parseTag(tag)
		title := props["title"]
		if title == "" {
			title = fieldType.Name
		}
		title = p.Sprintf(title)
		desc := props["desc"]

		switch field.Kind() {
		case reflect.String:
			ptr := field.Addr().Interface().(*string)
			if optsStr, ok := props["options"]; ok {
				var selectOpts []huh.Option[string]
				for _, o := range strings.Split(optsStr, "|") {
					label, value, found := strings.Cut(o, ":")
					if !found {
						value = label
					}
					selectOpts = append(selectOpts, huh.NewOption(strings.TrimSpace(label), strings.TrimSpace(value)))
				}
				fields = append(fields, huh.NewSelect[string]().
					Title(title).
					Description(desc).
					Options(selectOpts...).
					Value(ptr))
				continue
			}

			input := huh.NewInput().
				Title(title).
				Description(desc).
				Value(ptr)
			if vKey, ok := props["validate"]; ok {
				if validator, exists := Validators[vKey]; exists {
					input.Validate(validator)
				}
			}
			fields = append(fields, input)

		case reflect.Bool:
			fields = append(fields, huh.NewConfirm().
				Title(title).
				Description(desc).
				Value(field.Addr().Interface().(*bool)))
		}
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("%T has no tui fields", v)
	}

	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeBase16()), nil
}

// parseTag parses "key=val;key2=val2".
func parseTag(tag string) map[string]string {
	res := make(map[string]string)
	for _, part := range strings.Split(tag, ";") {
		k, v, ok := strings.Cut(part, "=")
		if ok {
			res[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return res
}

// Validators are the named input checks usable in tui tags.
var Validators = map[string]func(string) error{
	"required": func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("this field is required")
		}
		return nil
	},
	"number": func(s string) error {
		_, err := validation.ParseNonNegativeInt("value", s)
		return err
	},
	"ip": func(s string) error {
		return validation.ValidateIP(strings.TrimSpace(s))
	},
}
