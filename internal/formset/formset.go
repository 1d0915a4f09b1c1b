// Package formset decodes and validates batches of rows submitted from a
// single HTML form, using Django-compatible field names:
//
//	authors-TOTAL_FORMS=2
//	authors-INITIAL_FORMS=0
//	authors-0-full_name=...
//	authors-1-full_name=...
//
// Rows the user left untouched are skipped. A formset is valid only when its
// management form is intact and every remaining row passes validation.
package formset

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Management form field names
const (
	TotalForms   = "TOTAL_FORMS"
	InitialForms = "INITIAL_FORMS"
	MinNumForms  = "MIN_NUM_FORMS"
	MaxNumForms  = "MAX_NUM_FORMS"
)

var (
	ErrManagementForm = errors.New("management form data is missing or tampered with")
	ErrTooManyForms   = errors.New("too many forms submitted")
)

// Row is one entry of a formset.
type Row struct {
	Index  int
	Values map[string]string
	Errors map[string]string
}

// Value returns the trimmed submitted value of a field.
func (r *Row) Value(field string) string {
	return r.Values[field]
}

// AddError records a field error. Only the first error per field is kept.
func (r *Row) AddError(field, message string) {
	if r.Errors == nil {
		r.Errors = map[string]string{}
	}
	if _, ok := r.Errors[field]; !ok {
		r.Errors[field] = message
	}
}

func (r *Row) Valid() bool {
	return len(r.Errors) == 0
}

// Formset is a prefixed batch of rows.
type Formset struct {
	Prefix string
	Fields []string
	// Defaults are the initial values of a fresh row. A row whose values all
	// match the defaults counts as untouched.
	Defaults      map[string]string
	Rows          []*Row
	NonFormErrors []string
	MaxForms      int
}

// Blank builds a formset of extra empty rows for display. max is rendered
// into MAX_NUM_FORMS.
func Blank(prefix string, fields []string, defaults map[string]string, extra, max int) *Formset {
	fs := &Formset{Prefix: prefix, Fields: fields, Defaults: defaults, MaxForms: max}
	for i := 0; i < extra; i++ {
		fs.Rows = append(fs.Rows, fs.newRow(i, nil))
	}
	return fs
}

// Parse reads the submitted rows. A missing or malformed management form, or
// more rows than max, leaves the formset with a non-form error and no rows.
func Parse(prefix string, fields []string, defaults map[string]string, values url.Values, max int) *Formset {
	fs := &Formset{Prefix: prefix, Fields: fields, Defaults: defaults, MaxForms: max}

	total, err := fs.managementValue(values, TotalForms)
	if err == nil {
		_, err = fs.managementValue(values, InitialForms)
	}
	if err != nil {
		fs.NonFormErrors = append(fs.NonFormErrors, ErrManagementForm.Error())
		return fs
	}
	if max > 0 && total > max {
		fs.NonFormErrors = append(fs.NonFormErrors, fmt.Sprintf("%s: at most %d allowed", ErrTooManyForms, max))
		return fs
	}

	for i := 0; i < total; i++ {
		fs.Rows = append(fs.Rows, fs.newRow(i, values))
	}
	return fs
}

func (f *Formset) managementValue(values url.Values, name string) (int, error) {
	raw, ok := values[f.Prefix+"-"+name]
	if !ok || len(raw) == 0 {
		return 0, ErrManagementForm
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw[0]))
	if err != nil || n < 0 {
		return 0, ErrManagementForm
	}
	return n, nil
}

func (f *Formset) newRow(index int, values url.Values) *Row {
	row := &Row{Index: index, Values: make(map[string]string, len(f.Fields))}
	for _, field := range f.Fields {
		if values == nil {
			row.Values[field] = f.Defaults[field]
			continue
		}
		row.Values[field] = strings.TrimSpace(values.Get(f.FieldName(index, field)))
	}
	return row
}

// FieldName returns the form field name of a row field.
func (f *Formset) FieldName(index int, field string) string {
	return fmt.Sprintf("%s-%d-%s", f.Prefix, index, field)
}

// ManagementName returns the form field name of a management value.
func (f *Formset) ManagementName(name string) string {
	return f.Prefix + "-" + name
}

// ManagementField is one hidden input of the management form.
type ManagementField struct {
	Name  string
	Value int
}

// Management returns the hidden inputs that precede the rows.
func (f *Formset) Management() []ManagementField {
	return []ManagementField{
		{Name: f.ManagementName(TotalForms), Value: f.TotalForms()},
		{Name: f.ManagementName(InitialForms), Value: 0},
		{Name: f.ManagementName(MinNumForms), Value: 0},
		{Name: f.ManagementName(MaxNumForms), Value: f.MaxForms},
	}
}

// TotalForms is the value rendered into the TOTAL_FORMS hidden input.
func (f *Formset) TotalForms() int {
	return len(f.Rows)
}

// Untouched reports whether the user left the row as rendered.
func (f *Formset) Untouched(row *Row) bool {
	for _, field := range f.Fields {
		if row.Values[field] != f.Defaults[field] {
			return false
		}
	}
	return true
}

// Filled returns the rows that carry user input.
func (f *Formset) Filled() []*Row {
	var rows []*Row
	for _, row := range f.Rows {
		if !f.Untouched(row) {
			rows = append(rows, row)
		}
	}
	return rows
}

// Valid reports whether the formset can be persisted.
func (f *Formset) Valid() bool {
	if len(f.NonFormErrors) > 0 {
		return false
	}
	for _, row := range f.Rows {
		if !row.Valid() {
			return false
		}
	}
	return true
}

// ErrorCount is the number of rows with errors plus non-form errors.
func (f *Formset) ErrorCount() int {
	n := len(f.NonFormErrors)
	for _, row := range f.Rows {
		if !row.Valid() {
			n++
		}
	}
	return n
}
