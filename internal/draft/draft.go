// Package draft holds the local copy of a product being created or edited.
// A draft is mutated field by field and never touches the server itself;
// closing the editor simply discards it.
package draft

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/omelentjeff/product-management-app/internal/errs"
	"github.com/omelentjeff/product-management-app/internal/model"
)

// Section groups fields the way the editor tabs do.
type Section string

const (
	SectionDetails   Section = "details"
	SectionNutrition Section = "nutrition"
)

const nutritionPrefix = "nutritionalFact"

// Draft is not safe for concurrent use.
type Draft struct {
	pristine model.Product
	cur      model.Product
	fields   errs.FieldErrors
}

// FromProduct starts a draft from a full copy of p.
func FromProduct(p model.Product) *Draft {
	return &Draft{pristine: p.Clone(), cur: p.Clone()}
}

// Empty starts a draft for a new product.
func Empty() *Draft {
	return FromProduct(model.Product{NutritionalFact: model.NutritionalFact{}})
}

// Product returns a copy of the edited product.
func (d *Draft) Product() model.Product { return d.cur.Clone() }

// Dirty reports whether any field differs from the starting copy.
func (d *Draft) Dirty() bool { return !reflect.DeepEqual(d.pristine, d.cur) }

// Set assigns one field from its text form. Numbers accept "" as null.
// Nutrients may be named bare ("sodium") or dotted ("nutritionalFact.sodium").
func (d *Draft) Set(field, value string) error {
	switch field {
	case "name":
		d.cur.Name = value
		return nil
	case "manufacturer":
		d.cur.Manufacturer = value
		return nil
	case "gtin":
		d.cur.GTIN = value
		return nil
	case "weight":
		v, err := parseNumber(value)
		if err != nil {
			return fmt.Errorf("weight: %w", err)
		}
		d.cur.Weight = v
		return nil
	}

	key := strings.TrimPrefix(field, nutritionPrefix+".")
	if !model.IsNutrient(key) {
		return fmt.Errorf("unknown field %q", field)
	}
	v, err := parseNumber(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d.cur.NutritionalFact == nil {
		d.cur.NutritionalFact = model.NutritionalFact{}
	}
	d.cur.NutritionalFact[key] = v
	return nil
}

func parseNumber(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	return &f, nil
}

// ApplyJSON decodes a product document over the current values. Keys
// absent from data keep their value; unknown keys are rejected.
func (d *Draft) ApplyJSON(data []byte) error {
	p := d.cur.Clone()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return fmt.Errorf("decode product: %w", err)
	}
	for k := range p.NutritionalFact {
		if !model.IsNutrient(k) {
			return fmt.Errorf("unknown nutrient %q", k)
		}
	}
	d.cur = p
	return nil
}

// Input is the payload to send for this draft.
func (d *Draft) Input() model.ProductInput {
	p := d.cur.Clone()
	nf := p.NutritionalFact
	if nf == nil {
		nf = model.NutritionalFact{}
	}
	return model.ProductInput{
		Name:            p.Name,
		Manufacturer:    p.Manufacturer,
		Weight:          p.Weight,
		GTIN:            p.GTIN,
		NutritionalFact: nf,
	}
}

// ApplyErrors records field errors from a failed save. It reports whether
// err carried field-level details; other errors leave the draft untouched.
func (d *Draft) ApplyErrors(err error) bool {
	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	d.fields = ve.Fields
	return true
}

// ClearErrors forgets recorded field errors.
func (d *Draft) ClearErrors() { d.fields = nil }

// Error returns the message shown under field ("name",
// "nutritionalFact.sodium" or bare "sodium"), or "".
func (d *Draft) Error(field string) string {
	if msg := d.fields.Lookup(field); msg != "" {
		return msg
	}
	if model.IsNutrient(field) {
		return d.fields.Lookup(nutritionPrefix + "." + field)
	}
	return ""
}

// Errors returns every recorded message keyed by dotted field path.
func (d *Draft) Errors() map[string]string { return d.fields.Flatten() }

// SectionErrors lists the sections holding at least one error, in tab order.
func (d *Draft) SectionErrors() []Section {
	has := map[Section]bool{}
	for path := range d.fields.Flatten() {
		has[sectionOf(path)] = true
	}
	var out []Section
	for _, s := range []Section{SectionDetails, SectionNutrition} {
		if has[s] {
			out = append(out, s)
		}
	}
	return out
}

func sectionOf(path string) Section {
	head, _, _ := strings.Cut(path, ".")
	if head == nutritionPrefix || model.IsNutrient(head) {
		return SectionNutrition
	}
	return SectionDetails
}

// Discard drops all edits and errors, returning to the starting copy.
func (d *Draft) Discard() {
	d.cur = d.pristine.Clone()
	d.fields = nil
}

// SortedErrorPaths returns the error paths sorted, for stable display.
func (d *Draft) SortedErrorPaths() []string {
	m := d.fields.Flatten()
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
