package errs

import "strings"

// FieldError is the message attached to one form field. Dotted server
// field names ("nutritionalFact.sodium") are stored under Nested.
type FieldError struct {
	Message string
	Nested  FieldErrors
}

// FieldErrors maps a field name to its error.
type FieldErrors map[string]*FieldError

// ParseDetails builds FieldErrors from "field: message" strings, splitting
// each on the first ": ". A detail without separator is stored under the
// empty field name. Later details for the same field overwrite earlier ones.
func ParseDetails(details []string) FieldErrors {
	out := FieldErrors{}
	for _, d := range details {
		field, msg, ok := strings.Cut(d, ": ")
		if !ok {
			field, msg = "", d
		}
		out.set(strings.Split(field, "."), msg)
	}
	return out
}

func (f FieldErrors) set(path []string, msg string) {
	node := f.node(path[0])
	for _, p := range path[1:] {
		if node.Nested == nil {
			node.Nested = FieldErrors{}
		}
		node = node.Nested.node(p)
	}
	node.Message = msg
}

func (f FieldErrors) node(name string) *FieldError {
	n, ok := f[name]
	if !ok {
		n = &FieldError{}
		f[name] = n
	}
	return n
}

// Lookup returns the message for a dotted field path, or "".
func (f FieldErrors) Lookup(path string) string {
	cur := f
	parts := strings.Split(path, ".")
	for i, p := range parts {
		n, ok := cur[p]
		if !ok {
			return ""
		}
		if i == len(parts)-1 {
			return n.Message
		}
		cur = n.Nested
	}
	return ""
}

// Flatten returns every message keyed by its dotted path.
func (f FieldErrors) Flatten() map[string]string {
	out := map[string]string{}
	f.flatten("", out)
	return out
}

func (f FieldErrors) flatten(prefix string, out map[string]string) {
	for name, n := range f {
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if n.Message != "" {
			out[key] = n.Message
		}
		n.Nested.flatten(key, out)
	}
}
