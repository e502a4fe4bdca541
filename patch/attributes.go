package patch

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Attributes are node attributes passed to a factory. Every attribute of
// the declaration must be read by the factory, unread attributes are
// reported as errors.
type Attributes struct {
	node   string
	values map[string]cty.Value
	used   map[string]bool
	dir    string
}

func newAttributes(node string, values map[string]cty.Value, dir string) *Attributes {
	return &Attributes{
		node:   node,
		values: values,
		used:   make(map[string]bool, len(values)),
		dir:    dir,
	}
}

// Has returns true if attribute is declared.
func (a *Attributes) Has(name string) bool {
	v, ok := a.values[name]
	return ok && !v.IsNull()
}

// Number returns numeric attribute or default if it's not declared.
func (a *Attributes) Number(name string, def float64) (float64, error) {
	var f float64
	ok, err := a.decode(name, cty.Number, &f)
	if err != nil || !ok {
		return def, err
	}
	return f, nil
}

// Int returns integer attribute or default if it's not declared.
func (a *Attributes) Int(name string, def int) (int, error) {
	var i int
	ok, err := a.decode(name, cty.Number, &i)
	if err != nil || !ok {
		return def, err
	}
	return i, nil
}

// String returns string attribute or default if it's not declared.
func (a *Attributes) String(name string, def string) (string, error) {
	var s string
	ok, err := a.decode(name, cty.String, &s)
	if err != nil || !ok {
		return def, err
	}
	return s, nil
}

// Bool returns boolean attribute or default if it's not declared.
func (a *Attributes) Bool(name string, def bool) (bool, error) {
	var b bool
	ok, err := a.decode(name, cty.Bool, &b)
	if err != nil || !ok {
		return def, err
	}
	return b, nil
}

// Path returns string attribute resolved relative to the patch file
// directory.
func (a *Attributes) Path(name string) (string, error) {
	p, err := a.String(name, "")
	if err != nil {
		return "", err
	}
	if p == "" {
		return "", fmt.Errorf("attribute %q is required", name)
	}
	if filepath.IsAbs(p) || a.dir == "" {
		return p, nil
	}
	return filepath.Join(a.dir, p), nil
}

func (a *Attributes) decode(name string, ty cty.Type, target interface{}) (bool, error) {
	v, ok := a.values[name]
	if !ok {
		return false, nil
	}
	a.used[name] = true
	if v.IsNull() {
		return false, nil
	}
	v, err := convert.Convert(v, ty)
	if err != nil {
		return false, fmt.Errorf("attribute %q: %w", name, err)
	}
	if err := gocty.FromCtyValue(v, target); err != nil {
		return false, fmt.Errorf("attribute %q: %w", name, err)
	}
	return true, nil
}

func (a *Attributes) checkUnused() error {
	var unused []string
	for name := range a.values {
		if !a.used[name] {
			unused = append(unused, name)
		}
	}
	if len(unused) == 0 {
		return nil
	}
	sort.Strings(unused)
	return fmt.Errorf("unsupported attributes: %s", strings.Join(unused, ", "))
}
