package sessiontoken

import "sort"

// Key is a claims map key. Symbolic and textual keys with the same Name
// denote the same logical field and may not both appear in one Map.
type Key struct {
	Name   string
	Symbol bool
}

// Sym returns a symbolic key.
func Sym(name string) Key {
	return Key{Name: name, Symbol: true}
}

// Str returns a textual key.
func Str(name string) Key {
	return Key{Name: name}
}

// String implements fmt.Stringer.
func (k Key) String() string {
	if k.Symbol {
		return ":" + k.Name
	}
	return k.Name
}

// Map is an untrusted claims dictionary built from mixed key namespaces.
type Map map[Key]any

// byName validates m and indexes its values by canonical field name.
// Collisions are reported before unknown fields.
func (m Map) byName() (map[string]any, error) {
	seen := make(map[string]struct{}, len(m))
	var collisions []string
	for k := range m {
		if _, dup := seen[k.Name]; dup {
			collisions = append(collisions, k.Name)
			continue
		}
		seen[k.Name] = struct{}{}
	}
	if len(collisions) > 0 {
		sort.Strings(collisions)
		return nil, invalidKey(collisions[0])
	}

	var unknown []string
	for name := range seen {
		if !isField(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, invalidKey(unknown[0])
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k.Name] = v
	}
	return out, nil
}
