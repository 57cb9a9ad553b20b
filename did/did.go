package did

import (
	"encoding/json"
	"fmt"
	"strings"
)

const Prefix = "did:"

// DID is a decentralized identifier, optionally carrying a fragment that
// points at a resource inside the identified document (usually a key).
type DID struct {
	str string
}

// Undef is the zero value DID.
var Undef = DID{}

func (d DID) String() string {
	return d.str
}

// Defined reports whether d is not the zero value.
func (d DID) Defined() bool {
	return d.str != ""
}

// Method is the method tag, e.g. "key" for did:key:z6Mk...
func (d DID) Method() string {
	rest := strings.TrimPrefix(d.str, Prefix)
	method, _, _ := strings.Cut(rest, ":")
	return method
}

// Identifier is the method specific identifier, without fragment.
func (d DID) Identifier() string {
	rest := strings.TrimPrefix(d.WithoutFragment().str, Prefix)
	_, id, _ := strings.Cut(rest, ":")
	return id
}

// Fragment returns the fragment without the leading "#", or "" if absent.
func (d DID) Fragment() string {
	_, frag, _ := strings.Cut(d.str, "#")
	return frag
}

// WithoutFragment strips any "#fragment" suffix.
func (d DID) WithoutFragment() DID {
	base, _, _ := strings.Cut(d.str, "#")
	return DID{base}
}

// WithFragment returns the DID URL for the given fragment. A leading "#" on
// fragment is tolerated.
func (d DID) WithFragment(fragment string) DID {
	fragment = strings.TrimPrefix(fragment, "#")
	return DID{d.WithoutFragment().str + "#" + fragment}
}

func (d DID) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.str)
}

func (d *DID) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("parsing DID string: %w", err)
	}
	if str == "" {
		*d = Undef
		return nil
	}
	parsed, err := Parse(str)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Parse parses "did:<method>:<method-specific-id>[#fragment]".
func Parse(str string) (DID, error) {
	if !strings.HasPrefix(str, Prefix) {
		return Undef, fmt.Errorf("must start with '%s': %q", Prefix, str)
	}
	base, frag, hasFrag := strings.Cut(str, "#")
	parts := strings.SplitN(strings.TrimPrefix(base, Prefix), ":", 2)
	if len(parts) != 2 {
		return Undef, fmt.Errorf("missing method specific identifier: %q", str)
	}
	method, id := parts[0], parts[1]
	if method == "" {
		return Undef, fmt.Errorf("empty method: %q", str)
	}
	for _, r := range method {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') {
			return Undef, fmt.Errorf("invalid method %q: must be lowercase alphanumeric", method)
		}
	}
	if id == "" || strings.HasSuffix(id, ":") {
		return Undef, fmt.Errorf("invalid method specific identifier: %q", str)
	}
	if hasFrag && frag == "" {
		return Undef, fmt.Errorf("empty fragment: %q", str)
	}
	return DID{str}, nil
}

// MustParse is like [Parse] but panics on error. For use with constants.
func MustParse(str string) DID {
	d, err := Parse(str)
	if err != nil {
		panic(err)
	}
	return d
}

// ResolveRef resolves a possibly relative DID URL reference ("#key-1") against
// base. Absolute references are returned unchanged.
func ResolveRef(base DID, ref string) string {
	if strings.HasPrefix(ref, "#") {
		return base.WithoutFragment().String() + ref
	}
	return ref
}
