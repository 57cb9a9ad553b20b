// Package document models identity (DID) documents: the public keys an
// identity publishes, the relationships that authorize those keys for
// specific purposes and the services it advertises.
package document

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/multiformats/go-multicodec"
	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/multiformat"
	"github.com/storacha/go-didauth/principal"
	"github.com/storacha/go-didauth/principal/jwk"
)

// DefaultContext is the JSON-LD context of DID documents.
const DefaultContext = "https://www.w3.org/ns/did/v1"

// Relationship is a named verification relationship.
type Relationship string

const (
	Authentication       Relationship = "authentication"
	AssertionMethod      Relationship = "assertionMethod"
	KeyAgreement         Relationship = "keyAgreement"
	CapabilityInvocation Relationship = "capabilityInvocation"
	CapabilityDelegation Relationship = "capabilityDelegation"
)

// Relationships lists every verification relationship in document order.
var Relationships = []Relationship{
	Authentication,
	AssertionMethod,
	KeyAgreement,
	CapabilityInvocation,
	CapabilityDelegation,
}

var (
	ErrNoKeyMaterial    = errors.New("verification method has no public key material")
	ErrUnknownMethod    = errors.New("verification method not found")
	ErrUnknownService   = errors.New("service not found")
	ErrDuplicateID      = errors.New("duplicate id")
	ErrInvalidReference = errors.New("invalid verification method reference")
)

type VerificationMethod struct {
	ID                 string   `json:"id"`
	Type               string   `json:"type"`
	Controller         string   `json:"controller"`
	PublicKeyMultibase string   `json:"publicKeyMultibase,omitempty"`
	PublicKeyJwk       *jwk.JWK `json:"publicKeyJwk,omitempty"`
}

// NewVerificationMethod creates a method publishing pub as multibase encoded,
// multicodec tagged bytes.
func NewVerificationMethod(id string, controller did.DID, alg principal.Algorithm, code multicodec.Code, pub []byte) (VerificationMethod, error) {
	mb, err := multiformat.Encode(pub, code)
	if err != nil {
		return VerificationMethod{}, err
	}
	return VerificationMethod{
		ID:                 id,
		Type:               principal.TypeForAlgorithm(alg),
		Controller:         controller.String(),
		PublicKeyMultibase: mb,
	}, nil
}

// PublicKey extracts the algorithm and raw public key bytes of the method.
func (vm VerificationMethod) PublicKey() (principal.Algorithm, []byte, error) {
	typeAlg, typed := principal.AlgorithmForType(vm.Type)
	switch {
	case vm.PublicKeyMultibase != "":
		b, code, err := multiformat.Decode(vm.PublicKeyMultibase)
		if err != nil {
			if !typed {
				return "", nil, fmt.Errorf("decoding publicKeyMultibase: %w", err)
			}
			// untagged keys are allowed when the type names the algorithm
			raw, _, rerr := multiformat.DecodeBytes(vm.PublicKeyMultibase)
			if rerr != nil || len(raw) == 0 {
				return "", nil, fmt.Errorf("decoding publicKeyMultibase: %w", err)
			}
			return typeAlg, raw, nil
		}
		alg, ok := principal.AlgorithmForCode(code)
		if !ok {
			return "", nil, principal.NewUnsupportedAlgorithmError(code)
		}
		if typed && alg != typeAlg {
			return "", nil, fmt.Errorf("key type %s does not match %s method type %s", alg, vm.ID, vm.Type)
		}
		if len(b) == 0 {
			return "", nil, ErrNoKeyMaterial
		}
		return alg, b, nil
	case vm.PublicKeyJwk != nil:
		alg, b, err := vm.PublicKeyJwk.PublicKey()
		if err != nil {
			return "", nil, err
		}
		if typed && alg != typeAlg {
			return "", nil, fmt.Errorf("key type %s does not match %s method type %s", alg, vm.ID, vm.Type)
		}
		return alg, b, nil
	default:
		return "", nil, ErrNoKeyMaterial
	}
}

// Reference is an entry of a verification relationship. It is either a
// reference to a method declared in the document or an embedded method.
type Reference struct {
	id       string
	embedded *VerificationMethod
}

func ByID(id string) Reference {
	return Reference{id: id}
}

func Embedded(vm VerificationMethod) Reference {
	return Reference{id: vm.ID, embedded: &vm}
}

// ID is the id of the referenced or embedded method.
func (r Reference) ID() string {
	return r.id
}

func (r Reference) IsEmbedded() bool {
	return r.embedded != nil
}

// Method returns the embedded method, if any.
func (r Reference) Method() (VerificationMethod, bool) {
	if r.embedded == nil {
		return VerificationMethod{}, false
	}
	return *r.embedded, true
}

type Service struct {
	ID              string
	Type            string
	ServiceEndpoint any
	// Properties holds members other than id, type and serviceEndpoint.
	Properties map[string]any
}

// Metadata describes a document version. It is not part of the published
// document.
type Metadata struct {
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
	VersionID   string    `json:"versionId,omitempty"`
	Deactivated bool      `json:"deactivated,omitempty"`
}

type Document struct {
	Context              any
	ID                   did.DID
	Controller           []string
	VerificationMethod   []VerificationMethod
	Authentication       []Reference
	AssertionMethod      []Reference
	KeyAgreement         []Reference
	CapabilityInvocation []Reference
	CapabilityDelegation []Reference
	Service              []Service
	Metadata             *Metadata
}

// New creates an empty document controlled by itself.
func New(id did.DID) *Document {
	return &Document{
		Context:    []any{DefaultContext},
		ID:         id.WithoutFragment(),
		Controller: []string{id.WithoutFragment().String()},
	}
}

// Relationship returns the entries of the named relationship.
func (d *Document) Relationship(rel Relationship) []Reference {
	switch rel {
	case Authentication:
		return d.Authentication
	case AssertionMethod:
		return d.AssertionMethod
	case KeyAgreement:
		return d.KeyAgreement
	case CapabilityInvocation:
		return d.CapabilityInvocation
	case CapabilityDelegation:
		return d.CapabilityDelegation
	default:
		return nil
	}
}

// SetRelationship replaces the entries of the named relationship.
func (d *Document) SetRelationship(rel Relationship, refs []Reference) error {
	switch rel {
	case Authentication:
		d.Authentication = refs
	case AssertionMethod:
		d.AssertionMethod = refs
	case KeyAgreement:
		d.KeyAgreement = refs
	case CapabilityInvocation:
		d.CapabilityInvocation = refs
	case CapabilityDelegation:
		d.CapabilityDelegation = refs
	default:
		return fmt.Errorf("unknown verification relationship: %q", rel)
	}
	return nil
}

// Resolve makes a possibly relative id ("#key-1") absolute.
func (d *Document) Resolve(id string) string {
	return did.ResolveRef(d.ID, id)
}

// FindMethod looks up a method by id, in the verification method list first
// and then among methods embedded in relationships.
func (d *Document) FindMethod(id string) (VerificationMethod, bool) {
	id = d.Resolve(id)
	for _, vm := range d.VerificationMethod {
		if d.Resolve(vm.ID) == id {
			return vm, true
		}
	}
	for _, rel := range Relationships {
		for _, ref := range d.Relationship(rel) {
			if vm, ok := ref.Method(); ok && d.Resolve(vm.ID) == id {
				return vm, true
			}
		}
	}
	return VerificationMethod{}, false
}

// Methods returns every method the document declares, including methods
// embedded in relationships.
func (d *Document) Methods() []VerificationMethod {
	out := slices.Clone(d.VerificationMethod)
	for _, rel := range Relationships {
		for _, ref := range d.Relationship(rel) {
			if vm, ok := ref.Method(); ok {
				out = append(out, vm)
			}
		}
	}
	return out
}

// Controllers returns the controllers of the document, which default to the
// document itself.
func (d *Document) Controllers() []string {
	if len(d.Controller) == 0 {
		return []string{d.ID.String()}
	}
	return d.Controller
}

// Validate checks structural invariants: a defined id, well formed
// relationship entries and unique service ids. Method ids are unique across
// the method list and the methods embedded in relationships. References to
// methods that do not exist are allowed; they never satisfy a capability check.
func (d *Document) Validate() error {
	if !d.ID.Defined() {
		return errors.New("document id is required")
	}
	if d.ID.Fragment() != "" {
		return fmt.Errorf("document id must not have a fragment: %s", d.ID)
	}
	seen := map[string]struct{}{}
	for _, vm := range d.VerificationMethod {
		id := d.Resolve(vm.ID)
		if vm.ID == "" || vm.Type == "" {
			return fmt.Errorf("verification method requires id and type: %q", vm.ID)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}
	for _, rel := range Relationships {
		for _, ref := range d.Relationship(rel) {
			if ref.ID() == "" {
				return fmt.Errorf("%w in %s", ErrInvalidReference, rel)
			}
			vm, ok := ref.Method()
			if !ok {
				continue
			}
			if vm.Type == "" {
				return fmt.Errorf("verification method requires id and type: %q", vm.ID)
			}
			// Embedded methods share the id space of the method list.
			id := d.Resolve(vm.ID)
			if _, ok := seen[id]; ok {
				return fmt.Errorf("%w: %s", ErrDuplicateID, id)
			}
			seen[id] = struct{}{}
		}
	}
	services := map[string]struct{}{}
	for _, s := range d.Service {
		id := d.Resolve(s.ID)
		if s.ID == "" || s.Type == "" {
			return fmt.Errorf("service requires id and type: %q", s.ID)
		}
		if _, ok := services[id]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		services[id] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy of the document, apart from values held in
// service endpoints and properties.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Controller = slices.Clone(d.Controller)
	out.VerificationMethod = make([]VerificationMethod, len(d.VerificationMethod))
	for i, vm := range d.VerificationMethod {
		out.VerificationMethod[i] = cloneMethod(vm)
	}
	for _, rel := range Relationships {
		refs := d.Relationship(rel)
		if refs == nil {
			continue
		}
		cp := make([]Reference, len(refs))
		for i, ref := range refs {
			if vm, ok := ref.Method(); ok {
				cp[i] = Embedded(cloneMethod(vm))
			} else {
				cp[i] = ref
			}
		}
		_ = out.SetRelationship(rel, cp)
	}
	out.Service = make([]Service, len(d.Service))
	for i, s := range d.Service {
		s.Properties = cloneMap(s.Properties)
		out.Service[i] = s
	}
	if d.Metadata != nil {
		md := *d.Metadata
		out.Metadata = &md
	}
	return &out
}

func cloneMethod(vm VerificationMethod) VerificationMethod {
	if vm.PublicKeyJwk != nil {
		k := *vm.PublicKeyJwk
		vm.PublicKeyJwk = &k
	}
	return vm
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
