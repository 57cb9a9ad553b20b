package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/storacha/go-didauth/did"
)

func (r Reference) MarshalJSON() ([]byte, error) {
	if r.embedded != nil {
		return json.Marshal(r.embedded)
	}
	return json.Marshal(r.id)
}

func (r *Reference) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ErrInvalidReference
	}
	switch b[0] {
	case '"':
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*r = ByID(id)
	case '{':
		var vm VerificationMethod
		if err := json.Unmarshal(b, &vm); err != nil {
			return err
		}
		*r = Embedded(vm)
	default:
		return fmt.Errorf("%w: expected string or object", ErrInvalidReference)
	}
	return nil
}

func (s Service) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(s.Properties)+3)
	for k, v := range s.Properties {
		m[k] = v
	}
	m["id"] = s.ID
	m["type"] = s.Type
	if s.ServiceEndpoint != nil {
		m["serviceEndpoint"] = s.ServiceEndpoint
	}
	return json.Marshal(m)
}

func (s *Service) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	id, _ := m["id"].(string)
	typ, _ := m["type"].(string)
	svc := Service{ID: id, Type: typ, ServiceEndpoint: m["serviceEndpoint"]}
	delete(m, "id")
	delete(m, "type")
	delete(m, "serviceEndpoint")
	if len(m) > 0 {
		svc.Properties = m
	}
	*s = svc
	return nil
}

type documentJSON struct {
	Context              any                  `json:"@context,omitempty"`
	ID                   did.DID              `json:"id"`
	Controller           json.RawMessage      `json:"controller,omitempty"`
	VerificationMethod   []VerificationMethod `json:"verificationMethod,omitempty"`
	Authentication       []Reference          `json:"authentication,omitempty"`
	AssertionMethod      []Reference          `json:"assertionMethod,omitempty"`
	KeyAgreement         []Reference          `json:"keyAgreement,omitempty"`
	CapabilityInvocation []Reference          `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation []Reference          `json:"capabilityDelegation,omitempty"`
	Service              []Service            `json:"service,omitempty"`
}

func (d Document) MarshalJSON() ([]byte, error) {
	out := documentJSON{
		Context:              d.Context,
		ID:                   d.ID,
		VerificationMethod:   d.VerificationMethod,
		Authentication:       d.Authentication,
		AssertionMethod:      d.AssertionMethod,
		KeyAgreement:         d.KeyAgreement,
		CapabilityInvocation: d.CapabilityInvocation,
		CapabilityDelegation: d.CapabilityDelegation,
		Service:              d.Service,
	}
	var err error
	switch len(d.Controller) {
	case 0:
	case 1:
		out.Controller, err = json.Marshal(d.Controller[0])
	default:
		out.Controller, err = json.Marshal(d.Controller)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

func (d *Document) UnmarshalJSON(b []byte) error {
	var in documentJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	controllers, err := parseController(in.Controller)
	if err != nil {
		return err
	}
	*d = Document{
		Context:              in.Context,
		ID:                   in.ID,
		Controller:           controllers,
		VerificationMethod:   in.VerificationMethod,
		Authentication:       in.Authentication,
		AssertionMethod:      in.AssertionMethod,
		KeyAgreement:         in.KeyAgreement,
		CapabilityInvocation: in.CapabilityInvocation,
		CapabilityDelegation: in.CapabilityDelegation,
		Service:              in.Service,
	}
	d.normalize()
	return nil
}

func parseController(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var c string
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return []string{c}, nil
	}
	var cs []string
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, errors.New("controller must be a string or an array of strings")
	}
	return cs, nil
}

// normalize makes method, reference and service ids absolute.
func (d *Document) normalize() {
	if !d.ID.Defined() {
		return
	}
	for i := range d.VerificationMethod {
		d.VerificationMethod[i].ID = d.Resolve(d.VerificationMethod[i].ID)
	}
	for _, rel := range Relationships {
		refs := d.Relationship(rel)
		for i, ref := range refs {
			if vm, ok := ref.Method(); ok {
				vm.ID = d.Resolve(vm.ID)
				refs[i] = Embedded(vm)
			} else {
				refs[i] = ByID(d.Resolve(ref.ID()))
			}
		}
	}
	for i := range d.Service {
		d.Service[i].ID = d.Resolve(d.Service[i].ID)
	}
}

// Parse validates data against the document schema, decodes it and checks
// structural invariants.
func Parse(data []byte) (*Document, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}
