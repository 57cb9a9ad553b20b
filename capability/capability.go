// Package capability decides whether a key listed in an identity document is
// authorized for a purpose, and which purpose each action requires.
package capability

import (
	"fmt"

	"github.com/storacha/go-didauth/document"
)

type Relationship = document.Relationship

const (
	Authentication       = document.Authentication
	AssertionMethod      = document.AssertionMethod
	KeyAgreement         = document.KeyAgreement
	CapabilityInvocation = document.CapabilityInvocation
	CapabilityDelegation = document.CapabilityDelegation
)

// Action is an operation a key may be asked to authorize.
type Action string

const (
	Authenticate             Action = "authenticate"
	Assert                   Action = "assert"
	AgreeKey                 Action = "agreeKey"
	AddVerificationMethod    Action = "addVerificationMethod"
	RemoveVerificationMethod Action = "removeVerificationMethod"
	UpdateRelationships      Action = "updateRelationships"
	UpdateController         Action = "updateController"
	AddService               Action = "addService"
	RemoveService            Action = "removeService"
)

var required = map[Action]Relationship{
	Authenticate:             Authentication,
	Assert:                   AssertionMethod,
	AgreeKey:                 KeyAgreement,
	AddVerificationMethod:    CapabilityDelegation,
	RemoveVerificationMethod: CapabilityDelegation,
	UpdateRelationships:      CapabilityDelegation,
	UpdateController:         CapabilityDelegation,
	AddService:               CapabilityInvocation,
	RemoveService:            CapabilityInvocation,
}

// RequiredFor returns the relationship a key must hold to perform action.
// Unknown actions require capabilityInvocation.
func RequiredFor(action Action) Relationship {
	if rel, ok := required[action]; ok {
		return rel
	}
	return CapabilityInvocation
}

// IsMutation reports whether action changes an identity document.
func IsMutation(action Action) bool {
	switch action {
	case AddVerificationMethod, RemoveVerificationMethod, UpdateRelationships,
		UpdateController, AddService, RemoveService:
		return true
	default:
		return false
	}
}

// HasCapability reports whether keyID is listed under rel, either by
// reference to a method the document declares or as an embedded method.
// References to methods the document does not declare never match.
func HasCapability(doc *document.Document, keyID string, rel Relationship) bool {
	_, ok := AuthorizedMethod(doc, keyID, rel)
	return ok
}

// AuthorizedMethod returns the method rel lists under keyID. An embedded entry
// yields the embedded method itself, never a method of the same id declared
// elsewhere in the document.
func AuthorizedMethod(doc *document.Document, keyID string, rel Relationship) (document.VerificationMethod, bool) {
	if doc == nil {
		return document.VerificationMethod{}, false
	}
	keyID = doc.Resolve(keyID)
	for _, ref := range doc.Relationship(rel) {
		if doc.Resolve(ref.ID()) != keyID {
			continue
		}
		if vm, ok := ref.Method(); ok {
			return vm, true
		}
		if vm, ok := doc.FindMethod(keyID); ok {
			return vm, true
		}
	}
	return document.VerificationMethod{}, false
}

// PermissionError reports a key that lacks the relationship an action needs.
type PermissionError struct {
	Action   Action
	KeyID    string
	Required Relationship
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("key %s is not authorized to %s: requires %s", e.KeyID, e.Action, e.Required)
}

// Check returns a *PermissionError if keyID may not perform action.
func Check(doc *document.Document, keyID string, action Action) error {
	rel := RequiredFor(action)
	if HasCapability(doc, keyID, rel) {
		return nil
	}
	return &PermissionError{Action: action, KeyID: keyID, Required: rel}
}
