package document

import (
	"fmt"
	"slices"
)

// AddMethod appends vm to the method list and references it from each of
// rels. The method id must not already exist.
func (d *Document) AddMethod(vm VerificationMethod, rels ...Relationship) error {
	vm.ID = d.Resolve(vm.ID)
	if vm.Controller == "" {
		vm.Controller = d.ID.String()
	}
	if _, ok := d.FindMethod(vm.ID); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, vm.ID)
	}
	for _, rel := range rels {
		if err := d.SetRelationship(rel, append(d.Relationship(rel), ByID(vm.ID))); err != nil {
			return err
		}
	}
	d.VerificationMethod = append(d.VerificationMethod, vm)
	return nil
}

// RemoveMethod removes a method and every relationship entry referencing or
// embedding it.
func (d *Document) RemoveMethod(id string) error {
	id = d.Resolve(id)
	if _, ok := d.FindMethod(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMethod, id)
	}
	d.VerificationMethod = slices.DeleteFunc(d.VerificationMethod, func(vm VerificationMethod) bool {
		return d.Resolve(vm.ID) == id
	})
	for _, rel := range Relationships {
		refs := slices.DeleteFunc(d.Relationship(rel), func(ref Reference) bool {
			return d.Resolve(ref.ID()) == id
		})
		if len(refs) == 0 {
			refs = nil
		}
		_ = d.SetRelationship(rel, refs)
	}
	return nil
}

// AddService appends a service. The service id must not already exist.
func (d *Document) AddService(svc Service) error {
	svc.ID = d.Resolve(svc.ID)
	if _, ok := d.FindService(svc.ID); ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, svc.ID)
	}
	d.Service = append(d.Service, svc)
	return nil
}

func (d *Document) RemoveService(id string) error {
	id = d.Resolve(id)
	if _, ok := d.FindService(id); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownService, id)
	}
	d.Service = slices.DeleteFunc(d.Service, func(s Service) bool {
		return d.Resolve(s.ID) == id
	})
	if len(d.Service) == 0 {
		d.Service = nil
	}
	return nil
}

func (d *Document) FindService(id string) (Service, bool) {
	id = d.Resolve(id)
	for _, s := range d.Service {
		if d.Resolve(s.ID) == id {
			return s, true
		}
	}
	return Service{}, false
}
