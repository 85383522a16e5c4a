package mutate

import (
	"strings"

	"github.com/alexanderramin/arbor/internal/domain"
)

// AddPerson creates a collaborator. Initials default to the first two
// characters of the name and the colour to the next palette entry.
func (m *Mutator) AddPerson(p *domain.Project, patch domain.PersonPatch) (Result, error) {
	if patch.Name == nil || strings.TrimSpace(*patch.Name) == "" {
		return unchanged(p), ErrEmptyTitle
	}
	name := strings.TrimSpace(*patch.Name)
	t := m.begin(p)
	person := domain.Person{
		ID:       m.NewID(),
		Name:     name,
		Initials: domain.DeriveInitials(name),
		Color:    domain.PersonPalette[len(p.People)%len(domain.PersonPalette)],
	}
	patch.Name = &name
	patch.Apply(&person)
	if person.Initials == "" {
		person.Initials = domain.DeriveInitials(name)
	}
	if person.Color == "" {
		person.Color = domain.PersonPalette[len(p.People)%len(domain.PersonPalette)]
	}
	t.next.People = append(t.next.People, person)
	t.touchPerson(len(t.next.People) - 1)
	return t.result(person.ID), nil
}

// UpdatePerson merges patch into a collaborator. Initials that were derived
// from the old name follow a name change unless new initials are supplied.
func (m *Mutator) UpdatePerson(p *domain.Project, personID string, patch domain.PersonPatch) (Result, error) {
	idx := personIndex(p, personID)
	if idx < 0 {
		return unchanged(p), ErrNotFound
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return unchanged(p), ErrEmptyTitle
	}
	t := m.begin(p)
	person := &t.next.People[idx]
	derived := person.Initials == domain.DeriveInitials(person.Name)
	if !patch.Apply(person) {
		return unchanged(p), nil
	}
	if patch.Initials == nil && derived {
		person.Initials = domain.DeriveInitials(person.Name)
	}
	t.touchPerson(idx)
	return t.result(""), nil
}

// RemovePerson drops a collaborator. Task and branch references to it are
// left in place and read as unassigned.
func (m *Mutator) RemovePerson(p *domain.Project, personID string) (Result, error) {
	idx := personIndex(p, personID)
	if idx < 0 {
		return unchanged(p), ErrNotFound
	}
	t := m.begin(p)
	t.next.People = append(t.next.People[:idx], t.next.People[idx+1:]...)
	t.record(domain.Delete(domain.KindPerson, personID, p.ID))
	return t.result(""), nil
}

func personIndex(p *domain.Project, id string) int {
	for i := range p.People {
		if p.People[i].ID == id {
			return i
		}
	}
	return -1
}
