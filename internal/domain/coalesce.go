package domain

// CoalesceStr returns the first non-empty string from vals.
func CoalesceStr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// setIfPresent copies *src into dst when src is non-nil and reports whether
// dst changed.
func setIfPresent[T comparable](dst *T, src *T) bool {
	if src == nil || *dst == *src {
		return false
	}
	*dst = *src
	return true
}

// BranchPatch carries the fields of an updateBranch call. Nil fields are
// left untouched.
type BranchPatch struct {
	Title         *string
	Description   *string
	Status        *BranchStatus
	IsLabel       *bool
	IsSprint      *bool
	ResponsibleID *string
	StartDate     *string
	EndDate       *string
	DueDate       *string
	Collapsed     *bool
	Position      *int
}

// Apply merges the patch into b and reports whether anything changed.
func (p BranchPatch) Apply(b *Branch) bool {
	changed := false
	changed = setIfPresent(&b.Title, p.Title) || changed
	changed = setIfPresent(&b.Description, p.Description) || changed
	changed = setIfPresent(&b.Status, p.Status) || changed
	changed = setIfPresent(&b.IsLabel, p.IsLabel) || changed
	changed = setIfPresent(&b.IsSprint, p.IsSprint) || changed
	changed = setIfPresent(&b.ResponsibleID, p.ResponsibleID) || changed
	changed = setIfPresent(&b.StartDate, p.StartDate) || changed
	changed = setIfPresent(&b.EndDate, p.EndDate) || changed
	changed = setIfPresent(&b.DueDate, p.DueDate) || changed
	changed = setIfPresent(&b.Collapsed, p.Collapsed) || changed
	changed = setIfPresent(&b.Position, p.Position) || changed
	return changed
}

type TaskPatch struct {
	Title       *string
	Description *string
	AssigneeID  *string
	DueDate     *string
	Completed   *bool
	Pinned      *bool
}

// Apply merges the patch into t. Completion changes go through
// Task.SetCompleted so CompletedAt follows.
func (p TaskPatch) Apply(t *Task) (changed, completionChanged bool) {
	changed = setIfPresent(&t.Title, p.Title) || changed
	changed = setIfPresent(&t.Description, p.Description) || changed
	changed = setIfPresent(&t.AssigneeID, p.AssigneeID) || changed
	changed = setIfPresent(&t.DueDate, p.DueDate) || changed
	changed = setIfPresent(&t.Pinned, p.Pinned) || changed
	if p.Completed != nil && *p.Completed != t.Completed {
		completionChanged = true
	}
	return changed || completionChanged, completionChanged
}

type PersonPatch struct {
	Name     *string
	Email    *string
	Phone    *string
	Initials *string
	Color    *string
}

func (p PersonPatch) Apply(person *Person) bool {
	changed := false
	changed = setIfPresent(&person.Name, p.Name) || changed
	changed = setIfPresent(&person.Email, p.Email) || changed
	changed = setIfPresent(&person.Phone, p.Phone) || changed
	changed = setIfPresent(&person.Initials, p.Initials) || changed
	changed = setIfPresent(&person.Color, p.Color) || changed
	return changed
}

// Ptr returns a pointer to v. Handy when building patches.
func Ptr[T any](v T) *T { return &v }
