package roster

import (
	"sort"
	"strings"

	"github.com/julianstephens/surgisync/internal/models"
)

// Draft is the editing buffer behind the crew editor. Nothing in it
// reaches the committed roster until the crew is saved.
type Draft struct {
	selected   map[models.Role][]string
	candidates map[models.Role][]string
}

// NewDraft seeds the buffer with the current roster. Candidates are
// names offered for selection, typically from suggestions and task buckets.
func NewDraft(current Roster, candidates map[models.Role][]string) *Draft {
	d := &Draft{
		selected: map[models.Role][]string{
			models.RoleDoctor: current.Doctors(),
			models.RoleNurse:  current.Nurses(),
		},
		candidates: map[models.Role][]string{},
	}
	for _, role := range models.Roles {
		d.candidates[role] = Normalize(append(current.Names(role), candidates[role]...))
	}
	return d
}

// Add selects name under role. Blank names and duplicates are ignored.
func (d *Draft) Add(role models.Role, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || contains(d.selected[role], name) {
		return false
	}
	d.selected[role] = append(d.selected[role], name)
	if !contains(d.candidates[role], name) {
		d.candidates[role] = append(d.candidates[role], name)
	}
	return true
}

// Remove deselects name under role. It stays a candidate.
func (d *Draft) Remove(role models.Role, name string) bool {
	names := d.selected[role]
	for i, n := range names {
		if n == name {
			d.selected[role] = append(names[:i:i], names[i+1:]...)
			return true
		}
	}
	return false
}

// Toggle flips the selection of name under role.
func (d *Draft) Toggle(role models.Role, name string) {
	if !d.Remove(role, name) {
		d.Add(role, name)
	}
}

// Select replaces the selection for role with names. Blank names and
// duplicates are dropped as in Add.
func (d *Draft) Select(role models.Role, names []string) {
	d.selected[role] = nil
	for _, n := range names {
		d.Add(role, n)
	}
}

func (d *Draft) Selected(role models.Role) []string {
	return append([]string(nil), d.selected[role]...)
}

func (d *Draft) IsSelected(role models.Role, name string) bool {
	return contains(d.selected[role], name)
}

// Candidates returns every name offered for role, sorted.
func (d *Draft) Candidates(role models.Role) []string {
	out := append([]string(nil), d.candidates[role]...)
	sort.Strings(out)
	return out
}

// Roster builds the roster the draft would commit.
func (d *Draft) Roster() Roster {
	return New(d.selected[models.RoleDoctor], d.selected[models.RoleNurse])
}

// Validate rejects a draft with no crew at all.
func (d *Draft) Validate() error {
	if d.Roster().Empty() {
		return ErrEmptyRoster
	}
	return nil
}
