package roster

import (
	"reflect"
	"testing"

	"github.com/julianstephens/surgisync/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"trims", []string{"  Susan ", "Elizabeth"}, []string{"Susan", "Elizabeth"}},
		{"drops blanks", []string{"", "   ", "Susan"}, []string{"Susan"}},
		{"dedupes keeping order", []string{"Susan", "Maria", "Susan "}, []string{"Susan", "Maria"}},
		{"case sensitive", []string{"susan", "Susan"}, []string{"susan", "Susan"}},
		{"nil", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRosterMembersCarryRoles(t *testing.T) {
	r := New([]string{"Dr. Wong"}, []string{"Susan", "Susan"})
	want := []models.CrewMember{
		{Name: "Dr. Wong", Role: models.RoleDoctor},
		{Name: "Susan", Role: models.RoleNurse},
	}
	if got := r.Members(); !reflect.DeepEqual(got, want) {
		t.Errorf("Members() = %+v, want %+v", got, want)
	}
	if r.Empty() {
		t.Error("roster should not be empty")
	}
	if !New(nil, []string{" "}).Empty() {
		t.Error("blank-only roster should be empty")
	}
}

func TestInferRole(t *testing.T) {
	r := New([]string{"Dr. Wong"}, []string{"Susan"})
	holders := map[models.Role][]string{
		models.RoleDoctor: {"Dr. Martinez", "Alex"},
		models.RoleNurse:  {"Alex"},
	}

	tests := []struct {
		name     string
		want     models.Role
		resolved bool
	}{
		{"Dr. Wong", models.RoleDoctor, true},
		{"Susan", models.RoleNurse, true},
		{"Dr. Martinez", models.RoleDoctor, true},
		{"Alex", models.RoleNurse, false},
		{"Stranger", models.RoleNurse, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.InferRole(tt.name, holders, models.RoleNurse)
			if got != tt.want || ok != tt.resolved {
				t.Errorf("InferRole(%q) = %s,%v want %s,%v", tt.name, got, ok, tt.want, tt.resolved)
			}
		})
	}
}

func TestDraftEditing(t *testing.T) {
	current := New([]string{"Dr. Wong"}, []string{"Susan"})
	d := NewDraft(current, map[models.Role][]string{models.RoleNurse: {"Maria", "Susan"}})

	if got := d.Candidates(models.RoleNurse); !reflect.DeepEqual(got, []string{"Maria", "Susan"}) {
		t.Errorf("Candidates() = %q", got)
	}

	if !d.Add(models.RoleNurse, " Maria ") {
		t.Error("Add(Maria) should succeed")
	}
	if d.Add(models.RoleNurse, "Maria") {
		t.Error("duplicate Add should be ignored")
	}
	if d.Add(models.RoleNurse, "  ") {
		t.Error("blank Add should be ignored")
	}
	if !d.Remove(models.RoleNurse, "Susan") {
		t.Error("Remove(Susan) should succeed")
	}
	d.Toggle(models.RoleDoctor, "Dr. Wong")
	d.Toggle(models.RoleDoctor, "Dr. Patel")

	got := d.Roster()
	if !reflect.DeepEqual(got.Nurses(), []string{"Maria"}) || !reflect.DeepEqual(got.Doctors(), []string{"Dr. Patel"}) {
		t.Errorf("draft roster = %v / %v", got.Doctors(), got.Nurses())
	}
	if !current.Has(models.RoleNurse, "Susan") {
		t.Error("editing a draft must not change the committed roster")
	}
	if !contains(d.Candidates(models.RoleDoctor), "Dr. Patel") {
		t.Error("added names become candidates")
	}
}

func TestDraftSelect(t *testing.T) {
	d := NewDraft(New([]string{"Dr. Wong"}, []string{"Susan", "Maria"}), nil)
	d.Select(models.RoleNurse, []string{"Priya", " ", "Priya", "Maria"})

	if got := d.Selected(models.RoleNurse); !reflect.DeepEqual(got, []string{"Priya", "Maria"}) {
		t.Errorf("Selected(nurse) = %q", got)
	}
	if !d.IsSelected(models.RoleDoctor, "Dr. Wong") {
		t.Error("Select must leave the other role alone")
	}
	if !contains(d.Candidates(models.RoleNurse), "Susan") {
		t.Error("deselected names stay candidates")
	}
}

func TestDraftValidateEmpty(t *testing.T) {
	d := NewDraft(New([]string{"Dr. Wong"}, nil), nil)
	d.Remove(models.RoleDoctor, "Dr. Wong")
	if err := d.Validate(); err != ErrEmptyRoster {
		t.Errorf("Validate() = %v, want %v", err, ErrEmptyRoster)
	}
}

func TestCrewAndEqual(t *testing.T) {
	r := New([]string{"A"}, []string{"B"})
	c := r.Crew("p1")
	if c.PatientID != "p1" || c.Doctors[0] != "A" || c.Nurses[0] != "B" {
		t.Errorf("Crew() = %+v", c)
	}
	if !r.Equal(FromCrew(c)) {
		t.Error("round trip through Crew should be equal")
	}
	if r.Equal(New([]string{"A"}, nil)) {
		t.Error("different rosters compared equal")
	}
}
