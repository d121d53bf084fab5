package crew

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/julianstephens/surgisync/internal/cli/clitest"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/roster"
)

func TestCrewShow(t *testing.T) {
	ctx, out := clitest.New(t, clitest.Seeded())

	if err := (&CrewShowCmd{}).Run(ctx); err != nil {
		t.Fatalf("crew show failed: %v", err)
	}
	for _, want := range []string{"Doctors:", "  - Dr. Wong", "Nurses:", "  - Susan", "  - Maria"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestCrewShowReportsStrayTaskHolders(t *testing.T) {
	fake := clitest.Seeded()
	fake.Crew.Nurses = []string{"Maria"}
	ctx, out := clitest.New(t, fake)

	if err := (&CrewShowCmd{}).Run(ctx); err != nil {
		t.Fatalf("crew show failed: %v", err)
	}
	if !strings.Contains(out.String(), "Crew and task lists disagree") {
		t.Errorf("expected a consistency warning:\n%s", out.String())
	}
}

func TestCrewSetReplacesRoster(t *testing.T) {
	fake := clitest.Seeded()
	ctx, out := clitest.New(t, fake)

	cmd := &CrewSetCmd{Doctors: []string{"Dr. Wong", " Dr. Patel "}, Nurses: []string{"Maria", "Maria"}}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("crew set failed: %v", err)
	}
	if len(fake.CrewWrites) != 1 {
		t.Fatalf("expected one crew write, got %d", len(fake.CrewWrites))
	}
	got := fake.CrewWrites[0]
	if !reflect.DeepEqual(got.Doctors, []string{"Dr. Wong", "Dr. Patel"}) || !reflect.DeepEqual(got.Nurses, []string{"Maria"}) {
		t.Errorf("crew written = %+v", got)
	}
	if !strings.Contains(out.String(), "Crew saved: 2 doctors, 1 nurses") {
		t.Errorf("unexpected output: %s", out.String())
	}
	// Susan left the crew, so her list is cleared on the server.
	if labels := clitest.Labels(fake, models.ScopePreOp, models.RoleNurse, "Susan"); len(labels) != 0 {
		t.Errorf("dropped nurse still has tasks: %v", labels)
	}
}

func TestCrewSetRequiresNames(t *testing.T) {
	ctx, _ := clitest.New(t, clitest.Seeded())
	if err := (&CrewSetCmd{}).Run(ctx); err == nil {
		t.Error("expected an error without names")
	}
}

func TestCrewSetInteractive(t *testing.T) {
	fake := clitest.Seeded()
	ctx, _ := clitest.New(t, fake)

	old := pickCrew
	t.Cleanup(func() { pickCrew = old })
	var candidates []string
	pickCrew = func(d *roster.Draft) error {
		candidates = d.Candidates(models.RoleNurse)
		d.Select(models.RoleNurse, []string{"Susan"})
		return nil
	}

	if err := (&CrewSetCmd{Interactive: true}).Run(ctx); err != nil {
		t.Fatalf("interactive crew set failed: %v", err)
	}
	if len(candidates) == 0 {
		t.Error("picker got no nurse candidates")
	}
	if got := fake.CrewWrites[0].Nurses; !reflect.DeepEqual(got, []string{"Susan"}) {
		t.Errorf("nurses written = %v", got)
	}
}

func TestCrewSetFailureLeavesCrew(t *testing.T) {
	fake := clitest.Seeded()
	fake.SetFail("UpdateCrew", errors.New("backend down"))
	ctx, _ := clitest.New(t, fake)

	if err := (&CrewSetCmd{Nurses: []string{"Maria"}}).Run(ctx); err == nil {
		t.Fatal("expected the save to fail")
	}
	if labels := clitest.Labels(fake, models.ScopePreOp, models.RoleNurse, "Susan"); len(labels) != 2 {
		t.Errorf("a failed save must not clear task lists, got %v", labels)
	}
}
