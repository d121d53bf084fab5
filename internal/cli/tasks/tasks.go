package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/surgisync/internal/cli"
	"github.com/julianstephens/surgisync/internal/models"
	"github.com/julianstephens/surgisync/internal/synchronizer"
	"github.com/julianstephens/surgisync/internal/validation"
)

type TaskListCmd struct {
	Scope string `help:"Only show this scope (preop|surgery|postop)."`
	Role  string `help:"Only show this role (doctor|nurse)."`
	Staff string `help:"Only show this staff member."`
}

func (c *TaskListCmd) Run(ctx *cli.Context) error {
	var scopes []models.Scope
	if c.Scope != "" {
		sc, err := models.ParseScope(c.Scope)
		if err != nil {
			return err
		}
		scopes = []models.Scope{sc}
	} else {
		scopes = models.Scopes
	}
	roles := models.Roles
	if c.Role != "" {
		r, err := models.ParseRole(c.Role)
		if err != nil {
			return err
		}
		roles = []models.Role{r}
	}

	s, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}
	store := s.Tasks()

	shown := 0
	for _, scope := range scopes {
		header := false
		for _, role := range roles {
			for _, staff := range store.Staff(scope, role) {
				if c.Staff != "" && !strings.EqualFold(staff, c.Staff) {
					continue
				}
				if !header {
					ctx.Printf("%s\n", scope.Label())
					header = true
				}
				ctx.Printf("  %s (%s)\n", staff, role)
				for i, t := range store.Tasks(scope, role, staff) {
					ctx.Printf("    %s\n", cli.FormatTask(i+1, t))
					shown++
				}
			}
		}
		if header {
			ctx.Println()
		}
	}
	if shown == 0 {
		ctx.Println("No tasks found.")
	}
	return nil
}

type TaskAddCmd struct {
	Staff    string `arg:"" help:"Staff member the task is for."`
	Label    string `arg:"" help:"Task label."`
	Scope    string `short:"s" help:"Scope (preop|surgery|postop)." default:"preop"`
	Role     string `short:"r" help:"Role (doctor|nurse). Inferred from the crew when omitted."`
	Status   string `help:"Status (pending|in_progress|completed)." default:"pending"`
	Time     string `short:"t" help:"Time (HH:MM)."`
	Note     string `short:"n" help:"Note."`
	Priority string `short:"p" help:"Priority (Routine|High|Critical)." default:"Routine"`
}

func (c *TaskAddCmd) Run(ctx *cli.Context) error {
	s, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}
	defer s.Wait()

	resolved, err := s.AddTask(validation.Submission{
		Scope:       c.Scope,
		Role:        c.Role,
		CustomStaff: c.Staff,
		Label:       c.Label,
		Status:      c.Status,
		Time:        c.Time,
		Note:        c.Note,
		Priority:    c.Priority,
	})
	if err != nil {
		return err
	}
	n := len(s.Tasks().Tasks(resolved.Scope, resolved.Role, resolved.Staff))
	ctx.Printf("✓ Added task #%d for %s (%s, %s): %s\n", n, resolved.Staff, resolved.Role, resolved.Scope.Label(), resolved.Task.Label)
	return nil
}

// Ref addresses one task by bucket, staff and 1-based number.
type Ref struct {
	Scope string `arg:"" help:"Scope (preop|surgery|postop)."`
	Role  string `arg:"" help:"Role (doctor|nurse)."`
	Staff string `arg:"" help:"Staff member."`
	Index int    `arg:"" help:"Task number as shown by 'task list'."`
}

func (r Ref) ref() (synchronizer.TaskRef, error) {
	return cli.ParseRef(r.Scope, r.Role, r.Staff, r.Index)
}

type TaskEditCmd struct {
	Ref

	Label    *string `help:"New label."`
	Status   *string `help:"New status (pending|in_progress|completed)."`
	Time     *string `help:"New time (HH:MM, empty to clear)."`
	Note     *string `help:"New note."`
	Priority *string `help:"New priority (Routine|High|Critical)."`
	NewStaff *string `name:"new-staff" help:"Reassign to another staff member."`
	NewScope *string `name:"new-scope" help:"Move to another scope."`
	NewRole  *string `name:"new-role" help:"Role of the new staff member."`
}

func (c *TaskEditCmd) Run(ctx *cli.Context) error {
	ref, err := c.ref()
	if err != nil {
		return err
	}
	s, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}
	defer s.Wait()

	tasks := s.Tasks().Tasks(ref.Scope, ref.Role, ref.Staff)
	if ref.Index >= len(tasks) {
		return fmt.Errorf("%w: %s", synchronizer.ErrTaskIndex, ref)
	}
	cur := tasks[ref.Index]

	sub := validation.Submission{
		Scope:       string(ref.Scope),
		Role:        string(ref.Role),
		CustomStaff: ref.Staff,
		Label:       cur.Label,
		Status:      string(cur.Status),
		Time:        cur.Time,
		Note:        cur.Note,
		Priority:    string(cur.Priority),
	}
	if c.Label != nil {
		sub.Label = *c.Label
	}
	if c.Status != nil {
		sub.Status = *c.Status
	}
	if c.Time != nil {
		sub.Time = *c.Time
	}
	if c.Note != nil {
		sub.Note = *c.Note
	}
	if c.Priority != nil {
		sub.Priority = *c.Priority
	}
	if c.NewScope != nil {
		sub.Scope = *c.NewScope
	}
	if c.NewStaff != nil {
		sub.CustomStaff = *c.NewStaff
		// A new owner's role is inferred unless given.
		sub.Role = ""
	}
	if c.NewRole != nil {
		sub.Role = *c.NewRole
	}

	resolved, err := s.EditTask(ref, sub)
	if err != nil {
		return err
	}
	ctx.Printf("✓ Updated task for %s (%s, %s): %s\n", resolved.Staff, resolved.Role, resolved.Scope.Label(), resolved.Task.Label)
	return nil
}

type TaskRemoveCmd struct {
	Ref
}

func (c *TaskRemoveCmd) Run(ctx *cli.Context) error {
	ref, err := c.ref()
	if err != nil {
		return err
	}
	s, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}
	defer s.Wait()

	if err := s.RemoveTask(ref); err != nil {
		return err
	}
	ctx.Printf("✓ Removed task %d from %s\n", c.Index, ref.Staff)
	return nil
}

type TaskStatusCmd struct {
	Ref
	Status string `arg:"" help:"New status (pending|in_progress|completed)."`
}

func (c *TaskStatusCmd) Run(ctx *cli.Context) error {
	ref, err := c.ref()
	if err != nil {
		return err
	}
	status, err := models.ParseTaskStatus(c.Status)
	if err != nil {
		return err
	}
	s, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}
	defer s.Wait()

	if err := s.SetTaskStatus(ref, status); err != nil {
		return err
	}
	ctx.Printf("✓ Task %d for %s is now %s\n", c.Index, ref.Staff, status)
	return nil
}

type TaskMoveCmd struct {
	Ref
	ToScope string `name:"to-scope" help:"Destination scope. Defaults to the current one."`
	ToRole  string `name:"to-role" help:"Destination role. Defaults to the current one."`
	ToStaff string `name:"to-staff" help:"Destination staff member." required:""`
}

func (c *TaskMoveCmd) Run(ctx *cli.Context) error {
	from, err := c.ref()
	if err != nil {
		return err
	}
	dest := synchronizer.TaskRef{Scope: from.Scope, Role: from.Role, Staff: strings.TrimSpace(c.ToStaff)}
	if c.ToScope != "" {
		if dest.Scope, err = models.ParseScope(c.ToScope); err != nil {
			return err
		}
	}
	if c.ToRole != "" {
		if dest.Role, err = models.ParseRole(c.ToRole); err != nil {
			return err
		}
	}

	s, err := ctx.Sync(context.Background())
	if err != nil {
		return err
	}
	defer s.Wait()

	if err := s.MoveTask(from, dest); err != nil {
		return err
	}
	ctx.Printf("✓ Moved task %d from %s to %s (%s, %s)\n", c.Index, from.Staff, dest.Staff, dest.Role, dest.Scope.Label())
	return nil
}
