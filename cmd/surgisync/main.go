package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/surgisync/internal/api"
	"github.com/julianstephens/surgisync/internal/cli"
	"github.com/julianstephens/surgisync/internal/cli/care"
	"github.com/julianstephens/surgisync/internal/cli/cases"
	"github.com/julianstephens/surgisync/internal/cli/crew"
	"github.com/julianstephens/surgisync/internal/cli/plans"
	"github.com/julianstephens/surgisync/internal/cli/suggest"
	"github.com/julianstephens/surgisync/internal/cli/system"
	"github.com/julianstephens/surgisync/internal/cli/tasks"
	"github.com/julianstephens/surgisync/internal/config"
	"github.com/julianstephens/surgisync/internal/constants"
	"github.com/julianstephens/surgisync/internal/errors"
	"github.com/julianstephens/surgisync/internal/logger"
	"github.com/julianstephens/surgisync/internal/metrics"
	"github.com/julianstephens/surgisync/internal/notifier"
	"github.com/julianstephens/surgisync/internal/storage"
	"github.com/julianstephens/surgisync/internal/storage/postgres"
	"github.com/julianstephens/surgisync/internal/storage/sqlite"
)

var CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Config file path." type:"path" default:"~/.config/surgisync/config.yaml"`
	Debug    bool   `help:"Log at debug level and echo logs to stderr."`
	BaseURL  string `name:"base-url" help:"Backend URL, overriding the config." env:"SURGISYNC_BASE_URL"`
	Patient  string `name:"patient-id" help:"Patient ID, overriding the config." env:"SURGISYNC_PATIENT_ID"`
	DoctorID string `name:"doctor-id" help:"Doctor ID, overriding the config." env:"SURGISYNC_DOCTOR_ID"`

	Init     system.InitCmd     `cmd:"" help:"Write the default config and initialize the local cache."`
	Doctor   system.DoctorCmd   `cmd:"" help:"Run health checks and diagnostics."`
	Signup   system.SignupCmd   `cmd:"" help:"Create an account."`
	Login    system.LoginCmd    `cmd:"" help:"Log in and store the session token."`
	Logout   system.LogoutCmd   `cmd:"" help:"End the session and forget the token."`
	Password system.PasswordCmd `cmd:"" help:"Change the account password."`
	Whoami   system.WhoamiCmd   `cmd:"" help:"Show the current account and selection."`
	Tui      system.TuiCmd      `cmd:"" help:"Launch the interactive care panel." default:"1"`

	Cases cases.CaseListCmd `cmd:"" help:"List the doctor's surgeries."`
	Case  struct {
		Status cases.CaseStatusCmd `cmd:"" help:"Update a surgery's status."`
	} `cmd:"" help:"Manage a surgery."`
	Tasks struct {
		List   tasks.TaskListCmd   `cmd:"" help:"List tasks." default:"1"`
		Add    tasks.TaskAddCmd    `cmd:"" help:"Add a task."`
		Edit   tasks.TaskEditCmd   `cmd:"" help:"Edit a task."`
		Remove tasks.TaskRemoveCmd `cmd:"" help:"Remove a task."`
		Status tasks.TaskStatusCmd `cmd:"" help:"Set a task's status."`
		Move   tasks.TaskMoveCmd   `cmd:"" help:"Move a task to another phase or staff member."`
	} `cmd:"" help:"Manage staff tasks."`
	Crew struct {
		Show crew.CrewShowCmd `cmd:"" help:"Show the surgical crew." default:"1"`
		Set  crew.CrewSetCmd  `cmd:"" help:"Replace the surgical crew."`
	} `cmd:"" help:"Manage the surgical crew."`
	Timeline struct {
		Show    care.TimelineShowCmd   `cmd:"" help:"Show the care timeline." default:"1"`
		SetStep care.TimelineSetCmd    `cmd:"" name:"set-step" help:"Set a timeline step's status."`
		Assign  care.TimelineAssignCmd `cmd:"" help:"Turn a timeline step into a task for its owner."`
	} `cmd:"" help:"Manage the care timeline."`
	Vitals struct {
		Latest care.VitalsLatestCmd `cmd:"" help:"Show the latest vitals." default:"1"`
		Watch  care.VitalsWatchCmd  `cmd:"" help:"Record simulated vitals until interrupted."`
	} `cmd:"" help:"Patient vitals."`
	Suggest struct {
		Request  suggest.SuggestRequestCmd  `cmd:"" help:"Request staff and resource availability."`
		Show     suggest.SuggestShowCmd     `cmd:"" help:"Show the last suggestion." default:"1"`
		Apply    suggest.SuggestApplyCmd    `cmd:"" help:"Assign selected suggested staff to a phase."`
		Feedback suggest.SuggestFeedbackCmd `cmd:"" help:"Accept or override the active scenario."`
	} `cmd:"" help:"Scheduling suggestions."`
	Publish plans.PublishCmd `cmd:"" help:"Publish the care plan."`
	Plan    struct {
		Show plans.PlanShowCmd `cmd:"" help:"Show a published plan."`
		List plans.PlanListCmd `cmd:"" help:"List published plans for the patient." default:"1"`
	} `cmd:"" help:"Published care plans."`
}

// offline commands run without an initialized cache.
var offline = map[string]bool{
	"init": true, "doctor": true, "signup": true, "login": true,
	"logout": true, "password": true, "whoami": true,
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Surgical care coordination for doctors and nurses"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)
	command := strings.Fields(ctx.Command())[0]

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.Format(err))
		os.Exit(1)
	}
	cfg.Apply(config.Overrides{BaseURL: CLI.BaseURL, PatientID: CLI.Patient, DoctorID: CLI.DoctorID})

	if err := logger.Init(logger.Config{
		Debug:       CLI.Debug,
		ConfigDir:   cfg.Dir(),
		Interactive: command == "tui",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}
	defer logger.Close()

	token := os.Getenv(constants.TokenEnvVar)
	if token == "" {
		token = system.TokenFor(cfg.BaseURL)
	}
	client := api.NewClient(cfg.BaseURL, api.WithToken(token))

	var cache storage.Provider
	if storage.IsPostgres(cfg.Cache) {
		if err := postgres.ValidateConnString(cfg.Cache); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			fmt.Fprintf(os.Stderr, "       Put the password in PGPASSWORD or ~/.pgpass instead.\n")
			os.Exit(1)
		}
		cache = postgres.New(cfg.Cache)
	} else {
		path, err := config.ExpandHome(cfg.Cache)
		if err != nil {
			errors.Fatal(err)
		}
		cache = sqlite.NewStore(path)
	}
	defer cache.Close()

	if !offline[command] {
		if err := cache.Load(); err != nil {
			fmt.Fprintln(os.Stderr, errors.Format(err))
			os.Exit(1)
		}
	}

	notifiers := notifier.Multi{notifier.Log{}, cli.Stderr{}}
	if cfg.TrayNotifications {
		notifiers = append(notifiers, notifier.NewTray(notifier.LevelWarn))
	}

	session := metrics.Install()
	defer session.Flush(context.Background())

	appCtx := &cli.Context{
		Config:   cfg,
		Client:   client,
		Cache:    cache,
		Notifier: notifiers,
		Metrics:  session.Recorder,
	}

	if err := ctx.Run(appCtx); err != nil {
		logger.Error("Command execution failed", "command", command, "error", err)
		fmt.Fprintln(os.Stderr, errors.Format(err))
		session.Flush(context.Background())
		cache.Close()
		logger.Close()
		os.Exit(1)
	}
}
