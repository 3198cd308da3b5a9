package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	"github.com/noah-isme/academy-scheduler/internal/models"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
)

var (
	// Version is set at build time
	Version = "dev"
)

type generator interface {
	Generate(ctx context.Context, req dto.GenerateLessonsRequest) (*dto.GenerateResult, error)
}

type lessonManager interface {
	Create(ctx context.Context, req dto.CreateLessonRequest) (*models.Lesson, error)
	ListByClassGroup(ctx context.Context, classGroupID string) ([]models.Lesson, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context, classGroupID string) (*dto.ClearLessonsResponse, error)
}

type availabilityCache interface {
	InvalidateTrainer(ctx context.Context, trainerID string) (int64, error)
}

// services is resolved lazily so help and version never touch the database.
// availability is nil when the cache is disabled. sharedLock is set when
// generation leases live in Redis and are therefore seen by the API server too.
type services struct {
	generator    generator
	lessons      lessonManager
	availability availabilityCache
	sharedLock   bool
}

// App holds the CLI state.
type App struct {
	root    *cobra.Command
	connect func(ctx context.Context) (*services, error)
	svc     *services
}

// NewApp builds the command tree. connect is called once before any command that needs the store.
func NewApp(connect func(ctx context.Context) (*services, error)) *App {
	a := &App{connect: connect}

	a.root = &cobra.Command{
		Use:           "schedulerctl",
		Short:         "Operate the academy lesson scheduler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	lessons := &cobra.Command{Use: "lessons", Short: "Manage lessons of a class group"}
	lessons.AddCommand(a.listCmd(), a.clearCmd(), a.createCmd(), a.deleteCmd())

	availability := &cobra.Command{Use: "availability", Short: "Manage cached trainer availability"}
	availability.AddCommand(a.flushCmd())

	a.root.AddCommand(a.versionCmd(), a.generateCmd(), lessons, availability)
	return a
}

// Execute runs the CLI.
func (a *App) Execute(ctx context.Context, args []string, out io.Writer) error {
	a.root.SetArgs(args)
	a.root.SetOut(out)
	a.root.SetErr(out)
	return a.root.ExecuteContext(ctx)
}

func (a *App) resolve(ctx context.Context) (*services, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	svc, err := a.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	a.svc = svc
	return svc, nil
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "schedulerctl %s\n", Version)
		},
	}
}

func (a *App) generateCmd() *cobra.Command {
	var (
		startDate string
		regime    string
		localLock bool
	)

	cmd := &cobra.Command{
		Use:   "generate [class-group-id]",
		Short: "Generate lessons until every module reaches its planned hours",
		Long: `Generate lessons until every module reaches its planned hours.

Runs for one class group are serialised through a Redis lease shared with the
API server. Without Redis (ENABLE_REDIS=false) the lease only covers this
process, so generate refuses to run unless --local-lock is passed.`,
		Example: `  schedulerctl generate 7c1e... --start=2025-01-06
  schedulerctl generate 7c1e... --start=2025-09-01 --regime=evening`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			if !svc.sharedLock && !localLock {
				return errors.New("generate needs Redis (ENABLE_REDIS=true) to share the class group lease with the API server; pass --local-lock if no other process generates")
			}
			result, err := svc.generator.Generate(cmd.Context(), dto.GenerateLessonsRequest{
				ClassGroupID: args[0],
				StartDate:    startDate,
				Regime:       regime,
			})
			if result != nil {
				printResult(cmd.OutOrStdout(), result)
			}
			if result != nil && errors.Is(err, appErrors.ErrRunLimitExceeded) {
				return fmt.Errorf("run stopped after %d days: %w", result.DaysIterated, err)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&startDate, "start", time.Now().Format("2006-01-02"), "First day to consider (YYYY-MM-DD)")
	cmd.Flags().StringVar(&regime, "regime", string(models.RegimeDay), "Daily regime: day or evening")
	cmd.Flags().BoolVar(&localLock, "local-lock", false, "Run with an in-process lease when Redis is disabled")
	return cmd
}

func (a *App) createCmd() *cobra.Command {
	var module, start, end string

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Book a lesson manually",
		Example: `  schedulerctl lessons create --module=m1 --start=2025-01-06T08:00:00Z --end=2025-01-06T11:00:00Z`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			startsAt, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("parsing --start: %w", err)
			}
			endsAt, err := time.Parse(time.RFC3339, end)
			if err != nil {
				return fmt.Errorf("parsing --end: %w", err)
			}
			svc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			lesson, err := svc.lessons.Create(cmd.Context(), dto.CreateLessonRequest{
				ModuleAssignmentID: module,
				Start:              startsAt,
				End:                endsAt,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created lesson %s %s\n", lesson.ID, formatSpan(*lesson))
			return nil
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "Module assignment ID (required)")
	cmd.Flags().StringVar(&start, "start", "", "Start time, RFC3339 (required)")
	cmd.Flags().StringVar(&end, "end", "", "End time, RFC3339 (required)")
	_ = cmd.MarkFlagRequired("module")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func (a *App) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [class-group-id]",
		Short: "List lessons of a class group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			lessons, err := svc.lessons.ListByClassGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(lessons) == 0 {
				fmt.Fprintln(out, "No lessons found.")
				return nil
			}

			var currentDate string
			for _, l := range lessons {
				date := l.StartsAt.Format("2006-01-02")
				if date != currentDate {
					if currentDate != "" {
						fmt.Fprintln(out)
					}
					fmt.Fprintf(out, "=== %s ===\n", date)
					currentDate = date
				}
				fmt.Fprintf(out, "  %s %s %s\n", formatSpan(l), l.ModuleAssignmentID, l.ID)
			}
			return nil
		},
	}
}

func (a *App) clearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear [class-group-id]",
		Short: "Delete every lesson of a class group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear lessons without --yes")
			}
			svc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			result, err := svc.lessons.Clear(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d lessons from %s\n", result.Deleted, result.ClassGroupID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

func (a *App) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [lesson-id]",
		Short: "Delete a single lesson",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			if err := svc.lessons.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted lesson %s\n", args[0])
			return nil
		},
	}
}

func (a *App) flushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush [trainer-id]",
		Short: "Drop cached availability for a trainer after editing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.resolve(cmd.Context())
			if err != nil {
				return err
			}
			if svc.availability == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Availability cache disabled, nothing to flush.")
				return nil
			}
			n, err := svc.availability.InvalidateTrainer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Flushed %d cached lookups for %s\n", n, args[0])
			return nil
		},
	}
}

func printResult(out io.Writer, r *dto.GenerateResult) {
	fmt.Fprintf(out, "Class group %s (%s) from %s\n", r.ClassGroupID, r.Regime, r.StartDate)
	fmt.Fprintf(out, "  lessons created: %d\n", r.LessonsCreated)
	fmt.Fprintf(out, "  days: %d iterated, %d scheduled, %d skipped\n", r.DaysIterated, r.DaysScheduled, r.DaysSkipped)
	if r.LastDate != "" {
		fmt.Fprintf(out, "  last lesson day: %s\n", r.LastDate)
	}
	if r.Completed {
		fmt.Fprintln(out, "  all modules reached their planned hours")
		return
	}
	for id, hours := range r.Remaining {
		fmt.Fprintf(out, "  %s: %.2f hours left\n", id, hours)
	}
}

func formatSpan(l models.Lesson) string {
	return fmt.Sprintf("%s-%s", l.StartsAt.Format("2006-01-02 15:04"), l.EndsAt.Format("15:04"))
}
