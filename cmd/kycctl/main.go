package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/twmb/franz-go/pkg/kgo"

	jwttoken "kycflow/internal/jwt_token"
	"kycflow/internal/kyc/approval"
	"kycflow/internal/kyc/documents"
	"kycflow/internal/kyc/models"
	kycservice "kycflow/internal/kyc/service"
	"kycflow/internal/kyc/store"
	"kycflow/internal/platform/config"
	"kycflow/internal/platform/logger"
	"kycflow/internal/platform/postgres"
	audit "kycflow/pkg/platform/audit"
	"kycflow/pkg/platform/audit/consumer"
	auditpostgres "kycflow/pkg/platform/audit/store/postgres"
	"kycflow/pkg/requestcontext"
)

// auditIdleTimeout ends a non-following audit read once the topic is drained.
const auditIdleTimeout = 3 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand(config.FromEnv())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "kycctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(cfg config.Server) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "kycctl",
		Short:        "kycflow operator CLI",
		Long:         `kycctl prepares the application database, issues development tokens and walks an application through onboarding.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newMigrateCmd(cfg),
		newTokenCmd(cfg),
		newDemoCmd(cfg),
		newAuditCmd(cfg),
	)
	return cmd
}

func newMigrateCmd(cfg config.Server) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the application and audit tables in DATABASE_URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := postgres.Open(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := store.Migrate(ctx, db); err != nil {
				return err
			}
			if err := auditpostgres.Migrate(ctx, db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newTokenCmd(cfg config.Server) *cobra.Command {
	var applicant string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an applicant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			id := uuid.New()
			if applicant != "" {
				parsed, err := uuid.Parse(applicant)
				if err != nil {
					return fmt.Errorf("invalid applicant id: %w", err)
				}
				id = parsed
			}
			svc := jwttoken.NewJWTService(cfg.JWTSigningKey, jwttoken.DefaultIssuer, jwttoken.DefaultAudience)
			token, err := svc.GenerateAccessToken(id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&applicant, "applicant", "", "Applicant id (random when empty)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

func newAuditCmd(cfg config.Server) *cobra.Command {
	var application string
	var follow bool
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print the audit trail from KAFKA_AUDIT_TOPIC",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(cfg.Kafka.Brokers) == 0 {
				return fmt.Errorf("KAFKA_BROKERS is not set")
			}
			client, err := kgo.NewClient(
				kgo.SeedBrokers(cfg.Kafka.Brokers...),
				kgo.ClientID(cfg.Kafka.ClientID+"-audit-reader"),
				kgo.ConsumeTopics(cfg.Kafka.AuditTopic),
				kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
			)
			if err != nil {
				return fmt.Errorf("create kafka client: %w", err)
			}
			defer client.Close()

			opts := []consumer.Option{consumer.WithLogger(logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel, "text"))}
			if !follow {
				opts = append(opts, consumer.WithIdleTimeout(auditIdleTimeout))
			}
			out := cmd.OutOrStdout()
			var handle consumer.Handler = func(_ context.Context, e audit.Event) error {
				_, err := fmt.Fprintf(out, "%s %-12s %-28s application=%s step=%s decision=%s\n",
					e.Timestamp.Format(time.RFC3339), e.Category, e.Action, e.ApplicationID, e.Step, e.Decision)
				return err
			}
			if application != "" {
				handle = consumer.ForApplication(application, handle)
			}
			err = consumer.New(client, opts...).Run(cmd.Context(), handle)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&application, "application", "", "Only print events of this application id")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep waiting for new events")
	return cmd
}

func newDemoCmd(cfg config.Server) *cobra.Command {
	var delay time.Duration
	var verbose bool
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run one application from start to approval in memory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.NewWithWriter(io.Discard, cfg.LogLevel, cfg.LogFormat)
			if verbose {
				log = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel, "text")
			}
			return runDemo(cmd.Context(), cmd.OutOrStdout(), log, delay)
		},
	}
	cmd.Flags().DurationVar(&delay, "approval-delay", 2*time.Second, "Delay before the simulated approval")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print service logs to stderr")
	return cmd
}

func runDemo(ctx context.Context, out io.Writer, log *slog.Logger, delay time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := approval.NewTimerScheduler(approval.WithTimerLogger(log))
	svc := kycservice.New(store.NewInMemoryStore(), documents.NewTracker(documents.DefaultLimits()), sched,
		kycservice.WithLogger(log),
		kycservice.WithApprovalDelay(delay),
	)
	go func() { _ = sched.Run(ctx, svc.Approve) }()

	ctx = requestcontext.WithApplicantID(ctx, uuid.New())
	app, err := svc.Start(ctx)
	if err != nil {
		return err
	}
	report := func(label string, app *models.Application) {
		fmt.Fprintf(out, "%-10s status=%s step=%s completion=%d%%\n",
			label, app.Status, app.CurrentStep, app.CompletionPercentage)
	}
	report("started", app)

	if app, err = svc.ApplyPersonalInfo(ctx, app.ID, models.PersonalInfo{
		FirstName:   "Asha",
		LastName:    "Rao",
		DateOfBirth: "1990-04-12",
		Email:       "asha.rao@example.com",
		PANNumber:   "ABCDE1234F",
	}); err != nil {
		return err
	}
	report("personal", app)

	uploads := []struct {
		kind models.DocumentKind
		meta models.FileMeta
	}{
		{models.DocumentIdentityProof, models.FileMeta{Name: "pan.pdf", SizeBytes: 800 << 10, MimeType: "application/pdf"}},
		{models.DocumentAddressProof, models.FileMeta{Name: "utility.jpg", SizeBytes: 1200 << 10, MimeType: "image/jpeg"}},
		{models.DocumentPhoto, models.FileMeta{Name: "selfie.png", SizeBytes: 300 << 10, MimeType: "image/png"}},
	}
	for _, u := range uploads {
		if app, err = svc.RecordDocumentUpload(ctx, app.ID, u.kind, u.meta); err != nil {
			return err
		}
	}
	report("documents", app)

	if app, err = svc.ApplyAddressInfo(ctx, app.ID, models.AddressInfo{
		AddressLine1: "12 MG Road",
		City:         "Pune",
		State:        "Maharashtra",
		Pincode:      "411001",
		Country:      "IN",
	}); err != nil {
		return err
	}
	report("address", app)

	if app, err = svc.Submit(ctx, app.ID); err != nil {
		return err
	}
	report("submitted", app)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(delay + 5*time.Second)
	for app.Status != models.StatusApproved {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("application %s was not approved in time", app.ID)
		case <-ticker.C:
		}
		if app, err = svc.Get(ctx, app.ID); err != nil {
			return err
		}
	}
	report("approved", app)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(app)
}
