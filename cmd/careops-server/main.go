package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/careops/careops/internal/config"
	"github.com/careops/careops/internal/domain/organization"
	"github.com/careops/careops/internal/domain/patient"
	"github.com/careops/careops/internal/domain/program"
	"github.com/careops/careops/internal/domain/suggestion"
	"github.com/careops/careops/internal/platform/db"
	"github.com/careops/careops/internal/platform/middleware"
)

// PatientSourceAdapter adapts the patient repository to the
// suggestion.PatientSource interface, avoiding circular imports between the
// patient and suggestion packages.
type PatientSourceAdapter struct {
	repo patient.Repository
}

func NewPatientSourceAdapter(repo patient.Repository) *PatientSourceAdapter {
	return &PatientSourceAdapter{repo: repo}
}

// OrganizationID implements suggestion.PatientSource.
func (a *PatientSourceAdapter) OrganizationID(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	p, err := a.repo.GetByID(ctx, patientID)
	if err != nil {
		return uuid.Nil, err
	}
	if p == nil {
		return uuid.Nil, nil
	}
	return p.OrganizationID, nil
}

// Diagnoses implements suggestion.PatientSource.
func (a *PatientSourceAdapter) Diagnoses(ctx context.Context, patientID uuid.UUID) ([]suggestion.DiagnosisCode, error) {
	items, err := a.repo.ListDiagnoses(ctx, patientID)
	if err != nil {
		return nil, err
	}
	var out []suggestion.DiagnosisCode
	for _, d := range items {
		out = append(out, suggestion.DiagnosisCode{
			Code:         d.Code,
			CodingSystem: d.CodingSystem,
			Display:      d.Display,
		})
	}
	return out, nil
}

// EnrollmentSourceAdapter adapts the enrollment repository to the
// suggestion.EnrollmentSource interface.
type EnrollmentSourceAdapter struct {
	repo program.EnrollmentRepository
}

func NewEnrollmentSourceAdapter(repo program.EnrollmentRepository) *EnrollmentSourceAdapter {
	return &EnrollmentSourceAdapter{repo: repo}
}

// ActiveForPatient implements suggestion.EnrollmentSource.
func (a *EnrollmentSourceAdapter) ActiveForPatient(ctx context.Context, patientID uuid.UUID) ([]suggestion.ActiveEnrollment, error) {
	items, err := a.repo.ListActiveForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	var out []suggestion.ActiveEnrollment
	for _, e := range items {
		enr := suggestion.ActiveEnrollment{ID: e.ID, PresetName: e.PresetName}
		for _, d := range e.PresetDiagnoses {
			enr.Diagnoses = append(enr.Diagnoses, suggestion.CriteriaCode{
				Code:         d.Code,
				CodingSystem: d.CodingSystem,
				Display:      d.Display,
			})
		}
		out = append(out, enr)
	}
	return out, nil
}

// FindSameDay implements suggestion.EnrollmentSource.
func (a *EnrollmentSourceAdapter) FindSameDay(ctx context.Context, patientID, careProgramID, billingProgramID uuid.UUID, day time.Time) (*suggestion.EnrollmentRef, error) {
	e, err := a.repo.FindSameDay(ctx, patientID, careProgramID, &billingProgramID, day)
	if err != nil || e == nil {
		return nil, err
	}
	return &suggestion.EnrollmentRef{ID: e.ID, BillingProgramID: e.BillingProgramID}, nil
}

// Create implements suggestion.EnrollmentSource.
func (a *EnrollmentSourceAdapter) Create(ctx context.Context, enr suggestion.NewEnrollment) (uuid.UUID, error) {
	bpID := enr.BillingProgramID
	e := &program.Enrollment{
		PatientID:         enr.PatientID,
		CareProgramID:     enr.CareProgramID,
		BillingProgramID:  &bpID,
		ConditionPresetID: enr.ConditionPresetID,
		ClinicianID:       enr.ClinicianID,
		Status:            program.EnrollmentActive,
		StartDate:         enr.StartDate,
	}
	if err := a.repo.Create(ctx, e); err != nil {
		return uuid.Nil, err
	}
	return e.ID, nil
}

// LinkBillingProgram implements suggestion.EnrollmentSource.
func (a *EnrollmentSourceAdapter) LinkBillingProgram(ctx context.Context, enrollmentID, billingProgramID uuid.UUID) error {
	return a.repo.LinkBillingProgram(ctx, enrollmentID, billingProgramID)
}

// BillingProgramSourceAdapter adapts the billing-program repository to the
// suggestion.BillingProgramSource interface.
type BillingProgramSourceAdapter struct {
	repo program.BillingProgramRepository
}

func NewBillingProgramSourceAdapter(repo program.BillingProgramRepository) *BillingProgramSourceAdapter {
	return &BillingProgramSourceAdapter{repo: repo}
}

// ActiveByCode implements suggestion.BillingProgramSource.
func (a *BillingProgramSourceAdapter) ActiveByCode(ctx context.Context, code string) (*suggestion.BillingProgramRef, error) {
	bp, err := a.repo.ActiveByCode(ctx, code)
	if err != nil || bp == nil {
		return nil, err
	}
	return &suggestion.BillingProgramRef{ID: bp.ID, Code: bp.Code, ProgramType: bp.ProgramType}, nil
}

// ConditionPresetSourceAdapter adapts the condition-preset repository to the
// suggestion.ConditionPresetSource interface.
type ConditionPresetSourceAdapter struct {
	repo program.ConditionPresetRepository
}

func NewConditionPresetSourceAdapter(repo program.ConditionPresetRepository) *ConditionPresetSourceAdapter {
	return &ConditionPresetSourceAdapter{repo: repo}
}

func presetRef(p *program.ConditionPreset) *suggestion.PresetRef {
	if p == nil {
		return nil
	}
	return &suggestion.PresetRef{ID: p.ID, Name: p.Name, OrganizationID: p.OrganizationID}
}

// ForOrganization implements suggestion.ConditionPresetSource.
func (a *ConditionPresetSourceAdapter) ForOrganization(ctx context.Context, orgID uuid.UUID, name string) (*suggestion.PresetRef, error) {
	p, err := a.repo.FindForOrganization(ctx, orgID, name)
	if err != nil {
		return nil, err
	}
	return presetRef(p), nil
}

// Standardized implements suggestion.ConditionPresetSource.
func (a *ConditionPresetSourceAdapter) Standardized(ctx context.Context, name string) (*suggestion.PresetRef, error) {
	p, err := a.repo.FindStandardized(ctx, name)
	if err != nil {
		return nil, err
	}
	return presetRef(p), nil
}

// CloneForOrganization implements suggestion.ConditionPresetSource.
func (a *ConditionPresetSourceAdapter) CloneForOrganization(ctx context.Context, presetID, orgID uuid.UUID) (*suggestion.PresetRef, error) {
	p, err := a.repo.Clone(ctx, presetID, orgID)
	if err != nil {
		return nil, err
	}
	return presetRef(p), nil
}

// CareProgramSourceAdapter adapts the care-program repository to the
// suggestion.CareProgramSource interface.
type CareProgramSourceAdapter struct {
	repo program.CareProgramRepository
}

func NewCareProgramSourceAdapter(repo program.CareProgramRepository) *CareProgramSourceAdapter {
	return &CareProgramSourceAdapter{repo: repo}
}

// ActiveForOrganization implements suggestion.CareProgramSource.
func (a *CareProgramSourceAdapter) ActiveForOrganization(ctx context.Context, orgID uuid.UUID) (*suggestion.CareProgramRef, error) {
	cp, err := a.repo.ActiveForOrganization(ctx, orgID)
	if err != nil || cp == nil {
		return nil, err
	}
	return &suggestion.CareProgramRef{ID: cp.ID, Name: cp.Name}, nil
}

// OrgSettingsAdapter adapts the organization repository to the
// suggestion.OrganizationSettingsSource interface.
type OrgSettingsAdapter struct {
	repo organization.Repository
}

func NewOrgSettingsAdapter(repo organization.Repository) *OrgSettingsAdapter {
	return &OrgSettingsAdapter{repo: repo}
}

// SupportedBillingPrograms implements suggestion.OrganizationSettingsSource.
func (a *OrgSettingsAdapter) SupportedBillingPrograms(ctx context.Context, orgID uuid.UUID) ([]string, error) {
	o, err := a.repo.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, nil
	}
	return o.SupportedBillingPrograms, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "careops-server",
		Short: "CareOps billing suggestion API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Organization-ID"},
	}))

	// Health check
	e.GET("/health", db.HealthHandler(pool))

	// API group. Every route is scoped to the caller's organization.
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.OrgContext())

	// -- Register Domain Handlers --

	// Organization domain
	orgRepo := organization.NewRepoPG(pool)
	orgSvc := organization.NewService(orgRepo)
	orgHandler := organization.NewHandler(orgSvc)
	orgHandler.RegisterRoutes(apiV1)

	// Patient domain
	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo)
	patientHandler := patient.NewHandler(patientSvc)
	patientHandler.RegisterRoutes(apiV1)

	// Program domain
	billingProgramRepo := program.NewBillingProgramRepoPG(pool)
	presetRepo := program.NewConditionPresetRepoPG(pool)
	careProgramRepo := program.NewCareProgramRepoPG(pool)
	enrollmentRepo := program.NewEnrollmentRepoPG(pool)
	programSvc := program.NewService(billingProgramRepo, presetRepo, careProgramRepo, enrollmentRepo)
	programHandler := program.NewHandler(programSvc)
	programHandler.RegisterRoutes(apiV1)

	// Suggestion domain
	templateRepo := suggestion.NewTemplateRepoPG(pool)
	suggestionRepo := suggestion.NewSuggestionRepoPG(pool)
	suggestionSvc := suggestion.NewService(
		templateRepo,
		suggestionRepo,
		NewPatientSourceAdapter(patientRepo),
		NewEnrollmentSourceAdapter(enrollmentRepo),
		NewBillingProgramSourceAdapter(billingProgramRepo),
		NewConditionPresetSourceAdapter(presetRepo),
		NewCareProgramSourceAdapter(careProgramRepo),
		NewOrgSettingsAdapter(orgRepo),
		logger,
	)
	suggestionSvc.SetDefaults(cfg.SuggestionMinScore, cfg.SuggestionMaxResults)
	suggestionHandler := suggestion.NewHandler(suggestionSvc)
	suggestionHandler.RegisterRoutes(apiV1)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
