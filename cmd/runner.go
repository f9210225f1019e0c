package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/shelfsync/internal/bookmarks"
	"github.com/desertthunder/shelfsync/internal/playback"
	"github.com/desertthunder/shelfsync/internal/repositories"
	"github.com/desertthunder/shelfsync/internal/services"
	"github.com/desertthunder/shelfsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the runner's logger, used when the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playCommand, sessionCommand, bookmarkCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// app bundles the repositories and services built on one database handle.
// Close releases the handle.
type app struct {
	db          *sql.DB
	connections *repositories.ConnectionRepository
	books       *repositories.BookRepository
	progress    *repositories.ProgressRepository
	bookmarks   *repositories.BookmarkRepository
	state       *repositories.AppStateRepository
	auth        *services.AuthenticationService
}

func (a *app) Close() error {
	return a.db.Close()
}

// openApp opens the configured database and builds the repository and
// authentication layers on it.
func (r *Runner) openApp() (*app, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	connections := repositories.NewConnectionRepository(db)
	state := repositories.NewAppStateRepository(db)

	return &app{
		db:          db,
		connections: connections,
		books:       repositories.NewBookRepository(db),
		progress:    repositories.NewProgressRepository(db),
		bookmarks:   repositories.NewBookmarkRepository(db),
		state:       state,
		auth:        services.NewAuthenticationService(connections, state, r.config.OIDC, r.httpClient, r.logger),
	}, nil
}

// session bundles the authenticated client stack for the active connection.
type session struct {
	*app
	network   *services.NetworkService
	sessions  *services.SessionService
	bookmarkC *services.BookmarkService
	users     *services.UserService
	manager   *playback.SessionManager
	transport *playback.ManualTransport
	queue     *bookmarks.SyncQueue
}

// openSession builds the full client stack for the active connection: the
// credential coordinator, the authenticated network, and the playback and
// bookmark engines on top of it.
func (r *Runner) openSession() (*session, error) {
	a, err := r.openApp()
	if err != nil {
		return nil, err
	}

	conn, err := a.auth.ActiveConnection()
	if err != nil {
		a.Close()
		return nil, err
	}

	coordinator := services.NewCredentialCoordinator(conn.ID, a.connections, a.auth)
	network := services.NewNetworkService(conn.ServerURL, conn.CustomHeaders, coordinator, r.httpClient)

	sessions := services.NewSessionService(network)
	bookmarkService := services.NewBookmarkService(network)
	users := services.NewUserService(network)

	transport := playback.NewManualTransport()
	manager := playback.NewSessionManager(playback.SessionManagerOpts{
		Sessions:          sessions,
		Progress:          a.progress,
		Books:             a.books,
		State:             a.state,
		Transport:         transport,
		Logger:            r.logger,
		InactivityTimeout: time.Duration(r.config.Playback.InactivityTimeoutMinutes) * time.Minute,
		MinSyncListened:   r.config.Sync.MinListenedSeconds,
		MinSyncInterval:   time.Duration(r.config.Sync.MinIntervalSeconds * float64(time.Second)),
		ForceTranscode:    r.config.Playback.ForceTranscode,
	})

	scheduler := playback.NewTimerScheduler(manager.HandleDeferredClose, r.logger)
	manager.SetDeferred(scheduler)

	queue := bookmarks.NewSyncQueue(bookmarks.SyncQueueOpts{
		Store:       a.bookmarks,
		Remote:      bookmarkService,
		Profile:     users,
		Logger:      r.logger,
		SweepPerSec: r.config.Sync.BookmarkSweepPerSec,
	})

	return &session{
		app:       a,
		network:   network,
		sessions:  sessions,
		bookmarkC: bookmarkService,
		users:     users,
		manager:   manager,
		transport: transport,
		queue:     queue,
	}, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
