package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/player"
	"github.com/desertthunder/mixtape/internal/queue"
	"github.com/desertthunder/mixtape/internal/repositories"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/session"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Services are built lazily from the config so commands that need no credentials run without them.
type Runner struct {
	config      *shared.Config
	logger      *log.Logger
	output      io.Writer
	httpClient  *http.Client
	openBrowser func(string) error
	clipboard   func(string) error

	db       *sql.DB
	spotify  *services.SpotifyService
	fetchers services.Fetchers
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	Logger      *log.Logger
	Output      io.Writer
	HTTPClient  *http.Client
	OpenBrowser func(string) error
	Clipboard   func(string) error
	DB          *sql.DB
	Fetchers    services.Fetchers
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
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.Clipboard == nil {
		opts.Clipboard = writeClipboard
	}

	return &Runner{
		config:      opts.Config,
		logger:      opts.Logger,
		output:      opts.Output,
		httpClient:  opts.HTTPClient,
		openBrowser: opts.OpenBrowser,
		clipboard:   opts.Clipboard,
		db:          opts.DB,
		fetchers:    opts.Fetchers,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, logoutCommand, playCommand, queueCommand, shareCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. with a file logger while the terminal player owns the screen.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Configure loads the config file named by --config and applies environment overrides. Runs before every command.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := shared.LoadEnvFiles(".env", ".env.local"); err != nil {
		r.logger.Warn("failed to load env file", "error", err)
	}

	config, err := shared.ResolveConfig(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	r.config = config

	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// Close releases the database when a command opened it.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

func (r *Runner) spotifyService() (*services.SpotifyService, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}
	if !r.config.Credentials.Spotify.Configured() {
		return nil, fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}

	svc, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map(),
		services.WithSpotifyHTTPClient(r.httpClient),
		services.WithSpotifyRateLimit(r.config.Player.RequestsPerSecond),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}
	r.spotify = svc
	return svc, nil
}

// session returns the Spotify session persisted in the cookies table.
func (r *Runner) session() (*session.Session, error) {
	svc, err := r.spotifyService()
	if err != nil {
		return nil, err
	}
	db, err := r.database()
	if err != nil {
		return nil, err
	}

	refresher := session.NewOAuthRefresher(svc.OAuthConfig())
	refresher.HTTPClient = r.httpClient
	return session.New(repositories.NewCookieRepository(db), refresher,
		session.WithLogger(shared.WithLogger(r.logger, "component", "session")),
	), nil
}

// loggedIn returns the session when it holds a refresh token, nil otherwise.
func (r *Runner) loggedIn(ctx context.Context) *session.Session {
	s, err := r.session()
	if err != nil {
		r.logger.Debug("spotify session unavailable", "error", err)
		return nil
	}

	state, err := s.State(ctx)
	if err != nil {
		r.logger.Warn("failed to read stored credentials", "error", err)
		return nil
	}
	if state == session.NoSession {
		return nil
	}
	return s
}

// metadataFetchers builds the fetcher for every configured provider. Spotify uses the user session when
// logged in and client credentials otherwise.
func (r *Runner) metadataFetchers(ctx context.Context) (services.Fetchers, error) {
	if r.fetchers != nil {
		return r.fetchers, nil
	}

	var fetchers []services.Fetcher
	if key := r.config.Credentials.YouTube.APIKey; key != "" {
		yt, err := services.NewYouTubeService(ctx, key,
			services.WithYouTubeHTTPClient(r.httpClient),
			services.WithYouTubeRateLimit(r.config.Player.RequestsPerSecond),
		)
		if err != nil {
			return nil, err
		}
		fetchers = append(fetchers, yt)
	}

	if svc, err := r.spotifyService(); err == nil {
		if s := r.loggedIn(ctx); s != nil {
			svc.UseTokenSource(s.TokenSource(ctx))
		}
		fetchers = append(fetchers, svc)
	} else {
		r.logger.Debug("spotify metadata disabled", "error", err)
	}

	if len(fetchers) == 0 {
		return nil, fmt.Errorf("%w: configure a YouTube API key or Spotify client credentials", shared.ErrMissingCredentials)
	}
	r.fetchers = services.NewFetchers(fetchers...)
	return r.fetchers, nil
}

func (r *Runner) loader(ctx context.Context) (*tasks.Loader, error) {
	fetchers, err := r.metadataFetchers(ctx)
	if err != nil {
		return nil, err
	}

	opts := []tasks.LoaderOption{
		tasks.WithRateLimit(r.config.Player.RequestsPerSecond),
		tasks.WithLogger(shared.WithLogger(r.logger, "component", "loader")),
	}
	if db, err := r.database(); err == nil {
		opts = append(opts, tasks.WithCache(repositories.NewMediaInfoRepository(db)))
	} else {
		r.logger.Warn("metadata cache disabled", "error", err)
	}
	return tasks.NewLoader(fetchers, opts...), nil
}

// adapters builds the provider players for store. YouTube plays on the simulated video player; Spotify
// drives the configured Connect device and is only available with a user session.
func (r *Runner) adapters(ctx context.Context, store *queue.Store) *player.Adapters {
	cfg := r.config.Player
	playerOpts := []player.Option{player.WithReadyTimeout(cfg.ReadyTimeout())}

	video := player.NewSimVideoPlayer(player.WithDurations(func(videoID string) time.Duration {
		info, _ := store.State().MediaInfo.Get(models.MediaID{Provider: models.ProviderYouTube, ID: videoID})
		return time.Duration(info.DurationMS) * time.Millisecond
	}))
	adapters := []player.Adapter{player.NewYouTubeAdapter(video, playerOpts...)}

	s := r.loggedIn(ctx)
	if s == nil {
		r.logger.Warn("spotify playback disabled, run `mixtape auth login`")
		return player.NewAdapters(adapters...)
	}

	client := spotify.New(oauth2.NewClient(ctx, s.TokenSource(ctx)))
	device := player.NewConnectDevice(client, r.config.Credentials.Spotify.DeviceName)

	starter := session.NewPlayer(s, session.NewWebRemote(session.WithHTTPClient(r.httpClient)), device)
	starter.MaxRetries = cfg.MaxRetries
	starter.RetryDelay = cfg.RetryDelay()
	starter.DeviceWait = cfg.DeviceWait()
	starter.Logger = shared.WithLogger(r.logger, "component", "retry")

	adapters = append(adapters, player.NewSpotifyAdapter(device, starter, playerOpts...))
	return player.NewAdapters(adapters...)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
