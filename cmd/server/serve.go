package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/incal-auth/auth"
	"github.com/jrsteele09/incal-auth/clients"
	"github.com/jrsteele09/incal-auth/clients/staticrepo"
	"github.com/jrsteele09/incal-auth/consent"
	"github.com/jrsteele09/incal-auth/internal/config"
	"github.com/jrsteele09/incal-auth/server"
	"github.com/jrsteele09/incal-auth/sessions"
	"github.com/jrsteele09/incal-auth/sessions/redisrepo"
	"github.com/jrsteele09/incal-auth/token"
	"github.com/jrsteele09/incal-auth/token/jwt"
	"github.com/jrsteele09/incal-auth/token/memstore"
	"github.com/jrsteele09/incal-auth/token/redisstore"
	"github.com/jrsteele09/incal-auth/users"
	"github.com/jrsteele09/incal-auth/users/memrepo"
	"github.com/jrsteele09/incal-auth/users/postgres"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	janitorInterval = time.Minute
	shutdownTimeout = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the authorization server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	c, err := config.Load(envFile)
	if err != nil {
		return err
	}
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := clientRegistry(c)
	if err != nil {
		return err
	}
	stores, sessionRepo, closeStores, err := stateStores(ctx, c)
	if err != nil {
		return err
	}
	defer closeStores()

	userRepo, inviteRepo, closeUsers, err := userRepos(ctx, c)
	if err != nil {
		return err
	}
	defer closeUsers()

	hasher, err := users.NewPasswordHasher(c.GetSaltRounds())
	if err != nil {
		return err
	}
	userService, err := users.NewService(userRepo, inviteRepo, hasher)
	if err != nil {
		return err
	}

	authOptions, err := authorizationOptions(c)
	if err != nil {
		return err
	}
	grants, err := auth.NewAuthorizationService(registry, stores, authOptions...)
	if err != nil {
		return err
	}
	flow, err := consent.NewFlow(registry, grants, userService,
		sessionRepo,
		consent.WithCSRFTTL(c.GetCSRFTTL()),
	)
	if err != nil {
		return err
	}

	handler, err := server.New(c, grants, flow, userService)
	if err != nil {
		return err
	}
	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	return shutdown(httpServer)
}

func clientRegistry(c config.Config) (*clients.Registry, error) {
	if path := c.GetClientsFile(); path != "" {
		repo, err := staticrepo.LoadFile(path)
		if err != nil {
			return nil, err
		}
		log.Info().Str("file", path).Msg("clients loaded")
		return clients.NewRegistry(repo), nil
	}
	repo, err := staticrepo.New(clients.DefaultClients(c.GetServerURI(), c.GetSleepClientSecret(), c.GetSleepRedirectURI())...)
	if err != nil {
		return nil, err
	}
	return clients.NewRegistry(repo), nil
}

// stateStores builds the code and token stores and the consent session repo
// for the configured backend. With redis both share one client.
func stateStores(ctx context.Context, c config.Config) (token.Stores, sessions.Repo, func(), error) {
	if c.GetTokenStore() == config.TokenStoreRedis {
		client, err := redisstore.Connect(ctx, c.GetRedisURL())
		if err != nil {
			return token.Stores{}, nil, nil, err
		}
		log.Info().Msg("token and session store: redis")
		return redisstore.NewStores(client), redisrepo.New(client, c.GetMaxSessionAge()), func() { _ = client.Close() }, nil
	}

	codes := memstore.New[*token.AuthorizationCode]()
	access := memstore.New[*token.AccessToken]()
	refresh := memstore.New[*token.RefreshToken]()
	codes.StartJanitor(ctx, janitorInterval)
	access.StartJanitor(ctx, janitorInterval)
	refresh.StartJanitor(ctx, janitorInterval)
	sessionRepo := sessions.NewInMemoryRepo(c.GetMaxSessionAge())
	sessionRepo.StartJanitor(ctx, janitorInterval)
	log.Info().Msg("token and session store: memory")
	return token.Stores{Codes: codes, Access: access, Refresh: refresh}, sessionRepo, func() {}, nil
}

func userRepos(ctx context.Context, c config.Config) (users.UserRepo, users.InviteRepo, func(), error) {
	dsn := c.GetDatabaseURL()
	if dsn == "" {
		log.Warn().Msg("DATABASE_URL not set, members are kept in memory")
		repo := memrepo.New()
		return repo, repo, func() {}, nil
	}

	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := postgres.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}
	store := postgres.New(db)
	return store, store, func() { _ = db.Close() }, nil
}

func authorizationOptions(c config.Config) ([]auth.AuthorizationServiceOption, error) {
	opts := []auth.AuthorizationServiceOption{
		auth.WithSettings(auth.Settings{
			AuthCodeTTL:        c.GetAuthCodeTTL(),
			AccessTokenTTL:     c.GetDefaultAccessTokenTTL(),
			RefreshTokenTTL:    c.GetDefaultRefreshTokenTTL(),
			CodeLength:         c.GetCodeGenerationLength(),
			RefreshTokenLength: c.GetRefreshTokenLength(),
		}),
	}
	if c.GetTokenFormat() == config.TokenFormatJWT {
		signer, err := jwt.NewHMACSigner(c.GetJWTSecret())
		if err != nil {
			return nil, errors.Wrap(err, "[authorizationOptions] jwt signer")
		}
		opts = append(opts, auth.WithAccessTokenGenerator(jwt.NewGenerator(signer, c.GetServerURI())))
	}
	return opts, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server.ListenAndServe")
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	log.Info().Msg("Server stopped")
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
