// Package app provides the main application setup and dependency injection.
package app

import (
	"yt-m3u8-go/pkg/appctx"
	"yt-m3u8-go/pkg/config"
	"yt-m3u8-go/pkg/cookies"
	"yt-m3u8-go/pkg/handlers/api"
	"yt-m3u8-go/pkg/httpclient"
	"yt-m3u8-go/pkg/logging"
	"yt-m3u8-go/pkg/server"
	"yt-m3u8-go/pkg/services"
	"yt-m3u8-go/pkg/ytdlp"
)

// App is the main application container.
type App struct {
	Ctx        *appctx.Context
	Server     *server.Server
	HTTPClient *httpclient.Client
}

// New creates and initializes the application.
func New() (*App, error) {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logging.New(cfg.LogLevel, cfg.LogJSON, nil)
	log.Info("initializing yt-m3u8", "port", cfg.Port, "log_level", cfg.LogLevel)

	// Create application context
	ctx := appctx.New(cfg, log)

	// Create HTTP client for origin fetches
	httpClient := httpclient.New(cfg, log)

	// Cookie store backs extraction for restricted videos
	cookieStore := cookies.New(cfg.CookiesDir, cfg.CookiesFile, log)
	ctx.WithCookies(cookieStore)
	if path := cookieStore.Path(); path != "" {
		log.Info("cookies loaded", "path", path)
	}

	// yt-dlp is the extraction collaborator; all origin URL resolution
	// goes through it
	var proxy string
	if len(cfg.GlobalProxies) > 0 {
		proxy = cfg.GlobalProxies[0]
	}
	extractor := ytdlp.New(cfg.YTDLPPath, cfg.ExtractTimeout, proxy, cookieStore, log)
	ctx.WithExtractor(extractor)

	// Wire request-serving services
	links := services.NewLinks(cfg.BaseURL, cfg.APIKey)
	ctx.WithServices(
		services.NewPlaylistService(extractor, httpClient, links, cfg.ManifestTimeout, log),
		services.NewSegmentService(extractor, httpClient, cfg.ManifestTimeout, cfg.RelayTimeout, log),
		services.NewRelayService(httpClient, links, cfg.AllowedHosts, cfg.RelayTimeout, log),
	)

	// Create HTTP server
	srv := server.New(cfg, log)

	// Create API handlers
	handlers := api.NewHandlers(ctx)
	handlers.RegisterRoutes(srv.Router())

	return &App{
		Ctx:        ctx,
		Server:     srv,
		HTTPClient: httpClient,
	}, nil
}

// Run starts the application.
func (a *App) Run() error {
	a.Ctx.Log.Info("starting yt-m3u8 server", "port", a.Ctx.Config.Port)
	return a.Server.Start()
}
