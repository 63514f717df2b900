// Package appctx provides the application context that holds all runtime dependencies.
package appctx

import (
	"yt-m3u8-go/pkg/config"
	"yt-m3u8-go/pkg/cookies"
	"yt-m3u8-go/pkg/interfaces"
	"yt-m3u8-go/pkg/logging"
	"yt-m3u8-go/pkg/services"
)

// Context holds all application runtime dependencies.
// Pass this single struct to components instead of individual parameters.
type Context struct {
	Config    *config.Config
	Log       *logging.Logger
	Extractor interfaces.Extractor
	Cookies   *cookies.Store
	Playlists *services.PlaylistService
	Segments  *services.SegmentService
	Relay     *services.RelayService
}

// New creates a new application context.
func New(cfg *config.Config, log *logging.Logger) *Context {
	return &Context{
		Config: cfg,
		Log:    log,
	}
}

// WithExtractor sets the extraction collaborator.
func (c *Context) WithExtractor(e interfaces.Extractor) *Context {
	c.Extractor = e
	return c
}

// WithCookies sets the cookie store.
func (c *Context) WithCookies(s *cookies.Store) *Context {
	c.Cookies = s
	return c
}

// WithServices sets the request-serving services.
func (c *Context) WithServices(p *services.PlaylistService, seg *services.SegmentService, r *services.RelayService) *Context {
	c.Playlists = p
	c.Segments = seg
	c.Relay = r
	return c
}
