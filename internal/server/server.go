// Package server is the HTTP surface: the authenticated webhook endpoints the
// voice workflow calls mid-conversation, the unauthenticated read APIs behind
// the dashboard, and the dashboard page itself.
package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/loadline/loadline/internal/config"
	"github.com/loadline/loadline/internal/fmcsa"
	"github.com/loadline/loadline/internal/mailer"
	"github.com/loadline/loadline/internal/models"
	"github.com/loadline/loadline/internal/negotiation"
	"github.com/loadline/loadline/internal/store"
	"github.com/loadline/loadline/internal/summary"
)

// Opts holds everything Server needs. DB is required; the rest defaults from
// the config zero values (no FMCSA key means mock lookups, no SMTP or Slack
// config means those senders are disabled).
type Opts struct {
	Config config.Config
	DB     *gorm.DB

	// Rand seeds load generation; tests inject a fixed seed.
	Rand *rand.Rand
	// Verifier and Notifier are injectable for tests.
	Verifier carrierVerifier
	Notifier bookedNotifier
	Sender   handoffSender
}

// carrierVerifier is the slice of the FMCSA client the handlers use.
type carrierVerifier interface {
	Lookup(ctx context.Context, mcNumber string) (fmcsa.Result, error)
}

// bookedNotifier posts booked-call notifications.
type bookedNotifier interface {
	Enabled() bool
	NotifyBooked(ctx context.Context, s summary.CallSummary) error
}

// handoffSender delivers handoff emails.
type handoffSender interface {
	Enabled() bool
	Send(to []string, subject, body string) error
}

// Server wires the stores, the decision engine, and the delivery channels
// behind a gin router.
type Server struct {
	cfg      config.Config
	events   *store.EventLog
	profiles *store.ProfileStore
	prefs    *store.PrefsStore
	policy   negotiation.Policy
	verifier carrierVerifier
	notifier bookedNotifier
	sender   handoffSender

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a Server from Opts.
func New(opts Opts) (*Server, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("server: db is required")
	}
	cfg := opts.Config

	s := &Server{
		cfg:      cfg,
		events:   store.NewEventLog(opts.DB),
		profiles: store.NewProfileStore(opts.DB),
		prefs:    store.NewPrefsStore(opts.DB),
		policy: negotiation.Policy{
			CeilingPct: cfg.Negotiation.CeilingPct,
			MaxRounds:  cfg.Negotiation.MaxRounds,
		},
		verifier: opts.Verifier,
		notifier: opts.Notifier,
		sender:   opts.Sender,
		rng:      opts.Rand,
	}
	if s.policy.CeilingPct <= 0 || s.policy.MaxRounds <= 0 {
		s.policy = negotiation.DefaultPolicy()
	}
	if s.verifier == nil {
		s.verifier = fmcsa.NewClient(cfg.FMCSA.BaseURL, cfg.FMCSA.WebKey,
			time.Duration(cfg.FMCSA.TimeoutSec)*time.Second)
	}
	if s.notifier == nil {
		s.notifier = mailer.NewSlackNotifier(cfg.Slack.BotToken, cfg.Slack.Channel)
	}
	if s.sender == nil {
		s.sender = mailer.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s, nil
}

// Router builds the gin engine with all routes registered. Exposed separately
// from Start so tests can drive it with httptest.
func (s *Server) Router() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	// Unauthenticated surface: health, schema bootstrap, dashboard, read APIs.
	router.GET("/health", s.handleHealth)
	router.GET("/schema", s.handleSchema)
	router.POST("/schema", s.handleSchema)
	router.GET("/dashboard", s.handleDashboard)
	api := router.Group("/api")
	{
		api.GET("/live-data", s.handleLiveData)
		api.GET("/call-summary", s.handleCallSummary)
		api.GET("/calls", s.handleListCalls)
		api.GET("/calls/:call_id", s.handleGetCall)
		api.GET("/metrics/overview", s.handleMetricsOverview)
		api.GET("/metrics/negotiations", s.handleMetricsNegotiations)
		api.GET("/metrics/trends", s.handleMetricsTrends)
		api.GET("/carriers/insights", s.handleCarrierInsights)
	}

	// Webhook surface: everything the voice workflow calls mid-call.
	hooks := router.Group("/", s.requireAPIKey())
	{
		hooks.POST("/verify_mc", s.handleVerifyMC)
		hooks.POST("/negotiate", s.handleNegotiate)
		hooks.POST("/log_event", s.handleLogEvent)
		hooks.POST("/call_output", s.handleCallOutput)
		hooks.POST("/classify_call", s.handleClassifyCall)
		hooks.POST("/handoff_context", s.handleHandoffContext)
		hooks.POST("/set_call_search_prefs", s.handleSetPrefs)
		hooks.GET("/call_search_prefs", s.handleGetPrefs)
		hooks.GET("/find_loads", s.handleFindLoads)
		hooks.GET("/get_best_load", s.handleBestLoad)
		hooks.POST("/submit_load", s.handleSubmitLoad)
		hooks.GET("/handoff_summary/:call_id", s.handleHandoffSummary)
		hooks.POST("/send_handoff_email", s.handleSendHandoffEmail)
	}

	return router, nil
}

// Start runs the HTTP server and the optional digest cron. It blocks until
// ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, out io.Writer) error {
	router, err := s.Router()
	if err != nil {
		return err
	}

	var c *cron.Cron
	if s.cfg.Digest.Schedule != "" && s.cfg.Digest.To != "" {
		c = cron.New()
		if _, err := c.AddFunc(s.cfg.Digest.Schedule, s.sendDigest); err != nil {
			return fmt.Errorf("server: digest schedule %q: %w", s.cfg.Digest.Schedule, err)
		}
		c.Start()
		defer c.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if out != nil {
		fmt.Fprintf(out, "Loadline listening at http://localhost:%d\n", s.cfg.Server.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// buildSummary projects one call, pulling recent system-wide sentiment events
// as fallback candidates for calls that logged sentiment under the wrong id.
func (s *Server) buildSummary(callID string) (summary.CallSummary, bool) {
	events, err := s.events.ByCall(callID)
	if err != nil {
		log.Printf("server: events for %q: %v", callID, err)
		return summary.CallSummary{}, false
	}
	if len(events) == 0 {
		return summary.CallSummary{}, false
	}
	fallbacks, err := s.events.RecentByType(models.EventSentiment,
		events[len(events)-1].Timestamp.Add(-2*summary.SentimentFallbackWindow))
	if err != nil {
		log.Printf("server: sentiment fallbacks: %v", err)
	}
	return summary.Build(callID, events, fallbacks), true
}

// allSummaries projects every known call, newest first. Calls that fail to
// project are skipped, not fatal.
func (s *Server) allSummaries() []summary.CallSummary {
	ids, err := s.events.DistinctCallIDs()
	if err != nil {
		log.Printf("server: distinct call ids: %v", err)
		return nil
	}
	out := make([]summary.CallSummary, 0, len(ids))
	for _, id := range ids {
		if sum, ok := s.buildSummary(id); ok {
			out = append(out, sum)
		}
	}
	return out
}
