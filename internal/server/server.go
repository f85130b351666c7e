// Package server wires the FAQDesk components together and exposes the
// inbound HTTP surface.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/faqdesk/faqdesk/internal/activity"
	"github.com/faqdesk/faqdesk/internal/config"
	"github.com/faqdesk/faqdesk/internal/connector"
	"github.com/faqdesk/faqdesk/internal/dispatch"
	"github.com/faqdesk/faqdesk/internal/escalation"
	"github.com/faqdesk/faqdesk/internal/llm"
	faqdeskslack "github.com/faqdesk/faqdesk/internal/slack"
	"github.com/faqdesk/faqdesk/internal/state"
	faqdesktelegram "github.com/faqdesk/faqdesk/internal/telegram"
)

// Server hosts the HTTP surface and the configured chat front-ends.
type Server struct {
	config    *config.Config
	store     *state.Store
	sweeper   *state.Sweeper
	assistant llm.Completer
	router    chi.Router

	// webhook is the dispatcher for activities arriving over HTTP; nil if
	// the connector callback is not configured.
	webhook *dispatch.Dispatcher

	slackBot    *faqdeskslack.Bot    // nil if Slack is not configured
	telegramBot *faqdesktelegram.Bot // nil if Telegram is not configured
}

// New creates a Server with all dependencies.
func New(cfg *config.Config) (*Server, error) {
	store, err := state.NewStore(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	sweeper, err := state.NewSweeper(store, cfg.Retention, cfg.SweepSchedule)
	if err != nil {
		return nil, fmt.Errorf("initializing sweeper: %w", err)
	}

	client, err := llm.NewClientFromEnv()
	if err != nil {
		return nil, fmt.Errorf("initializing model client: %w", err)
	}

	knowledge, err := llm.LoadKnowledge(cfg.KnowledgeDir)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge base: %w", err)
	}
	if knowledge == "" {
		log.Printf("Warning: knowledge directory %s is empty, answering without grounding data", cfg.KnowledgeDir)
	}

	s := &Server{
		config:    cfg,
		store:     store,
		sweeper:   sweeper,
		assistant: llm.NewAssistant(client, knowledge),
	}

	// Each front-end gets its own dispatcher bound to its transport; all of
	// them share the state store and the assistant. Expert tickets are
	// hosted on the expert transport, which may differ from the front-end
	// the request arrived on.
	if cfg.SlackEnabled() {
		s.slackBot = faqdeskslack.NewBot(cfg.SlackBotToken, cfg.SlackAppToken, cfg.ExpertChannelID)
		s.slackBot.Attach(s.buildDispatcher(s.slackBot, s.slackBot, s.slackBot))
		log.Println("Slack front-end enabled (Socket Mode)")
	}

	if cfg.TelegramEnabled() {
		tgBot, err := faqdesktelegram.NewBot(cfg.TelegramBotToken)
		if err != nil {
			log.Printf("Warning: failed to initialize Telegram bot: %v", err)
		} else {
			s.telegramBot = tgBot
			tgBot.Attach(s.buildDispatcher(tgBot, s.expertTransport(tgBot), tgBot))
			log.Println("Telegram front-end enabled (long polling)")
		}
	}

	if cfg.ConnectorEnabled() {
		conn := connector.New(cfg.ServiceURL)
		s.webhook = s.buildDispatcher(conn, conn, conn)
		log.Println("HTTP connector enabled")
	}

	s.router = s.buildRouter()
	return s, nil
}

// buildDispatcher assembles the handler stack for one front-end: user is
// the transport replies go out on, expert hosts ticket cards, directory
// resolves requester profiles.
func (s *Server) buildDispatcher(user, expert escalation.Conversations, directory escalation.Directory) *dispatch.Dispatcher {
	coordinator := escalation.New(user, expert, directory, s.config.ExpertChannelID, s.config.BotID)
	chat := dispatch.NewChatHandler(s.assistant, user)
	return dispatch.New(s.store, user, chat, coordinator, s.config.ExpertChannelID)
}

// expertTransport picks the transport that hosts the expert channel for
// front-ends that cannot host it themselves.
func (s *Server) expertTransport(fallback escalation.Conversations) escalation.Conversations {
	if s.slackBot != nil {
		return s.slackBot
	}
	if s.config.ConnectorEnabled() {
		return connector.New(s.config.ServiceURL)
	}
	log.Println("Warning: no expert transport configured; escalation will fail on this front-end")
	return fallback
}

// Start starts the HTTP server, the retention sweeper, and the configured
// front-ends. Blocks until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.sweeper.Start()
	defer s.sweeper.Stop()

	if s.slackBot != nil {
		go func() {
			if err := s.slackBot.Run(ctx); err != nil {
				log.Printf("Slack bot error: %v", err)
			}
		}()
	}
	if s.telegramBot != nil {
		go func() {
			if err := s.telegramBot.Run(ctx); err != nil {
				log.Printf("Telegram bot error: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:    s.config.ServerAddr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("FAQDesk server listening on %s", s.config.ServerAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return s.store.Close()
}

// Router returns the HTTP handler, exposed for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Route("/api", func(r chi.Router) {
		r.Post("/activities", s.handleActivity)
	})

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleActivity receives one inbound activity from the platform webhook
// and processes it to completion.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if s.webhook == nil {
		writeError(w, http.StatusServiceUnavailable, "connector callback not configured")
		return
	}

	var act activity.Activity
	if err := json.NewDecoder(r.Body).Decode(&act); err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity body")
		return
	}
	if act.Type == "" || act.Conversation.ID == "" {
		writeError(w, http.StatusBadRequest, "type and conversation.id are required")
		return
	}

	s.webhook.Dispatch(r.Context(), &act)
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
