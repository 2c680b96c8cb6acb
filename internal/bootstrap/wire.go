package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"

	"interviewcoach/internal/apiclient"
	"interviewcoach/internal/audio"
	"interviewcoach/internal/auth"
	"interviewcoach/internal/capture"
	"interviewcoach/internal/config"
	"interviewcoach/internal/domain"
	"interviewcoach/internal/journal"
	"interviewcoach/internal/logging"
	"interviewcoach/internal/metrics"
	"interviewcoach/internal/ports"
	"interviewcoach/internal/providers/deepgram"
	"interviewcoach/internal/rules"
	"interviewcoach/internal/speech"
	"interviewcoach/internal/usecase"
)

// Services is the assembled runtime graph shared by every command.
type Services struct {
	Config  config.Config
	Logger  *zap.Logger
	Auth    *auth.Context
	API     *apiclient.Client
	Metrics *metrics.Recorder
}

// Build wires configuration, logging, stored credentials and the API client.
func Build(configPath string) (*Services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}

	credentials := auth.NewContext(cfg.Auth.CredentialsPath, auth.WithLogger(logger))
	if err := credentials.Load(); err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	recorder := metrics.NewRecorder()
	api, err := apiclient.New(apiclient.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Tokens:  credentials,
		Logger:  logger,
		Metrics: recorder,
	})
	if err != nil {
		return nil, err
	}

	return &Services{
		Config:  cfg,
		Logger:  logger,
		Auth:    credentials,
		API:     api,
		Metrics: recorder,
	}, nil
}

// Close flushes the logger.
func (s *Services) Close() {
	_ = s.Logger.Sync()
}

// OpenJournal opens the local session journal.
func (s *Services) OpenJournal() (*journal.Store, error) {
	return journal.Open(s.Config.Journal.Path)
}

// ServeMetrics exposes the metrics registry on metrics.addr until ctx ends.
// It is a no-op when no address is configured.
func (s *Services) ServeMetrics(ctx context.Context) {
	addr := s.Config.Metrics.Addr
	if addr == "" {
		return
	}
	server := &http.Server{Addr: addr, Handler: s.Metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Warn("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
}

// Sink receives controller output. The terminal UI implements it.
type Sink interface {
	ports.EventSink
	ports.Navigator
}

// Interview is a ready controller plus the resources it owns.
type Interview struct {
	Controller *usecase.InterviewController
	Capability domain.Capability

	speaker *speech.Speaker
	journal *journal.Store
}

// Close stops the controller and releases speech and journal resources.
func (i *Interview) Close() error {
	i.Controller.Close()
	i.Controller.Wait()
	if i.speaker != nil {
		i.speaker.Wait()
	}
	if i.journal != nil {
		return i.journal.Close()
	}
	return nil
}

// BuildInterview resolves the capture capability and assembles a controller
// that reports to sink.
func (s *Services) BuildInterview(sink Sink) (*Interview, error) {
	cfg := s.Config

	rulesEngine, err := rules.NewEngine(cfg.Capture.RulesPath, cfg.Capture.RuleIterationLimit)
	if err != nil {
		return nil, err
	}

	recorder := audio.NewRecorder(cfg.Audio.RecorderCommand)
	provider := deepgram.NewProvider(deepgram.Config{
		APIKey:      cfg.Deepgram.APIKey,
		APIBaseURL:  cfg.Deepgram.APIBaseURL,
		Model:       cfg.Deepgram.Model,
		SmartFormat: cfg.Deepgram.SmartFormat,
	})

	capability := capture.Detect(capture.Probe{
		GOOS:                 runtime.GOOS,
		Mode:                 cfg.Capture.Mode,
		RecorderAvailable:    recorder.Available(),
		StreamingConfigured:  provider.Configured(),
		ForceUploadPlatforms: cfg.Capture.ForceUploadPlatforms,
	})
	s.Logger.Info("speech capture resolved",
		zap.String("kind", string(capability.Kind)),
		zap.String("reason", capability.Reason),
	)

	strategy := capture.New(capability, capture.Deps{
		Recorder: recorder,
		Provider: provider,
		Rules:    rulesEngine,
		Listener: sink,
		Logger:   s.Logger,
		Streaming: capture.StreamingOptions{
			Audio: ports.AudioConfig{
				SampleRate:  cfg.Audio.SampleRate,
				Channels:    cfg.Audio.Channels,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Streaming: ports.StreamingConfig{
				SampleRate:     cfg.Audio.SampleRate,
				Channels:       cfg.Audio.Channels,
				Encoding:       "linear16",
				InterimResults: true,
			},
			ChunkSize: cfg.Capture.ChunkSize,
			Grace:     cfg.Capture.StreamingGrace,
		},
	})

	interview := &Interview{Capability: capability}

	var speaker ports.Speaker = speech.Mute{}
	if cfg.Speech.Enabled {
		tts := speech.NewSpeaker(cfg.Speech.Command, s.Logger)
		if tts.Available() {
			speaker = tts
			interview.speaker = tts
		} else {
			s.Logger.Info("text-to-speech command not found; questions will not be read aloud",
				zap.String("command", cfg.Speech.Command))
		}
	}

	var sessions ports.Journal
	if store, err := s.OpenJournal(); err != nil {
		s.Logger.Warn("local journal unavailable", zap.Error(err))
	} else {
		sessions = store
		interview.journal = store
	}

	interview.Controller = usecase.NewInterviewController(usecase.Deps{
		Service:   s.API,
		Capture:   strategy,
		Speaker:   speaker,
		Navigator: sink,
		Journal:   sessions,
		Events:    sink,
		Metrics:   s.Metrics,
		Logger:    s.Logger,
	}, usecase.Config{
		Mode:         cfg.Interview.Mode,
		TurnBudget:   cfg.Interview.TurnBudget,
		PaywallDelay: cfg.Interview.PaywallRedirectDelay,
	})
	return interview, nil
}
