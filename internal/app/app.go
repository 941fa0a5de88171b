package app

import (
	"context"
	"fmt"
	"time"

	"courier/internal/broker"
	"courier/internal/config"
	"courier/internal/eventbus"
	"courier/internal/journal"
	"courier/internal/participant"
	"courier/internal/runtime/supervisor"
	"courier/internal/sim"
	logx "courier/pkg/logx"
)

// App wires the config manager, logging service, event bus, broker,
// participants, traffic simulation and the delivery journal into one
// process.
type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	br    *broker.Broker
	parts []*participant.Participant
	sim   *sim.Service
	jrnl  journal.Store
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Journal (optional)
	var jrnl journal.Store
	if cfg.Journal != nil {
		jc := journal.Config{
			Driver:      cfg.Journal.Driver,
			Path:        cfg.Journal.Path,
			BusyTimeout: cfg.Journal.BusyTimeoutDuration(),
		}
		st, err := journal.Open(jc, log.With(logx.String("comp", "journal")))
		if err != nil {
			logSvc.Close()
			return nil, err
		}
		jrnl = st
		if jrnl != nil {
			log.Info("journal enabled", logx.String("driver", jc.Driver))
		}
	}

	br := broker.New(mapBrokerConfig(cfg), bus, log)

	// Participants are declared in config; registration happens here, before
	// any traffic, so the simulation never races an empty registry.
	parts := make([]*participant.Participant, 0, len(cfg.Participants))
	for _, pc := range cfg.Participants {
		p := participant.New(pc.ID, pc.Interests,
			participant.WithPollInterval(pc.PollIntervalDuration()),
			participant.WithLogger(log),
		)
		if err := br.Register(p); err != nil {
			logSvc.Close()
			return nil, fmt.Errorf("register participant %q: %w", pc.ID, err)
		}
		parts = append(parts, p)
	}

	var simSvc *sim.Service
	if cfg.Sim != nil && cfg.Sim.Enabled {
		ids := make([]string, 0, len(parts))
		for _, p := range parts {
			ids = append(ids, p.Identity())
		}
		simSvc = sim.New(mapSimConfig(cfg.Sim), br, ids, log)
	}

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		br:      br,
		parts:   parts,
		sim:     simSvc,
		jrnl:    jrnl,
	}, nil
}

// Broker exposes the broker, mainly for tests and embedding callers.
func (a *App) Broker() *broker.Broker { return a.br }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log)
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return cfg.Validate()
	})

	a.br.Start(a.sup.Context())
	for _, p := range a.parts {
		p.Start(a.sup.Context())
	}
	if a.sim != nil {
		a.sim.Start(a.sup.Context())
	}

	// Journal recorder: translate bus events into journal entries.
	if a.jrnl != nil && a.bus != nil {
		events, unsub := a.bus.Subscribe(256)
		a.sup.Go0("journal.recorder", func(c context.Context) {
			defer unsub()
			a.recordLoop(c, events)
		})
	}

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyConfig(newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started",
		logx.Int("participants", a.br.RegisteredCount()),
		logx.Bool("sim", a.sim != nil),
		logx.Bool("journal", a.jrnl != nil),
	)
	return nil
}

// applyConfig pushes hot-reloadable settings into running components.
// Participants, queue bound and journal driver are start-time only.
func (a *App) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	a.logs.Apply(mapLogConfig(cfg))
	a.br.Apply(mapBrokerConfig(cfg))

	byID := map[string]config.ParticipantConfig{}
	for _, pc := range cfg.Participants {
		byID[pc.ID] = pc
	}
	for _, p := range a.parts {
		if pc, ok := byID[p.Identity()]; ok {
			p.SetPollInterval(pc.PollIntervalDuration())
		}
	}

	a.log.Info("config reloaded",
		logx.Duration("delivery_interval", cfg.Broker.DeliveryIntervalDuration()),
		logx.Duration("sweep_interval", cfg.Broker.SweepIntervalDuration()),
		logx.Duration("max_topic_lifespan", cfg.Broker.MaxTopicLifespanDuration()),
	)
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context first so background loops start unwinding.
	a.sup.Cancel()

	// Each step gets an upper bound so one component can't stall the stop.
	step := func(name string, max time.Duration, fn func(context.Context)) {
		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			stepCtx, cancel = context.WithTimeout(ctx, max)
			defer cancel()
		}
		start := time.Now()
		fn(stepCtx)
		a.log.Debug("stop step done", logx.String("name", name), logx.Duration("took", time.Since(start)))
	}

	// Producers first, then the broker, then the consumers of its events.
	step("sim", 2*time.Second, func(c context.Context) {
		if a.sim != nil {
			a.sim.Stop(c)
		}
	})
	for _, p := range a.parts {
		p := p
		step("participant."+p.Identity(), time.Second, func(c context.Context) { p.Stop(c) })
	}
	step("broker", 2*time.Second, func(c context.Context) { a.br.Stop(c) })
	step("supervisor", 2*time.Second, func(c context.Context) { _ = a.sup.Wait(c) })
	step("journal", time.Second, func(context.Context) {
		if a.jrnl != nil {
			if err := a.jrnl.Close(); err != nil {
				a.log.Warn("journal close failed", logx.Err(err))
			}
		}
	})

	a.log.Info("stopped")
	if a.logs != nil {
		a.logs.Close()
	}
	return nil
}
