package app

import (
	"courier/internal/broker"
	"courier/internal/config"
	"courier/internal/sim"
	logx "courier/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapBrokerConfig(cfg *config.Config) broker.Config {
	return broker.Config{
		QueueMax:         cfg.Broker.QueueMax,
		MaxTopicLifespan: cfg.Broker.MaxTopicLifespanDuration(),
		DeliveryInterval: cfg.Broker.DeliveryIntervalDuration(),
		SweepInterval:    cfg.Broker.SweepIntervalDuration(),
	}
}

func mapSimConfig(sc *config.SimConfig) sim.Config {
	out := sim.Config{Enabled: sc.Enabled}
	if sc.Direct != nil {
		out.Direct = sim.DirectConfig{
			Enabled:    sc.Direct.Enabled,
			RatePerSec: sc.Direct.RatePerSec,
			Burst:      sc.Direct.Burst,
			Contents:   append([]string(nil), sc.Direct.Contents...),
		}
	}
	for _, a := range sc.Announcements {
		out.Announcements = append(out.Announcements, sim.Announcement{
			Name:    a.Name,
			Spec:    a.Spec,
			Sender:  a.Sender,
			Topic:   a.Topic,
			Content: a.Content,
			TTL:     a.TTLDuration(),
		})
	}
	return out
}
