package logging

import (
	"context"

	"github.com/pitabwire/util"

	"github.com/pitabwire/sitecfg/config"
)

// New builds the tool logger from cfg and stores it in the returned context,
// so that util.Log(ctx) resolves to it further down the call chain.
func New(ctx context.Context, cfg config.ConfigurationLogLevel, opts ...util.Option) (context.Context, *util.LogEntry) {
	var logOpts []util.Option

	if cfg != nil {
		logLevel, err := util.ParseLevel(cfg.LoggingLevel())
		if err == nil {
			logOpts = append(logOpts, util.WithLogLevel(logLevel))
		}
		logOpts = append(logOpts,
			util.WithLogTimeFormat(cfg.LoggingTimeFormat()),
			util.WithLogNoColor(!cfg.LoggingColored()))
		if cfg.LoggingShowStackTrace() {
			logOpts = append(logOpts, util.WithLogStackTrace())
		}
	}

	// caller options win over configuration
	logOpts = append(logOpts, opts...)

	log := util.NewLogger(ctx, logOpts...).WithField("component", "sitecfg")
	return util.ContextWithLogger(ctx, log), log
}
