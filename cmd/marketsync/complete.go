package main

import (
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var (
	globalFlags = map[string]complete.Predictor{
		"config":    predict.Files("*.yaml"),
		"log-level": predict.Set{"debug", "info", "warn", "error"},
	}
	formats = predict.Set{"terminal", "md", "html"}
)

// completion describes the command tree for shell completion. Install with
// COMP_INSTALL=1 marketsync.
func completion() *complete.Command {
	return &complete.Command{
		Flags: globalFlags,
		Sub: map[string]*complete.Command{
			"serve": {
				Flags: map[string]complete.Predictor{
					"port": predict.Nothing,
					"mode": predict.Set{"sse", "websocket", "poll", "kafka", "generator", "tcp"},
				},
			},
			"summary": {
				Flags: map[string]complete.Predictor{
					"wait":   predict.Nothing,
					"format": formats,
					"style":  predict.Set{"auto", "dark", "light", "notty"},
				},
			},
			"lots": {
				Flags: map[string]complete.Predictor{
					"format": formats,
				},
			},
			"help":  {},
			"flags": {},
		},
	}
}
