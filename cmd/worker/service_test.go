package main

import (
	"testing"

	"github.com/angelmondragon/notifyd/pkg/config"
	"github.com/angelmondragon/notifyd/pkg/logger"
)

func TestNewServiceRequiresDependencies(t *testing.T) {
	cases := map[string]ServiceParams{
		"config": {},
		"logger": {Config: &config.Config{}},
		"db":     {Config: &config.Config{}, Logger: logger.Nop()},
	}
	for name, params := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewService(params); err == nil {
				t.Fatalf("expected error when %s is missing", name)
			}
		})
	}
}
