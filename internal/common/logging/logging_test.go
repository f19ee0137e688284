package logging

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestApplyConfig_Invalid(t *testing.T) {
	tests := map[string]Config{
		"bad level":  {Level: "loud", Format: "text"},
		"bad format": {Level: "info", Format: "xml"},
	}
	for name, config := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ApplyConfig(config))
		})
	}
}

func TestApplyConfig(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)
	defer log.SetFormatter(&log.TextFormatter{})

	err := ApplyConfig(Config{Level: "debug", Format: "json"})
	assert.NoError(t, err)
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	_, isJson := log.StandardLogger().Formatter.(*log.JSONFormatter)
	assert.True(t, isJson)
}
