package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/queryloom/queryloom/internal/config"
	"github.com/queryloom/queryloom/internal/log"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"ask":     false,
		"train":   false,
		"serve":   false,
		"version": false,
	}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestTrainSubcommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"ddl":      false,
		"docs":     false,
		"examples": false,
		"stats":    false,
	}
	for _, cmd := range trainCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("train subcommand %q not registered", name)
		}
	}
}

func TestEngineFactoryRequiresCredential(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg := &config.Config{
		ModelName:     config.DefaultChatModel,
		EmbedderModel: config.DefaultEmbedderModel,
		TopK:          config.DefaultTopK,
		StoreDir:      t.TempDir(),
	}

	factory := newEngineFactory(cfg, log.NewNop())
	if _, err := factory(context.Background(), ""); !errors.Is(err, errNoAPIKey) {
		t.Errorf("factory without credential error = %v, want errNoAPIKey", err)
	}
}
