package bot

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestNewBot(t *testing.T) {
	cfg := &Config{
		DiscordToken: "test-token",
	}

	b := NewBot(cfg)

	if b == nil {
		t.Fatal("expected bot to be created, got nil")
	}
	if b.config != cfg {
		t.Error("expected config to be stored")
	}
}

func TestBot_Start_RequiresToken(t *testing.T) {
	b := NewBot(DefaultConfig())

	if err := b.Start(); !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}
}

func TestBot_InitModules_PassesDependencies(t *testing.T) {
	cfg := &Config{DiscordToken: "test-token"}
	b := NewBot(cfg)

	mod := &trackingStubModule{stubModule: stubModule{name: "tracking"}}
	b.modules = []Module{mod}

	if err := b.initModules(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !mod.initCalled {
		t.Fatal("expected Init to be called")
	}
	if mod.deps.Config != cfg {
		t.Error("expected config to be passed to the module")
	}
}

func TestBot_InitModules_ReturnsInitError(t *testing.T) {
	cfg := &Config{DiscordToken: "test-token"}
	b := NewBot(cfg)

	expectedErr := errors.New("init failed")
	mod := &stubModule{
		name:    "failing",
		initErr: expectedErr,
	}
	b.modules = []Module{mod}

	err := b.initModules()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestBot_LoadModuleConfigs(t *testing.T) {
	cfg := &Config{DiscordToken: "test-token", Path: "tunebot.toml"}
	b := NewBot(cfg)

	configurable := &configurableStubModule{stubModule: stubModule{name: "configurable"}}
	plain := &stubModule{name: "plain"}
	b.modules = []Module{plain, configurable}

	if err := b.loadModuleConfigs(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if configurable.loaded != cfg {
		t.Error("expected LoadConfig to receive the bot config")
	}
}

func TestBot_LoadModuleConfigs_ReturnsError(t *testing.T) {
	b := NewBot(&Config{DiscordToken: "test-token"})

	expectedErr := errors.New("bad config")
	b.modules = []Module{
		&configurableStubModule{stubModule: stubModule{name: "configurable"}, err: expectedErr},
	}

	if err := b.loadModuleConfigs(); !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestBot_BuildHandlerMap(t *testing.T) {
	cfg := &Config{DiscordToken: "test-token"}
	b := NewBot(cfg)

	handler := func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error {
		return nil
	}

	mod := &stubModule{
		name: "test",
		handlers: map[string]InteractionHandler{
			"play": handler,
		},
	}
	b.modules = []Module{mod}

	b.buildHandlerMap()

	if _, ok := b.handlers["play"]; !ok {
		t.Error("expected play handler to be registered")
	}
}

func TestBot_BuildHandlerMap_MultipleModules(t *testing.T) {
	cfg := &Config{DiscordToken: "test-token"}
	b := NewBot(cfg)

	handler := func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error {
		return nil
	}

	mod1 := &stubModule{
		name:     "mod1",
		handlers: map[string]InteractionHandler{"cmd1": handler},
	}
	mod2 := &stubModule{
		name:     "mod2",
		handlers: map[string]InteractionHandler{"cmd2": handler},
	}
	b.modules = []Module{mod1, mod2}

	b.buildHandlerMap()

	if len(b.handlers) != 2 {
		t.Errorf("expected 2 handlers, got %d", len(b.handlers))
	}
}

func TestBot_CollectCommands(t *testing.T) {
	cfg := &Config{DiscordToken: "test-token"}
	b := NewBot(cfg)

	mod1 := &stubModule{
		name:     "mod1",
		commands: []*discordgo.ApplicationCommand{{Name: "join", Description: "Join"}},
	}
	mod2 := &stubModule{
		name:     "mod2",
		commands: []*discordgo.ApplicationCommand{{Name: "leave", Description: "Leave"}},
	}
	b.modules = []Module{mod1, mod2}

	commands := b.collectCommands()

	if len(commands) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(commands))
	}
	if commands[0].Name != "join" || commands[1].Name != "leave" {
		t.Errorf("expected commands in module order, got %q, %q", commands[0].Name, commands[1].Name)
	}
}

// trackingStubModule records the dependencies Init was called with.
type trackingStubModule struct {
	stubModule
	initCalled bool
	deps       ModuleDependencies
}

func (m *trackingStubModule) Init(deps ModuleDependencies) error {
	m.initCalled = true
	m.deps = deps
	return m.stubModule.Init(deps)
}

type configurableStubModule struct {
	stubModule
	loaded *Config
	err    error
}

func (m *configurableStubModule) LoadConfig(cfg *Config) error {
	m.loaded = cfg
	return m.err
}
