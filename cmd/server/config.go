package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c2smotors/showroom/internal/handlers"
	"github.com/c2smotors/showroom/internal/services"
)

// defaultSystemPrompt is the consultant persona used when the config carries
// none.
const defaultSystemPrompt = "Você é um consultor de vendas de uma loja de veículos no Brasil. " +
	"Responda de forma clara, amigável e objetiva, SEM inventar estoque. " +
	"Use apenas as opções do contexto fornecido. " +
	"Quando o cliente pedir algo específico (ex.: SUV automático até R$ 120.000), " +
	"explique o raciocínio e sugira de 3 a 5 opções compatíveis. " +
	"Se nada for compatível, sugira alternativas próximas (ano ou preço próximos). " +
	"Mostre preços em reais com duas casas (ex.: R$ 85.900,00)."

type llmConfig interface {
	generator(systemPrompt string, logger *slog.Logger) (handlers.Generator, error)
}

// BaseLLMConfig contains the common fields for all LLM configurations.
type BaseLLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

type config struct {
	Port         string `yaml:"port"`
	Endpoint     string `yaml:"endpoint"`
	CSRFCookie   string `yaml:"csrfCookie"`
	CatalogPath  string `yaml:"catalogPath"`
	SystemPrompt string `yaml:"systemPrompt"`

	Avatar avatarConfig `yaml:"avatar"`
	Redis  redisConfig  `yaml:"redis"`

	LLM llmConfig `yaml:"llm"`
}

type avatarConfig struct {
	Idle   string `yaml:"idle"`
	Typing string `yaml:"typing"`
}

type redisConfig struct {
	Addr   string `yaml:"addr"`
	Limit  int    `yaml:"limit"`
	Window int    `yaml:"windowSeconds"`
}

func (r redisConfig) windowDuration() time.Duration {
	if r.Window <= 0 {
		return time.Minute
	}
	return time.Duration(r.Window) * time.Second
}

type openAIConfig struct {
	BaseLLMConfig `yaml:",inline"`
	APIKey        string `yaml:"apiKey"`
	BaseURL       string `yaml:"baseURL"`
}

type ollamaConfig struct {
	BaseLLMConfig `yaml:",inline"`
	Host          string `yaml:"host"`
}

func defaultConfig() config {
	return config{
		Port:         "8080",
		CatalogPath:  "showroom.db",
		SystemPrompt: defaultSystemPrompt,
	}
}

func (c *config) UnmarshalYAML(value *yaml.Node) error {
	var rawConfig struct {
		Port         string         `yaml:"port"`
		Endpoint     string         `yaml:"endpoint"`
		CSRFCookie   string         `yaml:"csrfCookie"`
		CatalogPath  string         `yaml:"catalogPath"`
		SystemPrompt string         `yaml:"systemPrompt"`
		Avatar       avatarConfig   `yaml:"avatar"`
		Redis        redisConfig    `yaml:"redis"`
		LLM          map[string]any `yaml:"llm"`
	}

	if err := value.Decode(&rawConfig); err != nil {
		return err
	}

	defaults := defaultConfig()

	c.Port = rawConfig.Port
	if c.Port == "" {
		c.Port = defaults.Port
	}
	c.Endpoint = rawConfig.Endpoint
	c.CSRFCookie = rawConfig.CSRFCookie
	c.CatalogPath = rawConfig.CatalogPath
	if c.CatalogPath == "" {
		c.CatalogPath = defaults.CatalogPath
	}
	c.SystemPrompt = rawConfig.SystemPrompt
	if c.SystemPrompt == "" {
		c.SystemPrompt = defaults.SystemPrompt
	}
	c.Avatar = rawConfig.Avatar
	c.Redis = rawConfig.Redis

	// The LLM section is optional; without one the reply endpoint answers
	// with the deterministic stock excerpt.
	if len(rawConfig.LLM) == 0 {
		return nil
	}

	llmProvider, ok := rawConfig.LLM["provider"].(string)
	if !ok {
		return fmt.Errorf("llm provider is required")
	}

	llmRawYAML, err := yaml.Marshal(rawConfig.LLM)
	if err != nil {
		return err
	}

	var llm llmConfig
	switch llmProvider {
	case "openai":
		llm = &openAIConfig{}
	case "ollama":
		llm = &ollamaConfig{}
	default:
		return fmt.Errorf("unknown llm provider: %s", llmProvider)
	}

	if err := yaml.Unmarshal(llmRawYAML, llm); err != nil {
		return err
	}

	c.LLM = llm

	return nil
}

func (o openAIConfig) generator(systemPrompt string, logger *slog.Logger) (handlers.Generator, error) {
	model := o.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	apiKey := o.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	return services.NewOpenAI(apiKey, o.BaseURL, model, systemPrompt, logger), nil
}

func (o ollamaConfig) generator(systemPrompt string, _ *slog.Logger) (handlers.Generator, error) {
	if o.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	host := o.Host
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	return services.NewOllama(host, o.Model, systemPrompt), nil
}
