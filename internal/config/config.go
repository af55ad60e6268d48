package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Feishu FeishuConfig
	Portal PortalConfig
	AI     AIConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	portal, err := loadPortalConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Feishu: loadFeishuConfig(),
		Portal: portal,
		AI:     loadAIConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
	// StrictBody 开启后，无法解析的请求体返回 400 而不是按空对象处理。
	StrictBody bool
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3000"
	}

	strict, err := parseBoolEnv("FEISHU_STRICT_BODY", false)
	if err != nil {
		return ServerConfig{}, err
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":3000" 或 "127.0.0.1:3000"。
		return ServerConfig{Addr: port, StrictBody: strict}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, StrictBody: strict}, nil
}

// FeishuConfig 描述飞书开放平台应用凭证。
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// Enabled 表示是否提供了发送消息所需的凭证。
func (c FeishuConfig) Enabled() bool {
	return c.AppID != "" && c.AppSecret != ""
}

func loadFeishuConfig() FeishuConfig {
	return FeishuConfig{
		AppID:     strings.TrimSpace(os.Getenv("APP_ID")),
		AppSecret: strings.TrimSpace(os.Getenv("APP_SECRET")),
	}
}

// PortalConfig 描述 OA 门户相关配置。
type PortalConfig struct {
	BaseURL  string
	Account  string
	Password string
	// CookieFile 保存会话凭证的平面文件路径。
	CookieFile string
	// VerifyImageFile 无会话上下文时验证码图片的本地落盘路径。
	VerifyImageFile string
	Timeout         time.Duration
}

func loadPortalConfig() (PortalConfig, error) {
	timeoutSeconds := 10
	if override, err := parseOptionalIntEnv("OA_TIMEOUT_SECONDS"); err != nil {
		return PortalConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return PortalConfig{}, fmt.Errorf("invalid OA_TIMEOUT_SECONDS value: %d", *override)
		}
		timeoutSeconds = *override
	}

	return PortalConfig{
		BaseURL:         strings.TrimRight(getEnvOrDefault("OA_BASE_URL", "https://oa.teligen-cloud.com:8280"), "/"),
		Account:         strings.TrimSpace(os.Getenv("OA_ACCOUNT")),
		Password:        strings.TrimSpace(os.Getenv("OA_PASSWORD")),
		CookieFile:      getEnvOrDefault("OA_COOKIE_FILE", "data/.oa-cookie"),
		VerifyImageFile: getEnvOrDefault("OA_VERIFY_IMAGE_FILE", "data/.oa-verify-code.png"),
		Timeout:         time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// AIConfig 描述兜底回复所用大模型的配置，可选。
type AIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Region  string
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && c.APIKey != ""
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，需要 ARK_API_KEY 与 ARK_MODEL")
	}

	cfg := &ark.ChatModelConfig{
		BaseURL: c.BaseURL,
		Region:  c.Region,
		APIKey:  c.APIKey,
		Model:   c.Model,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() AIConfig {
	return AIConfig{
		APIKey:  strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		Model:   strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL: getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:  getEnvOrDefault("ARK_REGION", "cn-beijing"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
