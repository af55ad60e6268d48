package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhoulm/feishu-oa-bot/internal/config"
)

const systemPrompt = "你是飞书里的 OA 办公助手机器人。用户的指令有「登录」「答题」和回复 4 位验证码，" +
	"其余消息由你简短作答。回答保持一两句话，不要使用 Markdown。"

// Service 对未命中指令的消息做大模型兜底回复，可选能力。
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService 创建兜底回复服务。Ark 凭证缺失时调用方应跳过初始化。
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chatModel: chatModel, chain: runnable}, nil
}

// Reply 为一条普通消息生成回复。
func (s *Service) Reply(ctx context.Context, query string) (string, error) {
	response, err := s.chain.Invoke(ctx, map[string]any{
		"system": systemPrompt,
		"query":  query,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run AI chain: %w", err)
	}
	return strings.TrimSpace(response.Content), nil
}
