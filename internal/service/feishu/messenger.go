package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"

	"github.com/zhoulm/feishu-oa-bot/internal/config"
)

// 飞书发送消息的 receive_id 类型：单聊回 open_id，群聊回 chat_id。
const (
	ReceiveIDTypeOpenID = "open_id"
	ReceiveIDTypeChatID = "chat_id"
)

// Target 描述一次回复的接收方，含可选的租户隔离标识。
type Target struct {
	ReceiveID     string
	ReceiveIDType string
	TenantKey     string
}

func (t Target) options() []larkcore.RequestOptionFunc {
	if t.TenantKey == "" {
		return nil
	}
	return []larkcore.RequestOptionFunc{larkcore.WithTenantKey(t.TenantKey)}
}

// Messenger 抽象本系统用到的飞书发送能力，测试时可替换。
type Messenger interface {
	SendText(ctx context.Context, target Target, text string) error
	SendImage(ctx context.Context, target Target, imageKey string) error
	// UploadImage 上传图片素材，返回 image_key。token 交换由 SDK 内部完成。
	UploadImage(ctx context.Context, image []byte) (string, error)
}

// SDKMessenger 基于飞书官方 SDK 的 Messenger 实现。
type SDKMessenger struct {
	client *lark.Client
}

// NewSDKMessenger 用应用凭证创建 SDK 客户端。
func NewSDKMessenger(cfg config.FeishuConfig) *SDKMessenger {
	return &SDKMessenger{client: lark.NewClient(cfg.AppID, cfg.AppSecret)}
}

// SendText 发送文本消息。content 必须是 JSON 字符串而不是对象。
func (m *SDKMessenger) SendText(ctx context.Context, target Target, text string) error {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("编码文本消息失败: %w", err)
	}
	return m.send(ctx, target, "text", string(content))
}

// SendImage 发送图片消息，引用已上传素材的 image_key。
func (m *SDKMessenger) SendImage(ctx context.Context, target Target, imageKey string) error {
	content, err := json.Marshal(map[string]string{"image_key": imageKey})
	if err != nil {
		return fmt.Errorf("编码图片消息失败: %w", err)
	}
	return m.send(ctx, target, "image", string(content))
}

func (m *SDKMessenger) send(ctx context.Context, target Target, msgType, content string) error {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(target.ReceiveIDType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(target.ReceiveID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := m.client.Im.Message.Create(ctx, req, target.options()...)
	if err != nil {
		return fmt.Errorf("飞书发送消息失败: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("飞书发送消息失败: code=%d msg=%s", resp.Code, resp.Msg)
	}
	return nil
}

// UploadImage 以 multipart 形式上传图片，返回消息图片的 image_key。
func (m *SDKMessenger) UploadImage(ctx context.Context, image []byte) (string, error) {
	req := larkim.NewCreateImageReqBuilder().
		Body(larkim.NewCreateImageReqBodyBuilder().
			ImageType("message").
			Image(bytes.NewReader(image)).
			Build()).
		Build()

	resp, err := m.client.Im.Image.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("上传验证码图片到飞书失败: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("上传验证码图片到飞书失败: code=%d msg=%s", resp.Code, resp.Msg)
	}
	if resp.Data == nil || resp.Data.ImageKey == nil {
		return "", fmt.Errorf("飞书未返回 image_key")
	}
	return *resp.Data.ImageKey, nil
}
