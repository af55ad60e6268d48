package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	portalmodel "github.com/zhoulm/feishu-oa-bot/internal/model/portal"
	"github.com/zhoulm/feishu-oa-bot/internal/model/session"
	"github.com/zhoulm/feishu-oa-bot/internal/service/portal"
)

// Service 驱动每日答题：取题目，题目可提交时自动交卷。
// 依赖已登录的会话凭证；凭证缺失时提示先登录，不发起网络调用。
type Service struct {
	portal *portal.Client
	store  session.Store
}

// NewService 创建答题自动化服务。
func NewService(client *portal.Client, store session.Store) *Service {
	return &Service{portal: client, store: store}
}

// Answer 获取今日题目并在可能时自动提交，返回给用户的完整说明。
func (s *Service) Answer(ctx context.Context) string {
	cookie, err := s.store.Load()
	if err != nil {
		log.Printf("[quiz] 读取 cookie 失败: %v", err)
		return "读取 cookie 失败"
	}
	if cookie == "" {
		return "请先发送「登录」完成 OA 登录后再答题"
	}

	// aaaaa 是会话 Cookie 里携带的辅助令牌，存在时要以独立请求头重放。
	aaaaa := session.CookieValue(cookie, "aaaaa")

	topic, err := s.portal.GetTopic(ctx, cookie, aaaaa)
	if err != nil {
		return describeGetError(err)
	}

	answerText := "今日答案：" + topic.DisplayAnswer()
	if !topic.Answerable() {
		return answerText
	}

	return answerText + "\n" + s.submit(ctx, topic, cookie, aaaaa)
}

// submit 提交答案，返回单行结果说明。
func (s *Service) submit(ctx context.Context, topic *portalmodel.Topic, cookie, aaaaa string) string {
	result, err := s.portal.SaveAnswer(ctx, topic, cookie, aaaaa)
	if err != nil {
		return describeSubmitError(err)
	}
	if result.Payload == nil {
		return "提交成功（返回非 JSON）"
	}
	if portalmodel.AnswerAccepted(result.Payload) {
		return "已自动提交"
	}
	return "今日已答题，无需重复提交：" + serverMessage(result.Payload)
}

// serverMessage 取服务端的说明文字，优先 msg，其次 message，最后整体序列化。
func serverMessage(payload map[string]any) string {
	for _, key := range []string{"msg", "message"} {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(data)
}

func describeGetError(err error) string {
	if portal.IsTimeout(err) {
		return "答题请求超时"
	}
	var statusErr *portal.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("答题接口请求失败（HTTP %d）", statusErr.StatusCode)
	}
	if errors.Is(err, portal.ErrNonJSON) {
		return "答题接口返回非 JSON"
	}
	return fmt.Sprintf("答题请求失败：%v", err)
}

func describeSubmitError(err error) string {
	if portal.IsTimeout(err) {
		return "提交超时"
	}
	var statusErr *portal.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("提交接口 HTTP %d：%s", statusErr.StatusCode, statusErr.Snippet)
	}
	return fmt.Sprintf("提交答案失败：%v", err)
}
