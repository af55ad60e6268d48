package command

import (
	"context"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/zhoulm/feishu-oa-bot/internal/service/assistant"
	"github.com/zhoulm/feishu-oa-bot/internal/service/feishu"
	"github.com/zhoulm/feishu-oa-bot/internal/service/login"
	"github.com/zhoulm/feishu-oa-bot/internal/service/quiz"
)

// HelpText 未命中任何指令且未启用大模型兜底时的回复。
const HelpText = "支持的指令：\n" +
	"登录 — 检查 OA 登录状态，失效时获取验证码\n" +
	"4 位验证码 — 完成 OA 登录\n" +
	"答题 — 获取今日题目并自动提交"

// Router 把用户消息文本映射为一个动作，按顺序首个命中者生效：
// 含「登录」→ 登录自动化；恰好 4 字 → 提交验证码；「答题」→ 答题自动化；其余走兜底。
// 下层的任何失败都已折叠成用户可读文字，Reply 永不返回错误。
type Router struct {
	login     *login.Service
	quiz      *quiz.Service
	assistant *assistant.Service // nil 表示未启用
}

// NewRouter 创建指令路由。assistant 可为 nil。
func NewRouter(loginSvc *login.Service, quizSvc *quiz.Service, assistantSvc *assistant.Service) *Router {
	return &Router{login: loginSvc, quiz: quizSvc, assistant: assistantSvc}
}

// Reply 处理一条消息并返回回复文本。target 为 nil 时验证码图片落盘兜底。
func (r *Router) Reply(ctx context.Context, rawText string, target *feishu.Target) string {
	text := strings.TrimSpace(rawText)
	lower := strings.ToLower(text)

	switch {
	case lower != "" && strings.Contains(lower, "登录"):
		valid, msg := r.login.Check(ctx)
		if valid {
			return "登录成功"
		}
		verifyMsg := r.login.Relogin(ctx, target)
		return msg + "\n" + verifyMsg

	case lower != "" && utf8.RuneCountInString(lower) == 4:
		return r.login.SubmitCode(ctx, lower)

	case lower == "答题":
		return r.quiz.Answer(ctx)
	}

	if r.assistant != nil {
		reply, err := r.assistant.Reply(ctx, text)
		if err == nil && reply != "" {
			return reply
		}
		log.Printf("[command] 兜底回复失败: %v", err)
	}
	return HelpText
}
