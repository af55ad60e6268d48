package login

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/zhoulm/feishu-oa-bot/internal/config"
	portalmodel "github.com/zhoulm/feishu-oa-bot/internal/model/portal"
	"github.com/zhoulm/feishu-oa-bot/internal/model/session"
	"github.com/zhoulm/feishu-oa-bot/internal/service/feishu"
	"github.com/zhoulm/feishu-oa-bot/internal/service/portal"
)

// Service 驱动 OA 登录自动化：
// 校验会话 → 获取验证码 → 等用户回码 → 提交凭证 → 持久化会话。
// 所有失败都转成给用户看的说明文字，不向上层抛错。
type Service struct {
	portal    *portal.Client
	store     session.Store
	messenger feishu.Messenger // nil 表示飞书未配置，验证码落盘兜底
	account   string
	password  string
	imageFile string
}

// NewService 创建登录自动化服务。
func NewService(client *portal.Client, store session.Store, messenger feishu.Messenger, cfg config.PortalConfig) *Service {
	return &Service{
		portal:    client,
		store:     store,
		messenger: messenger,
		account:   cfg.Account,
		password:  cfg.Password,
		imageFile: cfg.VerifyImageFile,
	}
}

// Check 用存储的凭证调用登录校验接口，返回是否有效与说明文字。
// 凭证文件不存在时会先初始化为空，首次运行不报错。
func (s *Service) Check(ctx context.Context) (bool, string) {
	cookie, err := s.store.Load()
	if err != nil {
		log.Printf("[login] 读取 cookie 失败: %v", err)
		return false, "读取 cookie 失败，请检查 OA_COOKIE_FILE 配置"
	}
	if cookie == "" {
		return false, "登录已失效，本地无有效 cookie"
	}

	body, err := s.portal.CheckLogin(ctx, cookie)
	if err != nil {
		return false, describeCheckError(err)
	}
	if portal.LooksLoggedIn(body) {
		return true, "登录有效"
	}
	return false, "登录已失效，请重新登录 OA"
}

// Relogin 走验证码获取路径：请求图片验证码，整体替换本地凭证，
// 再把图片送到当前会话（或无会话上下文时落盘）。
func (s *Service) Relogin(ctx context.Context, target *feishu.Target) string {
	code, err := s.portal.FetchVerifyCode(ctx)
	if err != nil {
		return describeVerifyCodeError(err)
	}

	// 验证码阶段下发的会话整体覆盖旧值，不做合并。
	if len(code.SetCookies) > 0 {
		if err := s.store.Save(session.JoinSetCookies(code.SetCookies)); err != nil {
			log.Printf("[login] 写入 cookie 失败: %v", err)
		} else {
			log.Printf("[login] 验证码会话已写入 cookie 文件")
		}
	}

	return s.deliverImage(ctx, target, code.Image)
}

// SubmitCode 用用户回复的 4 位验证码完成 validLogin。
// 无本地凭证时直接给出提示，不发起任何网络调用。
func (s *Service) SubmitCode(ctx context.Context, code string) string {
	if s.account == "" || s.password == "" {
		return "未配置 OA_ACCOUNT 或 OA_PASSWORD 环境变量"
	}

	cookie, err := s.store.Load()
	if err != nil {
		log.Printf("[login] 读取 cookie 失败: %v", err)
		return "读取 cookie 失败，请先发送「登录」获取验证码"
	}
	if cookie == "" {
		return "无有效 cookie，请先发送「登录」获取验证码后再输入验证码"
	}

	result, err := s.portal.SubmitLogin(ctx, cookie, s.account, s.password, code)
	if err != nil {
		return describeSubmitError(err)
	}

	// validLogin 下发的新会话拼在旧凭证之前。
	if len(result.SetCookies) > 0 {
		merged := session.MergePrepend(session.JoinSetCookies(result.SetCookies), cookie)
		if err := s.store.Save(merged); err != nil {
			log.Printf("[login] 写入 cookie 失败: %v", err)
		}
	}

	if result.Payload == nil {
		return "登录接口返回非 JSON"
	}
	if portalmodel.ClassifyLogin(result.Payload) == portalmodel.OutcomeSuccess {
		return "登录有效"
	}
	return "登录失败：" + portalmodel.FailureMessage(result.Payload, result.Raw)
}

// deliverImage 把验证码图片送达用户。
// 有会话上下文时走飞书上传+图片消息，任一步失败降级为部分成功提示；
// 没有上下文或飞书未配置时写入本地文件。
func (s *Service) deliverImage(ctx context.Context, target *feishu.Target, image []byte) string {
	if target != nil && s.messenger != nil {
		imageKey, err := s.messenger.UploadImage(ctx, image)
		if err != nil {
			log.Printf("[login] 上传验证码图片失败: %v", err)
			return "验证码已获取，但上传飞书失败"
		}
		if err := s.messenger.SendImage(ctx, *target, imageKey); err != nil {
			log.Printf("[login] 发送验证码图片失败: %v", err)
			return fmt.Sprintf("验证码已获取并已上传，但发送消息失败：%v", err)
		}
		return "已获取验证码并已发送至当前会话，请回复图中 4 位验证码"
	}

	if dir := filepath.Dir(s.imageFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Sprintf("验证码保存失败：%v", err)
		}
	}
	if err := os.WriteFile(s.imageFile, image, 0o600); err != nil {
		return fmt.Sprintf("验证码保存失败：%v", err)
	}
	return fmt.Sprintf("验证码已获取并保存至 %s", s.imageFile)
}

func describeCheckError(err error) string {
	if portal.IsTimeout(err) {
		return "请求超时"
	}
	var statusErr *portal.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("登录已失效（HTTP %d）", statusErr.StatusCode)
	}
	return fmt.Sprintf("请求失败：%v", err)
}

func describeVerifyCodeError(err error) string {
	if portal.IsTimeout(err) {
		return "验证码请求超时"
	}
	var statusErr *portal.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("验证码获取失败（HTTP %d）", statusErr.StatusCode)
	}
	return fmt.Sprintf("验证码请求失败：%v", err)
}

func describeSubmitError(err error) string {
	if portal.IsTimeout(err) {
		return "登录请求超时"
	}
	var statusErr *portal.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("登录请求失败（HTTP %d）", statusErr.StatusCode)
	}
	return fmt.Sprintf("登录请求失败：%v", err)
}
