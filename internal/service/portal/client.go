package portal

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/zhoulm/feishu-oa-bot/internal/config"
	portalmodel "github.com/zhoulm/feishu-oa-bot/internal/model/portal"
)

// OA 接口路径，基址可通过配置覆盖。
const (
	loginCheckPath = "/meip/loginController/getLoginInfo"
	verifyCodePath = "/meip/loginController/verifyCode/ImageCode"
	validLoginPath = "/meip/loginController/validLogin"
	topicGetPath   = "/meip/bmtopic/get"
	saveAnswerPath = "/meip/bmtopic/saveAnswer"
)

// snippetLimit 错误信息里携带的响应片段上限。
const snippetLimit = 200

// ErrNonJSON 表示期望 JSON 的接口返回了其他内容。
var ErrNonJSON = errors.New("响应不是 JSON")

// png_base64 字段以 data URL 前缀开头，固定跳过 "data:image/png;base64," 22 字节。
const dataURLPrefixLen = 22

// Client 封装对 OA 门户的四类脚本化 HTTPS 调用。
// 门户使用自签名证书，跳过证书校验是有意为之。
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient 创建 OA 门户客户端。
func NewClient(cfg config.PortalConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpc: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// StatusError 表示门户返回了非 200 状态码。
type StatusError struct {
	StatusCode int
	Snippet    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("portal returned HTTP %d: %s", e.StatusCode, e.Snippet)
}

// IsTimeout 判断错误是否由超时引起。
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// LooksLoggedIn 是登录有效性的判定谓词：响应体看起来是 JSON 对象即视为已登录。
// 登录页返回的是 HTML 文案，带用户信息的接口响应才是 JSON。
func LooksLoggedIn(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// CheckLogin 用存储的 Cookie 调用登录校验接口，返回响应体。
// 非 200 返回 *StatusError，有效性判定交给 LooksLoggedIn。
func (c *Client) CheckLogin(ctx context.Context, cookie string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginCheckPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cookie", cookie)

	return c.do(req)
}

// VerifyCode 是验证码接口的解码结果。
type VerifyCode struct {
	// Image 为解码后的验证码图片字节。
	Image []byte
	// SetCookies 为响应携带的 Set-Cookie 值，需整体替换本地凭证。
	SetCookies []string
}

// FetchVerifyCode 请求验证码图片并捕获新会话 Cookie。
// 响应可能是原始图片字节，也可能是 JSON 包裹的 base64，按 Content-Type 区分。
func (c *Client) FetchVerifyCode(ctx context.Context) (*VerifyCode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+verifyCodePath, nil)
	if err != nil {
		return nil, err
	}
	c.setVerifyCodeHeaders(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取验证码响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Snippet: snippet(body)}
	}

	result := &VerifyCode{SetCookies: resp.Header.Values("Set-Cookie")}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(contentType, "application/json") {
		var payload struct {
			PNGBase64 string `json:"png_base64"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("验证码接口返回数据解析失败: %w", err)
		}
		if len(payload.PNGBase64) > dataURLPrefixLen {
			image, err := base64.StdEncoding.DecodeString(payload.PNGBase64[dataURLPrefixLen:])
			if err != nil {
				return nil, fmt.Errorf("验证码图片 base64 解码失败: %w", err)
			}
			result.Image = image
		}
	}
	if result.Image == nil && len(body) > 0 {
		result.Image = body
	}
	if result.Image == nil {
		return nil, errors.New("验证码接口返回格式未知")
	}
	return result, nil
}

// LoginResult 是 validLogin 接口的解码结果。
type LoginResult struct {
	// SetCookies 为登录成功时下发的新会话，需要与旧凭证合并。
	SetCookies []string
	// Payload 为解析后的 JSON 响应；响应非 JSON 时为 nil。
	Payload map[string]any
	Raw     string
}

// SubmitLogin 携带账号、密码与验证码调用 validLogin。
func (c *Client) SubmitLogin(ctx context.Context, cookie, account, password, code string) (*LoginResult, error) {
	form := url.Values{}
	form.Set("account", account)
	form.Set("password", password)
	form.Set("mxAccount", "null")
	form.Set("imgCode", strings.TrimSpace(code))
	body := form.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+validLoginPath, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setValidLoginHeaders(req)
	req.Header.Set("Cookie", cookie)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取登录响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Snippet: snippet(raw)}
	}

	result := &LoginResult{
		SetCookies: resp.Header.Values("Set-Cookie"),
		Raw:        string(raw),
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err == nil {
		result.Payload = payload
	}
	return result, nil
}

// GetTopic 请求当日题目，需要已登录的 Cookie 以及 aaaaa 令牌（存在时）。
func (c *Client) GetTopic(ctx context.Context, cookie, aaaaa string) (*portalmodel.Topic, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+topicGetPath, nil)
	if err != nil {
		return nil, err
	}
	c.setTopicHeaders(req)
	req.Header.Set("Cookie", cookie)
	if aaaaa != "" {
		req.Header.Set("aaaaa", aaaaa)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var topic portalmodel.Topic
	if err := json.Unmarshal(body, &topic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNonJSON, err)
	}
	return &topic, nil
}

// SubmitResult 是 saveAnswer 接口的解码结果。
type SubmitResult struct {
	// Payload 为解析后的 JSON 响应；响应非 JSON 时为 nil。
	Payload map[string]any
	Raw     string
}

// SaveAnswer 按固定字段顺序提交答案。
func (c *Client) SaveAnswer(ctx context.Context, topic *portalmodel.Topic, cookie, aaaaa string) (*SubmitResult, error) {
	body := topic.SaveAnswerForm()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+saveAnswerPath, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setSaveAnswerHeaders(req)
	req.Header.Set("Cookie", cookie)
	if aaaaa != "" {
		req.Header.Set("aaaaa", aaaaa)
	}

	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	result := &SubmitResult{Raw: string(raw)}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err == nil {
		result.Payload = payload
	}
	return result, nil
}

// do 执行请求并读取响应体，非 200 转为 *StatusError。
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Snippet: snippet(body)}
	}
	return body, nil
}

func snippet(body []byte) string {
	if len(body) > snippetLimit {
		body = body[:snippetLimit]
	}
	return string(body)
}
