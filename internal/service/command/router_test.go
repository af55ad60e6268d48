package command

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zhoulm/feishu-oa-bot/internal/config"
	"github.com/zhoulm/feishu-oa-bot/internal/model/session"
	"github.com/zhoulm/feishu-oa-bot/internal/service/login"
	"github.com/zhoulm/feishu-oa-bot/internal/service/portal"
	"github.com/zhoulm/feishu-oa-bot/internal/service/quiz"
)

func newTestRouter(t *testing.T, handler http.Handler) (*Router, *session.FileStore) {
	t.Helper()

	if handler == nil {
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected portal call: %s %s", r.Method, r.URL.Path)
		})
	}
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.PortalConfig{
		BaseURL:         srv.URL,
		Account:         "user1",
		Password:        "pass1",
		CookieFile:      filepath.Join(t.TempDir(), ".oa-cookie"),
		VerifyImageFile: filepath.Join(t.TempDir(), ".oa-verify-code.png"),
		Timeout:         2 * time.Second,
	}
	store := session.NewFileStore(cfg.CookieFile)
	client := portal.NewClient(cfg)
	loginSvc := login.NewService(client, store, nil, cfg)
	quizSvc := quiz.NewService(client, store)
	return NewRouter(loginSvc, quizSvc, nil), store
}

func TestFourCharCodeWithoutSessionSkipsNetwork(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	reply := r.Reply(context.Background(), "ab12", nil)
	if !strings.Contains(reply, "无有效 cookie") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestQuizRequiresLogin(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	reply := r.Reply(context.Background(), "答题", nil)
	if !strings.Contains(reply, "请先发送「登录」") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestLoginKeywordWithValidSession(t *testing.T) {
	r, store := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meip/loginController/getLoginInfo" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"userId":"u1"}`))
	}))
	store.Save("JSESSIONID=abc")

	reply := r.Reply(context.Background(), "登录", nil)
	if reply != "登录成功" {
		t.Fatalf("reply = %q", reply)
	}
}

func TestLoginKeywordWithStaleSessionFetchesVerifyCode(t *testing.T) {
	r, store := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/meip/loginController/getLoginInfo":
			w.Write([]byte("<html>请登录</html>"))
		case "/meip/loginController/verifyCode/ImageCode":
			w.Header().Add("Set-Cookie", "JSESSIONID=fresh; Path=/")
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte("png-bytes"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	store.Save("JSESSIONID=stale")

	reply := r.Reply(context.Background(), "登录", nil)
	if !strings.Contains(reply, "登录已失效") || !strings.Contains(reply, "验证码") {
		t.Fatalf("reply = %q", reply)
	}

	cookie, _ := store.Load()
	if cookie != "JSESSIONID=fresh; Path=/" {
		t.Fatalf("cookie = %q", cookie)
	}
}

// 含「登录」的 4 字文本应命中登录分支，而不是当成验证码提交。
func TestLoginKeywordWinsOverFourCharRule(t *testing.T) {
	r, store := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meip/loginController/getLoginInfo" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"userId":"u1"}`))
	}))
	store.Save("JSESSIONID=abc")

	reply := r.Reply(context.Background(), "登录状态", nil)
	if reply != "登录成功" {
		t.Fatalf("reply = %q", reply)
	}
}

func TestFallbackHelpText(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	for _, text := range []string{"你好啊朋友们", "hello", ""} {
		if reply := r.Reply(context.Background(), text, nil); reply != HelpText {
			t.Fatalf("Reply(%q) = %q, want help text", text, reply)
		}
	}
}

func TestCodeIsTrimmedAndLowercased(t *testing.T) {
	var submitted string
	r, store := newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/meip/loginController/validLogin" {
			t.Errorf("unexpected path %s", req.URL.Path)
		}
		req.ParseForm()
		submitted = req.PostFormValue("imgCode")
		w.Write([]byte(`{"success":true}`))
	}))
	store.Save("JSESSIONID=abc")

	reply := r.Reply(context.Background(), "  AB12  ", nil)
	if reply != "登录有效" {
		t.Fatalf("reply = %q", reply)
	}
	if submitted != "ab12" {
		t.Fatalf("imgCode = %q", submitted)
	}
}
