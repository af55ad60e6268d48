package quiz

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zhoulm/feishu-oa-bot/internal/config"
	"github.com/zhoulm/feishu-oa-bot/internal/model/session"
	"github.com/zhoulm/feishu-oa-bot/internal/service/portal"
)

func newTestService(t *testing.T, handler http.Handler) (*Service, *session.FileStore) {
	t.Helper()

	if handler == nil {
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected portal call: %s %s", r.Method, r.URL.Path)
		})
	}
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.PortalConfig{
		BaseURL:    srv.URL,
		CookieFile: filepath.Join(t.TempDir(), ".oa-cookie"),
		Timeout:    2 * time.Second,
	}
	store := session.NewFileStore(cfg.CookieFile)
	return NewService(portal.NewClient(cfg), store), store
}

func TestAnswerRequiresLogin(t *testing.T) {
	svc, _ := newTestService(t, nil)

	msg := svc.Answer(context.Background())
	if !strings.Contains(msg, "请先发送「登录」") {
		t.Fatalf("msg = %q", msg)
	}
}

func TestAnswerNotAnswerableShowsStatus(t *testing.T) {
	svc, store := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meip/bmtopic/get" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":101,"topic":"今日学习","status":"已完成","answer":null}`))
	}))
	store.Save("JSESSIONID=abc")

	msg := svc.Answer(context.Background())
	if msg != "今日答案：已完成" {
		t.Fatalf("msg = %q", msg)
	}
}

func TestAnswerAutoSubmits(t *testing.T) {
	var savedBody string
	var savedAaaaa string
	svc, store := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/meip/bmtopic/get":
			if got := r.Header.Get("aaaaa"); got != "tok1" {
				t.Errorf("aaaaa header = %q", got)
			}
			w.Write([]byte(`{"id":101,"topic":"每日一题","type":1,"orderKey":7,"analysis":"解析","answer":"B","status":1,"aOption":"甲","bOption":"乙"}`))
		case "/meip/bmtopic/saveAnswer":
			savedAaaaa = r.Header.Get("aaaaa")
			body, _ := io.ReadAll(r.Body)
			savedBody = string(body)
			w.Write([]byte(`{"isRight":"10"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	store.Save("JSESSIONID=abc; aaaaa=tok1")

	msg := svc.Answer(context.Background())
	if msg != "今日答案：B\n已自动提交" {
		t.Fatalf("msg = %q", msg)
	}
	if savedAaaaa != "tok1" {
		t.Fatalf("saveAnswer aaaaa header = %q", savedAaaaa)
	}
	if !strings.HasPrefix(savedBody, "answerTitle=") {
		t.Fatalf("form should start with answerTitle, got %q", savedBody)
	}
	// 空选项按原接口契约取空串，h 及之后缺省为字面 null。
	for _, fragment := range []string{"topicId=101", "answer=B", "cOption=", "hOption=null", "jOption=null"} {
		if !strings.Contains(savedBody, fragment) {
			t.Errorf("form missing %q: %q", fragment, savedBody)
		}
	}
}

func TestAnswerAlreadySubmitted(t *testing.T) {
	svc, store := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/meip/bmtopic/get":
			w.Write([]byte(`{"id":101,"answer":"A","status":1}`))
		case "/meip/bmtopic/saveAnswer":
			w.Write([]byte(`{"isRight":"0","msg":"今日已答"}`))
		}
	}))
	store.Save("JSESSIONID=abc")

	msg := svc.Answer(context.Background())
	if msg != "今日答案：A\n今日已答题，无需重复提交：今日已答" {
		t.Fatalf("msg = %q", msg)
	}
}

func TestAnswerNonJSONTopic(t *testing.T) {
	svc, store := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>登录页</html>"))
	}))
	store.Save("JSESSIONID=expired")

	msg := svc.Answer(context.Background())
	if msg != "答题接口返回非 JSON" {
		t.Fatalf("msg = %q", msg)
	}
}

func TestAnswerSubmitHTTPError(t *testing.T) {
	svc, store := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/meip/bmtopic/get":
			w.Write([]byte(`{"id":101,"answer":"A"}`))
		case "/meip/bmtopic/saveAnswer":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		}
	}))
	store.Save("JSESSIONID=abc")

	msg := svc.Answer(context.Background())
	if msg != "今日答案：A\n提交接口 HTTP 500：boom" {
		t.Fatalf("msg = %q", msg)
	}
}
