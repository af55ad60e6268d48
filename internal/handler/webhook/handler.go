package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/zhoulm/feishu-oa-bot/internal/service/command"
	"github.com/zhoulm/feishu-oa-bot/internal/service/feishu"
	"github.com/zhoulm/feishu-oa-bot/pkg/utils"
)

// 飞书可能因超时重推同一事件，按 message_id 去重。
const (
	dedupCacheSize = 2048
	dedupTTL       = 10 * time.Minute
)

const eventTypeMessageReceive = "im.message.receive_v1"

// Handler 处理飞书事件回调：URL 校验同步应答，消息事件解析后
// 交给指令路由并把回复发回会话。事件分发中的失败只记日志，
// 响应仍为 200，避免飞书按失败重推造成风暴。
type Handler struct {
	messenger  feishu.Messenger // nil 表示应用凭证未配置
	commands   *command.Router
	dedup      *expirable.LRU[string, time.Time]
	strictBody bool
}

// New 创建回调处理器。
func New(messenger feishu.Messenger, commands *command.Router, strictBody bool) *Handler {
	return &Handler{
		messenger:  messenger,
		commands:   commands,
		dedup:      expirable.NewLRU[string, time.Time](dedupCacheSize, nil, dedupTTL),
		strictBody: strictBody,
	}
}

// envelope 是回调请求体的外层结构。
// encoding/json 的字段匹配不区分大小写，顶层 challenge/CHALLENGE 两种写法都会命中。
type envelope struct {
	Type      string       `json:"type"`
	Challenge string       `json:"challenge"`
	Encrypt   string       `json:"encrypt"`
	Header    eventHeader  `json:"header"`
	Event     messageEvent `json:"event"`
}

type eventHeader struct {
	EventType string `json:"event_type"`
	TenantKey string `json:"tenant_key"`
}

type messageEvent struct {
	Sender struct {
		SenderID flexID `json:"sender_id"`
		OpenID   string `json:"open_id"`
	} `json:"sender"`
	Message struct {
		MessageID string `json:"message_id"`
		ChatID    string `json:"chat_id"`
		ChatType  string `json:"chat_type"`
		Content   string `json:"content"`
		SenderID  flexID `json:"sender_id"`
	} `json:"message"`
}

// flexID 兼容发送方标识的两种形态：纯字符串，或 {open_id, union_id, user_id} 对象。
type flexID struct {
	value string
}

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.value = s
		return nil
	}
	var obj struct {
		OpenID string `json:"open_id"`
	}
	// 无法识别的形态按空值处理，不让单个字段拖垮整个事件。
	if err := json.Unmarshal(data, &obj); err == nil {
		f.value = obj.OpenID
	}
	return nil
}

// Handle 是 POST /api/feishu 的入口。
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("[webhook] 读取请求体失败: %v", err)
		raw = nil
	}

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if h.strictBody {
				utils.RespondError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			// 宽容模式：当作空请求体继续走流程。
			env = envelope{}
		}
	}

	// URL 校验优先，且不依赖任何配置；飞书要求 1 秒内原样回显 challenge。
	if env.Challenge != "" {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"challenge": env.Challenge})
		return
	}

	// 加密事件需要 Encrypt Key 解密，这里明确不支持：记日志后按已受理应答。
	if env.Encrypt != "" {
		log.Printf("[webhook] 收到加密事件但未配置解密，已忽略")
		utils.RespondJSON(w, http.StatusOK, map[string]any{})
		return
	}

	if h.messenger == nil {
		log.Printf("[webhook] APP_ID 或 APP_SECRET 未配置")
		utils.RespondError(w, http.StatusInternalServerError, "Server configuration error")
		return
	}

	if env.Header.EventType == eventTypeMessageReceive {
		h.dispatch(r.Context(), &env)
	}

	// 其他事件或处理完毕，一律 200，且必须为合法 JSON。
	utils.RespondJSON(w, http.StatusOK, map[string]any{})
}

// dispatch 解析消息事件并发送回复。任何失败都在此吞掉并记日志。
func (h *Handler) dispatch(ctx context.Context, env *envelope) {
	msg := &env.Event.Message

	if msg.MessageID != "" {
		if _, seen := h.dedup.Get(msg.MessageID); seen {
			log.Printf("[webhook] 跳过重推的消息 message_id=%s", msg.MessageID)
			return
		}
		h.dedup.Add(msg.MessageID, time.Now())
	}

	var content struct {
		Text string `json:"text"`
	}
	if msg.Content != "" {
		if err := json.Unmarshal([]byte(msg.Content), &content); err != nil {
			log.Printf("[webhook] 解析消息 content 失败: %v", err)
		}
	}

	target := h.resolveTarget(env)
	reply := h.commands.Reply(ctx, content.Text, target)

	if target == nil {
		log.Printf("[webhook] 无法解析 receive_id（open_id 或 chat_id），丢弃回复")
		return
	}
	if err := h.messenger.SendText(ctx, *target, reply); err != nil {
		log.Printf("[webhook] 发送回复失败: %v", err)
	}
}

// resolveTarget 决定回复地址：单聊回发送者的 open_id，群聊回 chat_id。
func (h *Handler) resolveTarget(env *envelope) *feishu.Target {
	msg := &env.Event.Message
	sender := &env.Event.Sender

	target := feishu.Target{TenantKey: env.Header.TenantKey}
	if strings.EqualFold(msg.ChatType, "p2p") {
		target.ReceiveIDType = feishu.ReceiveIDTypeOpenID
		target.ReceiveID = firstNonEmpty(sender.SenderID.value, sender.OpenID, msg.SenderID.value)
	} else {
		target.ReceiveIDType = feishu.ReceiveIDTypeChatID
		target.ReceiveID = msg.ChatID
	}
	if target.ReceiveID == "" {
		return nil
	}
	return &target
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
