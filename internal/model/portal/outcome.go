package portal

import "encoding/json"

// Outcome 归一化 OA 各接口五花八门的"成功"编码。
// 登录接口见过三种等价写法：success 布尔、result 数字 0、status 字符串 "0"。
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

// ClassifyLogin 判定 validLogin 响应是否成功。
// 响应不是 JSON 对象时返回 OutcomeUnknown。
func ClassifyLogin(payload map[string]any) Outcome {
	if payload == nil {
		return OutcomeUnknown
	}
	if success, ok := payload["success"].(bool); ok && success {
		return OutcomeSuccess
	}
	code, ok := payload["result"]
	if !ok {
		code = payload["status"]
	}
	if isZeroCode(code) {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// AnswerAccepted 判定 saveAnswer 响应是否为"已受理"。
// 服务端用 isRight == "10" 表示提交成功；其余可解析响应视为当日已答题。
func AnswerAccepted(payload map[string]any) bool {
	switch v := payload["isRight"].(type) {
	case string:
		return v == "10"
	case float64:
		return v == 10
	default:
		return false
	}
}

// FailureMessage 从失败响应中挑出给用户看的说明文字。
func FailureMessage(payload map[string]any, raw string) string {
	for _, key := range []string{"message", "msg", "error"} {
		if v, ok := payload[key]; ok && v != nil {
			if s, ok := v.(string); ok {
				return s
			}
			if data, err := json.Marshal(v); err == nil {
				return string(data)
			}
		}
	}
	return raw
}

// isZeroCode 同时接受数字 0 与字符串 "0"。
func isZeroCode(v any) bool {
	switch t := v.(type) {
	case float64:
		return t == 0
	case string:
		return t == "0"
	case json.Number:
		return t.String() == "0"
	default:
		return false
	}
}
