package portal

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Topic 是 OA 答题接口 bmtopic/get 返回的题目记录。
// 选项字段可能缺失或为 null，解码时保留原始 JSON 类型。
type Topic struct {
	ID       any `json:"id"`
	Topic    any `json:"topic"`
	Type     any `json:"type"`
	OrderKey any `json:"orderKey"`
	Analysis any `json:"analysis"`
	Answer   any `json:"answer"`
	Status   any `json:"status"`
	AOption  any `json:"aOption"`
	BOption  any `json:"bOption"`
	COption  any `json:"cOption"`
	DOption  any `json:"dOption"`
	EOption  any `json:"eOption"`
	FOption  any `json:"fOption"`
	GOption  any `json:"gOption"`
	HOption  any `json:"hOption"`
	IOption  any `json:"iOption"`
	JOption  any `json:"jOption"`
}

// Answerable 表示题目带有 id 且答案非空，需要自动提交。
func (t *Topic) Answerable() bool {
	return t.ID != nil && t.Answer != nil
}

// DisplayAnswer 返回展示给用户的答案，answer 缺失时回退到 status。
func (t *Topic) DisplayAnswer() string {
	if t.Answer != nil {
		return jsString(t.Answer)
	}
	return jsString(t.Status)
}

// SaveAnswerForm 构造 bmtopic/saveAnswer 的 x-www-form-urlencoded 请求体。
// 字段顺序与浏览器端提交一致；a–g 选项缺失时为空串，h–j 缺失时为字面量 "null"。
func (t *Topic) SaveAnswerForm() string {
	pairs := []struct {
		key string
		val string
	}{
		{"answerTitle", "提交"},
		{"commitText", orEmpty(t.Answer)},
		{"topic", orEmpty(t.Topic)},
		{"type", orEmpty(t.Type)},
		{"topicId", orEmpty(t.ID)},
		{"orderKey", orderKeyString(t.OrderKey)},
		{"analysis", orEmpty(t.Analysis)},
		{"answer", orEmpty(t.Answer)},
		{"aOption", orEmpty(t.AOption)},
		{"bOption", orEmpty(t.BOption)},
		{"cOption", orEmpty(t.COption)},
		{"dOption", orEmpty(t.DOption)},
		{"eOption", orEmpty(t.EOption)},
		{"fOption", orEmpty(t.FOption)},
		{"gOption", orEmpty(t.GOption)},
		{"hOption", orNull(t.HOption)},
		{"iOption", orNull(t.IOption)},
		{"jOption", orNull(t.JOption)},
	}

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.val))
	}
	return b.String()
}

// jsString 按 JavaScript String() 的规则把 JSON 解码值转成字符串。
func jsString(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// orEmpty 缺失字段编码为空串。
func orEmpty(v any) string {
	if v == nil {
		return ""
	}
	return jsString(v)
}

// orNull 缺失字段编码为字面量 "null"（h–j 选项的历史行为）。
func orNull(v any) string {
	if v == nil {
		return "null"
	}
	return jsString(v)
}

// orderKeyString 对整数值的 orderKey 做向下取整的整数化（3.0 → "3"）。
func orderKeyString(v any) string {
	if v == nil {
		return ""
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatInt(int64(math.Floor(f)), 10)
	}
	return jsString(v)
}
