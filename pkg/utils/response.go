package utils

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

// RespondJSON 发送严格 JSON 响应：先序列化再写入，并带精确的 Content-Length。
// 飞书的回调校验要求响应体是合法 JSON 且无多余字节。
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to encode response: %v", err)
		body = []byte("{}")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

// RespondError 发送错误响应。
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}
