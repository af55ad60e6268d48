package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store 持久化 OA 会话凭证（完整 Cookie 字符串）。
// 全局仅有一份凭证，有效性由 OA 登录校验接口判断，本地不做过期管理。
type Store interface {
	// Load 读取当前凭证；文件不存在时先创建空文件并返回空串。
	Load() (string, error)
	// Save 覆盖写入凭证。
	Save(cookie string) error
}

// FileStore 将凭证保存为单个平面文件。
type FileStore struct {
	path string
}

// NewFileStore 创建基于文件的凭证存储。
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path 返回凭证文件路径。
func (s *FileStore) Path() string {
	return s.path
}

// Load 读取凭证文件。首次运行时文件不存在，创建空文件而不是报错。
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		if err := s.Save(""); err != nil {
			return "", fmt.Errorf("初始化 cookie 文件失败: %w", err)
		}
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("读取 cookie 文件失败: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save 原子写入：先写临时文件再重命名，避免读到半截内容。
func (s *FileStore) Save(cookie string) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建 cookie 目录失败: %w", err)
		}
	}
	tmp := s.path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, []byte(cookie), 0o600); err != nil {
		return fmt.Errorf("写入 cookie 临时文件失败: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("替换 cookie 文件失败: %w", err)
	}
	return nil
}

// CookieValue 从 Cookie 字符串中取出指定 name 的值，找不到返回空串。
func CookieValue(cookieStr, name string) string {
	if cookieStr == "" || name == "" {
		return ""
	}
	for _, part := range strings.Split(cookieStr, ";") {
		part = strings.TrimSpace(part)
		eq := strings.Index(part, "=")
		if eq <= 0 {
			continue
		}
		if strings.TrimSpace(part[:eq]) == name {
			return strings.TrimSpace(part[eq+1:])
		}
	}
	return ""
}

// JoinSetCookies 将响应中的多个 Set-Cookie 值合并为一个 Cookie 字符串。
func JoinSetCookies(setCookies []string) string {
	return strings.Join(setCookies, "; ")
}

// MergePrepend 把新获取的 Cookie 拼到旧凭证之前。
// validLogin 下发的会话要优先于验证码阶段留下的旧值。
func MergePrepend(fresh, old string) string {
	if old == "" {
		return fresh
	}
	return fresh + ";" + old
}
