// Package api 实现实体 REST 契约的类型化 HTTP 客户端
// 认证靠 Cookie 会话凭证（随请求自动携带），401/403 映射为未认证错误
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/KOMKZ/go-dashsync/entity"
	"github.com/KOMKZ/go-dashsync/logger"
	"go.uber.org/zap"
)

// Client 实体 REST 客户端
type Client struct {
	config  *Config
	baseURL *url.URL
	http    *http.Client
	logger  *logger.CtxZapLogger
}

// ClientOption 客户端选项
type ClientOption func(*Client)

// WithLogger 注入日志
func WithLogger(l *logger.CtxZapLogger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient 注入自定义 http.Client（测试用）
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient 创建客户端
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, ErrRequestFailed.WithMsgf("基地址不合法: %s", cfg.BaseURL).Wrap(err)
	}

	c := &Client{config: cfg, baseURL: base}
	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		jar, _ := cookiejar.New(nil)
		c.http = &http.Client{Timeout: cfg.Timeout, Jar: jar}
	}

	return c, nil
}

// SetSessionToken 写入会话 Cookie（登录后由外层注入）
func (c *Client) SetSessionToken(token string) {
	if c.http.Jar == nil {
		return
	}
	c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{
		{Name: c.config.CookieName, Value: token, Path: "/"},
	})
}

// HTTPClient 暴露底层 http.Client，供事件流传输共享 Cookie 会话
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// BaseURL 服务端基地址
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SessionToken 读取当前会话 Cookie 值（没有则返回空串）
func (c *Client) SessionToken() string {
	if c.http.Jar == nil {
		return ""
	}
	for _, ck := range c.http.Jar.Cookies(c.baseURL) {
		if ck.Name == c.config.CookieName {
			return ck.Value
		}
	}
	return ""
}

// ============================================================
// 实体操作
// ============================================================

// List 列表查询
func (c *Client) List(ctx context.Context, kind entity.Kind, params map[string]string) (entity.Page, error) {
	var page entity.Page
	err := c.doJSON(ctx, http.MethodGet, c.listPath(kind), params, nil, &page)
	return page, err
}

// Get 按 id 查询详情
func (c *Client) Get(ctx context.Context, kind entity.Kind, id string) (entity.Item, error) {
	var item entity.Item
	err := c.doJSON(ctx, http.MethodGet, c.detailPath(kind, id), nil, nil, &item)
	return item, err
}

// Update 更新实体，返回服务端权威的变更后状态
func (c *Client) Update(ctx context.Context, kind entity.Kind, id string, patch map[string]any) (entity.Item, error) {
	var item entity.Item
	err := c.doJSON(ctx, http.MethodPut, c.detailPath(kind, id), nil, patch, &item)
	return item, err
}

// Delete 删除实体
func (c *Client) Delete(ctx context.Context, kind entity.Kind, id string) error {
	return c.doJSON(ctx, http.MethodDelete, c.detailPath(kind, id), nil, nil, nil)
}

// Stats 统计查询（只读，与列表同样被缓存）
func (c *Client) Stats(ctx context.Context, kind entity.Kind, params map[string]string) (map[string]any, error) {
	var stats map[string]any
	err := c.doJSON(ctx, http.MethodGet, c.statsPath(kind), params, nil, &stats)
	return stats, err
}

// ============================================================
// 路径映射（跟随服务端路由）
// ============================================================

// kindPath 实体类型到路由前缀
// decision 挂在 risks 路由下（服务端如此组织）
func kindPath(kind entity.Kind) string {
	switch kind {
	case entity.KindDecision:
		return "risks/decisions"
	default:
		return string(kind) + "s"
	}
}

func (c *Client) listPath(kind entity.Kind) string {
	return "/" + kindPath(kind) + "/"
}

func (c *Client) detailPath(kind entity.Kind, id string) string {
	return "/" + kindPath(kind) + "/" + url.PathEscape(id)
}

func (c *Client) statsPath(kind entity.Kind) string {
	return "/" + kindPath(kind) + "/stats"
}

// ============================================================
// 请求执行
// ============================================================

// doJSON 执行一次 JSON 请求并按错误分级映射
func (c *Client) doJSON(ctx context.Context, method, path string, params map[string]string, body any, out any) error {
	u := c.resolve(path, params)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return ErrRequestFailed.WithMsg("请求体序列化失败").Wrap(err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return ErrRequestFailed.Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// 传输层失败视为瞬时
		return ErrServerUnavailable.Wrap(err)
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.DebugCtx(ctx, "api 请求完成",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthenticated.WithData("status", resp.StatusCode)
	case resp.StatusCode >= 500:
		return ErrServerUnavailable.WithData("status", resp.StatusCode).
			WithMsgf("服务端错误: %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return ErrRequestFailed.WithData("status", resp.StatusCode).
			WithMsgf("请求失败: %d %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ErrDecode.Wrap(err)
	}
	return nil
}

// resolve 拼接基地址、路径与查询参数
func (c *Client) resolve(path string, params map[string]string) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path

	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			if v != "" {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}
