package push

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/KOMKZ/go-dashsync/errcode"
)

// Transport 连接传输层（可注入，测试用假传输替代真实网络）
type Transport interface {
	// Open 建立一条事件流
	Open(ctx context.Context) (Stream, error)
}

// Stream 一条已建立的事件流
type Stream interface {
	// Recv 阻塞读取下一帧载荷；流关闭或出错时返回 error
	Recv() ([]byte, error)

	// Close 关闭流
	Close() error
}

// 传输层错误码（模块码 23）
var (
	// ErrStreamRejected 服务端拒绝建流
	ErrStreamRejected = errcode.Register(errcode.New(23, 10, "push", "事件流被服务端拒绝"))

	// ErrStreamUnauthenticated 建流时认证失败
	ErrStreamUnauthenticated = errcode.Register(errcode.New(23, 11, "push", "事件流认证失败"))
)

// SSETransport 生产实现：GET <base>/events/stream 的 Server-Sent Events 流
// 会话凭证由 http.Client 的 Cookie Jar 自动携带
type SSETransport struct {
	streamURL string
	client    *http.Client
}

// NewSSETransport 创建 SSE 传输
// client 可与 API 客户端共享（共用 Cookie 会话）；nil 时用默认客户端
func NewSSETransport(streamURL string, client *http.Client) *SSETransport {
	if client == nil {
		client = &http.Client{}
	}
	return &SSETransport{streamURL: streamURL, client: client}
}

// Open 实现 Transport 接口
func (t *SSETransport) Open(ctx context.Context) (Stream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.streamURL, nil)
	if err != nil {
		return nil, ErrStreamRejected.Wrap(err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, ErrStreamRejected.Wrap(err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, ErrStreamUnauthenticated.WithData("status", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, ErrStreamRejected.WithData("status", resp.StatusCode)
	}

	return &sseStream{body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

// sseStream SSE 帧读取器
// 按空行分帧，拼接帧内的 data: 行；其余字段（event:、id:、注释）忽略
type sseStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
}

// Recv 实现 Stream 接口
func (s *sseStream) Recv() ([]byte, error) {
	var data [][]byte

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")

		// 空行 = 帧结束
		if line == "" {
			if len(data) > 0 {
				return bytes.Join(data, []byte("\n")), nil
			}
			continue
		}

		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, []byte(strings.TrimPrefix(payload, " ")))
		}
	}
}

// Close 实现 Stream 接口
func (s *sseStream) Close() error {
	return s.body.Close()
}
