package collect

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Nrich-sunny/spiders/extensions"
	"github.com/Nrich-sunny/spiders/proxy"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var ErrBadStatus = errors.New("unexpected status code")

// Response 抓取结果，Url 为跟随重定向之后的最终地址
type Response struct {
	Body []byte
	Url  string
}

type Fetcher interface {
	Get(req *Request) (*Response, error)
}

type BaseFetch struct {
}

func (BaseFetch) Get(req *Request) (*Response, error) {
	resp, err := http.Get(req.Url)
	if err != nil {
		return nil, fmt.Errorf("get url failed: %w", err)
	}
	defer resp.Body.Close()

	return readBody(resp)
}

// BrowserFetch 模拟浏览器访问
type BrowserFetch struct {
	Timeout time.Duration
	Proxy   proxy.ProxyFunc // 是 Transport 结构体中的函数
	Logger  *zap.Logger
}

func (b BrowserFetch) Get(request *Request) (*Response, error) {
	client := &http.Client{
		Timeout: b.Timeout,
	}

	if b.Proxy != nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.Proxy = b.Proxy // 将其替换为自定义的代理函数
		client.Transport = transport
	}

	req, err := http.NewRequest(http.MethodGet, request.Url, nil)
	if err != nil {
		return nil, fmt.Errorf("get url failed: %w", err)
	}

	if request.Task != nil && len(request.Task.Cookie) > 0 {
		req.Header.Set("Cookie", request.Task.Cookie)
	}
	req.Header.Set("User-Agent", extensions.GenerateRandomUA())

	resp, err := client.Do(req)
	if err != nil {
		if b.Logger != nil {
			b.Logger.Error("fetch failed", zap.String("url", request.Url), zap.Error(err))
		}
		return nil, err
	}
	defer resp.Body.Close()

	return readBody(resp)
}

func readBody(resp *http.Response) (*Response, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	bodyReader := bufio.NewReader(resp.Body)
	e := DetermineEncoding(bodyReader, resp.Header.Get("Content-Type"))
	utf8Reader := transform.NewReader(bodyReader, e.NewDecoder())
	body, err := io.ReadAll(utf8Reader)
	if err != nil {
		return nil, err
	}
	return &Response{Body: body, Url: resp.Request.URL.String()}, nil
}

// DetermineEncoding 根据前 1024 字节与 Content-Type 推断页面编码
func DetermineEncoding(r *bufio.Reader, contentType string) encoding.Encoding {
	bytes, err := r.Peek(1024)
	if len(bytes) == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			zap.S().Debugw("peek body failed", "error", err)
		}
		return unicode.UTF8
	}

	e, _, _ := charset.DetermineEncoding(bytes, contentType)
	return e
}
