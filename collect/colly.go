package collect

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Nrich-sunny/spiders/proxy"
	"github.com/gocolly/colly/v2"
	collyext "github.com/gocolly/colly/v2/extensions"
)

// CollyFetch 借助 colly 完成下载，colly 自带字符集识别
type CollyFetch struct {
	Timeout time.Duration
	Proxy   proxy.ProxyFunc
}

func (f CollyFetch) Get(req *Request) (*Response, error) {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.DetectCharset(),
	)
	collyext.RandomUserAgent(c)
	if f.Timeout > 0 {
		c.SetRequestTimeout(f.Timeout)
	}
	if f.Proxy != nil {
		c.SetProxyFunc(colly.ProxyFunc(f.Proxy))
	}

	var resp *Response
	c.OnResponse(func(r *colly.Response) {
		resp = &Response{Body: r.Body, Url: r.Request.URL.String()}
	})

	hdr := http.Header{}
	if req.Task != nil && req.Task.Cookie != "" {
		hdr.Set("Cookie", req.Task.Cookie)
	}
	if err := c.Request(http.MethodGet, req.Url, nil, nil, hdr); err != nil {
		return nil, fmt.Errorf("colly fetch %s: %w", req.Url, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("colly fetch %s: no response", req.Url)
	}
	return resp, nil
}
