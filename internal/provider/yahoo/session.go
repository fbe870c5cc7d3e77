package yahoo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// session holds the cookie and crumb Yahoo requires on quote requests.
type session struct {
	mu      sync.Mutex
	cookies []*http.Cookie
	crumb   string
}

// crumb returns the session crumb, running the cookie and crumb handshake
// when there is none yet or refresh is set.
func (c *Client) crumb(ctx context.Context, refresh bool) (string, []*http.Cookie, error) {
	s := c.session
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.crumb != "" && !refresh {
		return s.crumb, s.cookies, nil
	}

	// fc.yahoo.com answers 404 but still sets the cookie.
	res, err := c.get(ctx, c.cookieURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("fetching cookie: %w", err)
	}
	_, _ = io.Copy(io.Discard, res.Body)
	res.Body.Close()
	cookies := res.Cookies()

	res, err = c.get(ctx, c.baseURL+"/v1/test/getcrumb", cookies)
	if err != nil {
		return "", nil, fmt.Errorf("fetching crumb: %w", err)
	}
	defer res.Body.Close()
	if err := checkStatus(res); err != nil {
		return "", nil, fmt.Errorf("fetching crumb: %w", err)
	}
	b, err := io.ReadAll(io.LimitReader(res.Body, 1<<10))
	if err != nil {
		return "", nil, fmt.Errorf("reading crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(b))
	if crumb == "" || strings.ContainsAny(crumb, "<{") {
		return "", nil, fmt.Errorf("fetching crumb: empty crumb")
	}

	s.crumb, s.cookies = crumb, cookies
	return crumb, cookies, nil
}

func (c *Client) get(ctx context.Context, u string, cookies []*http.Cookie) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return c.httpClient.Do(req)
}
