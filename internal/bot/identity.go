package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// ErrCookieExpired means the room hall did not recognize the cookie.
var ErrCookieExpired = errors.New("cookie expired")

var userLinkRe = regexp.MustCompile(`/user/(\d+)`)

var hallClient = &http.Client{Timeout: 30 * time.Second}

// LookupUID fetches the room hall page as the cookie's owner and reads the
// user id from the profile link it renders.
func LookupUID(ctx context.Context, hallURL, cookie string) (uint32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hallURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Cookie", cookie)

	resp, err := hallClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("hall request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read hall: %w", err)
	}
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("GET %s: status %d", hallURL, resp.StatusCode)
	}

	m := userLinkRe.FindSubmatch(body)
	if m == nil {
		return 0, ErrCookieExpired
	}
	uid, err := strconv.ParseUint(string(m[1]), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse uid %q: %w", m[1], err)
	}
	return uint32(uid), nil
}
