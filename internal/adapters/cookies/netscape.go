package cookies

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const httpOnlyPrefix = "#HttpOnly_"

// Parse reads a Netscape-format cookie file, the format yt-dlp and browser
// export extensions produce. Comment and blank lines are skipped.
func Parse(data []byte) ([]*http.Cookie, error) {
	var out []*http.Cookie
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			httpOnly = true
			line = strings.TrimPrefix(line, httpOnlyPrefix)
		}
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return nil, fmt.Errorf("%w: line %d has %d fields, want 7", ErrInvalidCookies, lineNo, len(fields))
		}
		cookie := &http.Cookie{
			Domain:   strings.TrimPrefix(fields[0], "."),
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			Name:     fields[5],
			Value:    fields[6],
			HttpOnly: httpOnly,
		}
		if expires, err := strconv.ParseInt(fields[4], 10, 64); err == nil && expires > 0 {
			cookie.Expires = time.Unix(expires, 0).UTC()
		}
		out = append(out, cookie)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCookies, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no cookies found", ErrInvalidCookies)
	}
	return out, nil
}

// LoadFile parses the cookie file at path.
func LoadFile(path string) ([]*http.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}
	return Parse(data)
}

// ForHost returns the unexpired cookies whose domain matches host.
func ForHost(all []*http.Cookie, host string, now time.Time) []*http.Cookie {
	host = strings.ToLower(host)
	var out []*http.Cookie
	for _, c := range all {
		domain := strings.ToLower(c.Domain)
		if host != domain && !strings.HasSuffix(host, "."+domain) {
			continue
		}
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		out = append(out, c)
	}
	return out
}
