package util

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

// LogHandler provides middleware that logs all requests and response codes
// using logrus.
func LogHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rwi := &rwInterceptor{ResponseWriter: w}
		next.ServeHTTP(rwi, r)

		switch code := rwi.statusCode; {
		case code >= 500:
			log.Errorf("%s %s -> %d", r.Method, r.URL.Path, code)
		case code >= 400:
			log.Warnf("%s %s -> %d", r.Method, r.URL.Path, code)
		default:
			log.Debugf("%s %s -> %d", r.Method, r.URL.Path, code)
		}
	})
}

type rwInterceptor struct {
	http.ResponseWriter
	statusCode int
}

func (rwi *rwInterceptor) WriteHeader(code int) {
	rwi.statusCode = code
	rwi.ResponseWriter.WriteHeader(code)
}

func (rwi *rwInterceptor) Write(b []byte) (int, error) {
	if rwi.statusCode == 0 {
		rwi.WriteHeader(http.StatusOK)
	}
	return rwi.ResponseWriter.Write(b)
}

func (rwi *rwInterceptor) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return rwi.ResponseWriter.(http.Hijacker).Hijack()
}

// DetermineFullURLRoot normalizes the configured URL root to an absolute URL
// so that locators handed out to media devices resolve outside of a browsing
// context.
func DetermineFullURLRoot(root, address string) (string, error) {
	// Handle "http://host:port/".
	if regexp.MustCompile(`^https?://`).MatchString(root) {
		return root, nil
	}
	// Handle "//host:port/". Assume plain HTTP.
	if regexp.MustCompile(`^//.`).MatchString(root) {
		return "http:" + root, nil
	}
	// Handle "/".
	if root == "/" {
		i := strings.LastIndex(address, ":")
		host, port := address[:i], address[i+1:]
		if host == "" || host == "0.0.0.0" {
			host = "127.0.0.1"
		} else if host == "[::]" {
			host = "[::1]"
		}
		return fmt.Sprintf("http://%s:%s/", host, port), nil
	}
	return "", fmt.Errorf("unsupported URL root format: %q", root)
}
