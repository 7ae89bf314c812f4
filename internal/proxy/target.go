package proxy

import (
	"net/url"
	"strings"

	autherror "github.com/proxygate/proxygate/internal/errors"
)

// ResolveTarget rebuilds the destination URL for a proxied request. The
// explicit url query parameter wins; otherwise the wildcard path segment is
// used, gaining the default scheme when it carries none. Query parameters
// other than url and token are forwarded to the target.
func ResolveTarget(path string, query url.Values, defaultScheme string, allowedSchemes ...string) (string, error) {
	target := query.Get("url")

	if target == "" {
		path = restoreCollapsedScheme(path)
		switch {
		case hasScheme(path):
			target = path
		case !strings.Contains(path, "://"):
			target = defaultScheme + "://" + path
		default:
			return "", autherror.ErrBadTargetURL
		}
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return "", autherror.ErrBadTargetURL
	}

	allowed := false
	for _, scheme := range allowedSchemes {
		if parsed.Scheme == scheme {
			allowed = true
			break
		}
	}
	if !allowed || parsed.Host == "" {
		return "", autherror.ErrBadTargetURL
	}

	forward := url.Values{}
	for key, vals := range query {
		if key == "url" || key == "token" {
			continue
		}
		forward[key] = vals
	}
	if len(forward) > 0 {
		if parsed.RawQuery != "" {
			parsed.RawQuery += "&" + forward.Encode()
		} else {
			parsed.RawQuery = forward.Encode()
		}
	}

	return parsed.String(), nil
}

func hasScheme(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "ws://") || strings.HasPrefix(path, "wss://")
}

// restoreCollapsedScheme undoes the router's path normalization, which
// collapses the double slash of a scheme embedded in the path ("http://h"
// arrives as "http:/h"). It applies to any scheme-shaped prefix so that a
// disallowed scheme is still recognized as one and rejected.
func restoreCollapsedScheme(path string) string {
	i := strings.Index(path, ":/")
	if i <= 0 || strings.HasPrefix(path[i+1:], "//") || !isSchemeName(path[:i]) {
		return path
	}
	return path[:i] + "://" + path[i+2:]
}

func isSchemeName(s string) bool {
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
