package sessionless

import (
	"fmt"
	"net/http"
	"strings"
)

// Extractor pulls a candidate token from a request. An empty string means
// the source had nothing; extractors never fail.
type Extractor func(r *http.Request) string

// FromBearerToken reads "Authorization: Bearer <token>". The scheme is
// matched case-insensitively.
func FromBearerToken() Extractor {
	return FromAuthScheme("Bearer")
}

// FromAuthScheme reads "Authorization: <scheme> <token>".
func FromAuthScheme(scheme string) Extractor {
	scheme = strings.TrimSpace(scheme)
	return func(r *http.Request) string {
		value := r.Header.Get("Authorization")
		l := len(scheme)
		if l == 0 || len(value) < l+2 || value[l] != ' ' || !strings.EqualFold(value[:l], scheme) {
			return ""
		}
		return strings.TrimSpace(value[l+1:])
	}
}

// FromHeader returns the raw value of a request header.
func FromHeader(name string) Extractor {
	return func(r *http.Request) string {
		return r.Header.Get(name)
	}
}

// FromCookie returns the value of the named cookie.
func FromCookie(name string) Extractor {
	return func(r *http.Request) string {
		c, err := r.Cookie(name)
		if err != nil {
			return ""
		}
		return c.Value
	}
}

// FromQuery returns the value of a URL query parameter.
func FromQuery(param string) Extractor {
	return func(r *http.Request) string {
		return r.URL.Query().Get(param)
	}
}

// FromExtractors tries each extractor in order and returns the first
// non-empty token.
func FromExtractors(extractors ...Extractor) Extractor {
	chain := make([]Extractor, 0, len(extractors))
	for _, e := range extractors {
		if e != nil {
			chain = append(chain, e)
		}
	}
	return func(r *http.Request) string {
		for _, extract := range chain {
			if token := extract(r); token != "" {
				return token
			}
		}
		return ""
	}
}

// ParseTokenLookup builds a chain from a comma separated list of
// "source:name" pairs, for example
//
//	header:Authorization,cookie:jwt,query:token
//
// "header:Authorization" expects a Bearer token; any other header name is
// read verbatim. Sources are tried in the order given.
func ParseTokenLookup(lookup string) (Extractor, error) {
	var chain []Extractor
	for _, part := range strings.Split(lookup, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		source, name, ok := strings.Cut(part, ":")
		source = strings.TrimSpace(source)
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q has no name", ErrInvalidTokenLookup, part)
		}

		switch source {
		case "header":
			if http.CanonicalHeaderKey(name) == "Authorization" {
				chain = append(chain, FromBearerToken())
			} else {
				chain = append(chain, FromHeader(name))
			}
		case "cookie":
			chain = append(chain, FromCookie(name))
		case "query":
			chain = append(chain, FromQuery(name))
		default:
			return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidTokenLookup, source)
		}
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: no sources", ErrInvalidTokenLookup)
	}
	return FromExtractors(chain...), nil
}
