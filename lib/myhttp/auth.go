package myhttp

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/MarcGrol/paycheckpowerhouse/lib/mycontext"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myerrors"
)

// TokenParam carries the internal token on push endpoints, where pub/sub cannot add headers.
const TokenParam = "token"

// BearerHeader is the Authorization value that passes the InternalToken stage.
func BearerHeader(token string) string {
	return "Bearer " + token
}

// InternalToken lets only requests through that present token, as bearer token or as
// query parameter. With an empty token every request is refused.
func InternalToken(token string, writer ResponseWriter) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasToken(r, token) {
				c := mycontext.ContextFromHTTPRequest(r)
				writer.WriteError(c, w, 1, myerrors.NewAuthenticationError(fmt.Errorf("missing or invalid internal token on %s", r.URL.Path)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasToken(r *http.Request, token string) bool {
	if token == "" {
		return false
	}
	presented := r.URL.Query().Get(TokenParam)
	if bearer, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		presented = bearer
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1
}
