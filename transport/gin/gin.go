// Package gin adapts DIDAuth request verification to gin handlers.
package gin

import (
	"github.com/gin-gonic/gin"
	"github.com/storacha/go-didauth/didauth"
	didhttp "github.com/storacha/go-didauth/transport/http"
)

// ResultKey is the gin context key holding the verification result.
const ResultKey = "didauth.result"

// Middleware verifies the Authorization header of every request and aborts
// unverified ones with the JSON error of [didhttp.Middleware]. The options
// are those of the net/http middleware; [didhttp.WithErrorHandler] is
// ignored.
func Middleware(v *didauth.Verifier, options ...didhttp.Option) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, herr := didhttp.Authenticate(c.Request, v, options...)
		if herr != nil {
			for k, vs := range herr.Headers {
				for _, h := range vs {
					c.Writer.Header().Add(k, h)
				}
			}
			c.AbortWithStatusJSON(herr.Status, herr)
			return
		}
		if res.OK {
			c.Set(ResultKey, res)
			c.Request = c.Request.WithContext(didhttp.WithResult(c.Request.Context(), res))
		}
		c.Next()
	}
}

// Result returns the verification result set by [Middleware].
func Result(c *gin.Context) (didauth.Result, bool) {
	v, ok := c.Get(ResultKey)
	if !ok {
		return didauth.Result{}, false
	}
	res, ok := v.(didauth.Result)
	return res, ok
}
