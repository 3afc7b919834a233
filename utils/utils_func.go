package utils

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// SafeReturnPath accepts only same-site absolute paths such as /my-bookings?tab=past.
// Anything else (scheme, host, protocol-relative, backslashes) falls back to "/".
func SafeReturnPath(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return u.RequestURI()
}

// LoginRedirect builds the login URL that returns to next afterwards.
func LoginRedirect(next string) string {
	next = SafeReturnPath(next)
	if next == "/" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(next)
}

// WantsJSON reports whether the caller is a script rather than a page navigation.
func WantsJSON(c *gin.Context) bool {
	if c.GetHeader("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	accept := c.GetHeader("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

// Redirect answers page navigations with a 302 and scripts with jsonStatus and {"redirect": to}.
func Redirect(c *gin.Context, jsonStatus int, to string) {
	if WantsJSON(c) {
		c.AbortWithStatusJSON(jsonStatus, gin.H{"redirect": to})
		return
	}
	c.Redirect(http.StatusFound, to)
	c.Abort()
}
