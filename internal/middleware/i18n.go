// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/inkwell-backend/internal/i18n"
)

// I18nMiddleware picks the first supported language from Accept-Language,
// ignoring region and quality suffixes ("hi-IN,hi;q=0.9,en;q=0.8").
func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", negotiateLanguage(c.GetHeader("Accept-Language"), defaultLang))
		c.Next()
	}
}

func negotiateLanguage(header, defaultLang string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.Split(part, ";")[0])
		if tag == "" {
			continue
		}
		subtags := strings.FieldsFunc(tag, func(r rune) bool {
			return r == '-' || r == '_'
		})
		if len(subtags) == 0 {
			continue
		}
		if base := strings.ToLower(subtags[0]); i18n.IsSupported(base) {
			return base
		}
	}
	return defaultLang
}
