package app

import (
	"log/slog"
	"mime"
	"sync"
)

// staticTypes lists the content types served from web/static. Minimal
// container images ship without /etc/mime.types.
var staticTypes = map[string]string{
	".css":   "text/css; charset=utf-8",
	".js":    "text/javascript; charset=utf-8",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".woff2": "font/woff2",
}

var registerTypesOnce sync.Once

func registerStaticTypes(logger *slog.Logger) {
	registerTypesOnce.Do(func() {
		for ext, typ := range staticTypes {
			if mime.TypeByExtension(ext) != "" {
				continue
			}
			if err := mime.AddExtensionType(ext, typ); err != nil {
				logger.Warn("register static mime type", slog.String("ext", ext), slog.Any("error", err))
			}
		}
	})
}
