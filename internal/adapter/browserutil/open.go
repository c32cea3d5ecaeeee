// Package browserutil opens URLs in the user's default browser.
package browserutil

import (
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"
)

// Open launches the default browser at url without waiting for it. Failure
// is logged only; the caller always prints the URL as a fallback.
func Open(url string, log zerolog.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("could not open browser")
		return
	}
	go cmd.Wait()
}
