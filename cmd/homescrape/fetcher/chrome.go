package fetcher

import (
	"os/exec"

	"github.com/jmylchreest/homescrape/internal/logger"
)

// chromeCandidates are tried in order. Bare names go through PATH lookup.
var chromeCandidates = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"chrome",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/snap/bin/chromium",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// FindChromePath returns the first Chrome or Chromium binary found, or ""
// to let chromedp fall back to its own lookup.
func FindChromePath() string {
	return findExecutable(chromeCandidates, exec.LookPath)
}

func findExecutable(candidates []string, lookPath func(string) (string, error)) string {
	for _, name := range candidates {
		if path, err := lookPath(name); err == nil {
			logger.Debug("found Chrome binary", "name", name, "path", path)
			return path
		}
	}
	logger.Warn("no Chrome binary found - dynamic fetch mode may not work")
	return ""
}
