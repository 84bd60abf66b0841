package fetcher

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// stealthScript hides the most common headless Chrome tells. It runs
// before any page script on every new document.
const stealthScript = `
(() => {
  const define = (obj, key, value) =>
    Object.defineProperty(obj, key, { get: () => value, configurable: true });

  define(navigator, 'webdriver', undefined);
  define(navigator, 'languages', Object.freeze(['en-US', 'en']));
  define(navigator, 'plugins', [
    { name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer' },
    { name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai' },
  ]);
  if (!navigator.hardwareConcurrency) define(navigator, 'hardwareConcurrency', 4);
  if (!navigator.deviceMemory) define(navigator, 'deviceMemory', 8);

  window.chrome = window.chrome || {};
  window.chrome.runtime = window.chrome.runtime || { connect() {}, sendMessage() {} };

  const query = Permissions.prototype.query;
  Permissions.prototype.query = function (p) {
    return p && p.name === 'notifications'
      ? Promise.resolve({ state: Notification.permission })
      : query.call(this, p);
  };

  for (const ctx of [window.WebGLRenderingContext, window.WebGL2RenderingContext]) {
    if (!ctx) continue;
    const getParameter = ctx.prototype.getParameter;
    ctx.prototype.getParameter = function (param) {
      if (param === 37445) return 'Intel Inc.';
      if (param === 37446) return 'Intel Iris OpenGL Engine';
      return getParameter.call(this, param);
    };
  }
})();
`

// allocatorOptions returns the Chrome flags for the browser. Stealth adds
// the automation-hiding flags on top of the plain headless set.
func allocatorOptions(stealth bool) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
	)
	if !stealth {
		return opts
	}
	return append(opts,
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("lang", "en-US,en"),
		chromedp.Flag("accept-lang", "en-US,en;q=0.9"),
	)
}

// injectStealth registers stealthScript for every new document.
func injectStealth() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
		return err
	})
}

// captureScreenshot grabs the current viewport for debugging a failed
// navigation. It returns nil if the browser is unusable.
func captureScreenshot(ctx context.Context) []byte {
	var shot []byte
	captureCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := chromedp.Run(captureCtx, chromedp.CaptureScreenshot(&shot)); err != nil {
		return nil
	}
	return shot
}
